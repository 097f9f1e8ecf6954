package server

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/database"
	"github.com/emilythestrangee/stackit/backend/internal/handlers"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/realtime"
	"github.com/emilythestrangee/stackit/backend/internal/services"
)

type Server struct {
	cfg      *config.Config
	db       database.Service
	tokens   *auth.Manager
	hub      *realtime.Hub
	services *services.Services
	handler  *handlers.Handler
	log      *slog.Logger
}

// New builds the server's dependency set on top of an open database.
func New(cfg *config.Config, db database.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	hub := realtime.NewHub(logger, cfg.CORS.AllowOrigins)
	svc := services.New(db.GetDB(), tokens, hub, logger)

	return &Server{
		cfg:      cfg,
		db:       db,
		tokens:   tokens,
		hub:      hub,
		services: svc,
		handler:  handlers.NewHandler(svc, hub, logger),
		log:      logger,
	}
}

// HTTPServer returns an http.Server serving the routes with the configured
// timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + s.cfg.Server.Port,
		Handler:      s.RegisterRoutes(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:  []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	// Browsers refuse credentials on a wildcard origin.
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logger(s.log), gin.Recovery())
	r.Use(cors.New(corsConfig(s.cfg.CORS.AllowOrigins)))

	h := s.handler
	users := s.services.Auth
	limits := s.cfg.RateLimit

	limit := func(scope string, n int, period time.Duration) gin.HandlerFunc {
		if !limits.Enabled || n <= 0 {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimit(scope, middleware.NewRateLimiter(n, period))
	}

	authed := []gin.HandlerFunc{middleware.AuthMiddleware(s.tokens), middleware.RequireActive(users)}
	staff := []gin.HandlerFunc{middleware.AuthMiddleware(s.tokens), middleware.RequireRoles(users, models.RoleModerator, models.RoleAdmin)}

	r.GET("/health", func(c *gin.Context) {
		health := s.db.Health()
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, health)
	})

	r.GET("/ws/notifications", append(authed, h.Live.Notifications)...)

	api := r.Group("/api")
	api.Use(limit("api", limits.DefaultRequests, limits.DefaultWindow))
	{
		// Auth routes
		a := api.Group("/auth")
		a.POST("/register", limit("register", limits.RegisterPerMin, time.Minute), h.Auth.Register)
		a.POST("/login", limit("login", limits.LoginPerMin, time.Minute), h.Auth.Login)
		a.POST("/refresh", h.Auth.Refresh)
		a.POST("/logout", append(authed, h.Auth.Logout)...)
		a.GET("/me", append(authed, h.Auth.Me)...)

		// Public reads
		api.GET("/questions", h.Question.GetQuestions)
		api.GET("/questions/:id", h.Question.GetQuestion)
		api.GET("/questions/:id/answers", h.Answer.GetAnswers)
		api.GET("/votes/question/:id", h.Vote.QuestionVotes)
		api.GET("/votes/answer/:id", h.Vote.AnswerVotes)
		api.GET("/tags", h.Tag.GetTags)
		api.GET("/tags/search", h.Tag.SearchTags)
		api.GET("/tags/popular", h.Tag.PopularTags)
		api.GET("/tags/:slug", h.Tag.GetTag)

		// Protected routes (authentication required)
		protected := api.Group("", authed...)
		{
			protected.POST("/questions", h.Question.CreateQuestion)
			protected.PUT("/questions/:id", h.Question.UpdateQuestion)
			protected.DELETE("/questions/:id", h.Question.DeleteQuestion)
			protected.POST("/questions/:id/tags/:tag", h.Question.AttachTag)
			protected.DELETE("/questions/:id/tags/:tag", h.Question.DetachTag)

			protected.POST("/questions/:id/answers", h.Answer.CreateAnswer)
			protected.PUT("/answers/:id", h.Answer.UpdateAnswer)
			protected.DELETE("/answers/:id", h.Answer.DeleteAnswer)
			protected.POST("/answers/:id/accept", h.Answer.AcceptAnswer)

			protected.POST("/votes", limit("vote", limits.VotePerMin, time.Minute), h.Vote.CastVote)
			protected.GET("/votes/user-vote", h.Vote.UserVote)
			protected.GET("/votes/stats", h.Vote.Stats)

			protected.GET("/notifications", h.Notification.GetNotifications)
			protected.POST("/notifications", h.Notification.CreateNotification)
			protected.GET("/notifications/unread_count", h.Notification.UnreadCount)
			protected.POST("/notifications/mark_read/:id", h.Notification.MarkRead)
			protected.POST("/notifications/mark_all_read", h.Notification.MarkAllRead)
		}

		// Moderation routes
		mod := api.Group("", staff...)
		{
			mod.POST("/questions/:id/close", h.Question.CloseQuestion)
			mod.POST("/questions/:id/reopen", h.Question.ReopenQuestion)
			mod.POST("/questions/:id/feature", h.Question.FeatureQuestion)
			mod.POST("/tags", h.Tag.CreateTag)
			mod.PUT("/tags/:slug", h.Tag.UpdateTag)
		}

		admin := api.Group("/admin", middleware.AuthMiddleware(s.tokens), middleware.RequireRoles(users, models.RoleAdmin))
		{
			admin.GET("/users", h.Admin.GetUsers)
			admin.PUT("/users/:id/role", h.Admin.UpdateRole)
			admin.PUT("/users/:id/status", h.Admin.UpdateStatus)
			admin.GET("/stats", h.Admin.Stats)
			admin.POST("/questions/:id/recount", h.Admin.RecountQuestion)
		}
	}

	return r
}
