package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/response"
	"github.com/emilythestrangee/stackit/backend/internal/services"
)

const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
	ctxRole     = "role"
)

// AuthMiddleware requires a valid access token in the Authorization header.
// Websocket upgrades may pass it as the token query parameter instead, since
// browsers cannot set headers on them.
func AuthMiddleware(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" && websocket.IsWebSocketUpgrade(c.Request) {
			token = c.Query("token")
		}
		if token == "" {
			response.Fail(c, http.StatusUnauthorized, "Authorization token required")
			return
		}

		claims, err := tokens.Parse(token, auth.AccessToken)
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUsername, claims.Username)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// CurrentUserID returns the authenticated user's id.
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id > 0
}

// CurrentRole returns the role claim of the authenticated user.
func CurrentRole(c *gin.Context) models.Role {
	if v, ok := c.Get(ctxRole); ok {
		if r, ok := v.(models.Role); ok {
			return r
		}
	}
	return ""
}

// Actor is the authenticated caller as the services see it.
func Actor(c *gin.Context) services.Actor {
	id, _ := CurrentUserID(c)
	return services.Actor{ID: id, Role: CurrentRole(c)}
}

// UserLookup resolves active accounts.
type UserLookup interface {
	ActiveUser(ctx context.Context, id uint) (*models.User, error)
}

// RequireRoles lets through callers whose account is active and whose
// current role is one of roles. The role is read from the account, not the
// token, and replaces the claim for later handlers. It must run after
// AuthMiddleware.
func RequireRoles(users UserLookup, roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		id, ok := CurrentUserID(c)
		if !ok {
			response.Fail(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		user, err := users.ActiveUser(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, services.ErrUnauthorized) {
				response.Fail(c, http.StatusUnauthorized, err.Error())
				return
			}
			slog.Error("loading user for role check", "user_id", id, "error", err)
			response.Fail(c, http.StatusInternalServerError, "Internal server error")
			return
		}
		c.Set(ctxRole, user.Role)
		if !allowed[user.Role] {
			response.Fail(c, http.StatusForbidden, "Insufficient permissions")
			return
		}
		c.Next()
	}
}

// RequireActive checks only that the account still exists and is active.
func RequireActive(users UserLookup) gin.HandlerFunc {
	return RequireRoles(users, models.Roles...)
}
