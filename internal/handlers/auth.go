package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/response"
	"github.com/emilythestrangee/stackit/backend/internal/services"
)

type AuthHandler struct {
	auth  *services.AuthService
	votes *services.VoteService
	log   *slog.Logger
}

// Register creates an account and returns a token pair
func (h *AuthHandler) Register(c *gin.Context) {
	var input services.RegisterInput
	if !bindJSON(c, &input) {
		return
	}

	sess, err := h.auth.Register(c.Request.Context(), input)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusCreated, "User registered successfully", sess)
}

// Login accepts an email or username with a password
func (h *AuthHandler) Login(c *gin.Context) {
	var input services.LoginInput
	if !bindJSON(c, &input) {
		return
	}

	sess, err := h.auth.Login(c.Request.Context(), input)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "Login successful", sess)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var input struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !bindJSON(c, &input) {
		return
	}
	if input.RefreshToken == "" {
		response.Fail(c, http.StatusBadRequest, "refresh_token is required")
		return
	}

	tok, err := h.auth.Refresh(c.Request.Context(), input.RefreshToken)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "Token refreshed", tok)
}

// Logout is a no-op on the server. Tokens are stateless and the client
// discards them.
func (h *AuthHandler) Logout(c *gin.Context) {
	response.OK(c, http.StatusOK, "Logged out successfully", nil)
}

// Me returns the authenticated user with their vote stats
func (h *AuthHandler) Me(c *gin.Context) {
	id, _ := middleware.CurrentUserID(c)
	user, err := h.auth.ActiveUser(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	stats, err := h.votes.Stats(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "", struct {
		*models.User
		VoteStats *services.VoteStats `json:"vote_stats"`
	}{user, stats})
}
