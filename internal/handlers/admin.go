package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/response"
	"github.com/emilythestrangee/stackit/backend/internal/services"
)

type AdminHandler struct {
	admin     *services.AdminService
	questions *services.QuestionService
	log       *slog.Logger
}

// GetUsers lists accounts, filtered by ?role=, ?q= and ?is_active=
func (h *AdminHandler) GetUsers(c *gin.Context) {
	filter := services.UserFilter{
		Role:  models.Role(c.Query("role")),
		Query: c.Query("q"),
	}
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, "is_active must be true or false")
			return
		}
		filter.Active = &active
	}

	users, info, err := h.admin.ListUsers(c.Request.Context(), pageParams(c, services.DefaultPerPage), filter)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Page(c, users, info)
}

func (h *AdminHandler) UpdateRole(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Role models.Role `json:"role"`
	}
	if !bindJSON(c, &input) {
		return
	}

	user, err := h.admin.UpdateRole(c.Request.Context(), middleware.Actor(c), id, input.Role)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "User role updated", user)
}

func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input struct {
		IsActive *bool `json:"is_active"`
	}
	if !bindJSON(c, &input) {
		return
	}

	user, err := h.admin.UpdateStatus(c.Request.Context(), middleware.Actor(c), id, input.IsActive)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "User status updated", user)
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "", stats)
}

// RecountQuestion rebuilds a question's cached answer and vote counters
func (h *AdminHandler) RecountQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	q, err := h.questions.RecountQuestion(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "Counters recomputed", q.Response())
}
