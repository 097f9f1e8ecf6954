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

type AnswerHandler struct {
	answers *services.AnswerService
	log     *slog.Logger
}

// GetAnswers returns a question's answers, oldest first
func (h *AnswerHandler) GetAnswers(c *gin.Context) {
	questionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	answers, info, err := h.answers.List(c.Request.Context(), questionID, pageParams(c, services.DefaultPerPage))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	out := make([]models.AnswerResponse, 0, len(answers))
	for i := range answers {
		out = append(out, answers[i].Response())
	}
	response.Page(c, out, info)
}

// CreateAnswer (PROTECTED - requires authentication)
func (h *AnswerHandler) CreateAnswer(c *gin.Context) {
	questionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input services.AnswerInput
	if !bindJSON(c, &input) {
		return
	}

	a, err := h.answers.Create(c.Request.Context(), middleware.Actor(c), questionID, input)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusCreated, "Answer posted successfully", a.Response())
}

// UpdateAnswer (PROTECTED - requires ownership)
func (h *AnswerHandler) UpdateAnswer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input services.AnswerInput
	if !bindJSON(c, &input) {
		return
	}

	a, err := h.answers.Update(c.Request.Context(), middleware.Actor(c), id, input)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "Answer updated successfully", a.Response())
}

func (h *AnswerHandler) DeleteAnswer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.answers.Delete(c.Request.Context(), middleware.Actor(c), id); err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "Answer deleted successfully", nil)
}

// AcceptAnswer is reserved to the question's author
func (h *AnswerHandler) AcceptAnswer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	a, err := h.answers.Accept(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "Answer accepted", a.Response())
}
