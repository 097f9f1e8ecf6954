package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/response"
	"github.com/emilythestrangee/stackit/backend/internal/services"
)

type QuestionHandler struct {
	questions *services.QuestionService
	log       *slog.Logger
}

func questionResponses(qs []models.Question) []models.QuestionResponse {
	out := make([]models.QuestionResponse, 0, len(qs))
	for i := range qs {
		out = append(out, qs[i].Response())
	}
	return out
}

// GetQuestions returns the question feed
func (h *QuestionHandler) GetQuestions(c *gin.Context) {
	params := services.ListQuestionsParams{
		Page:  pageParams(c, services.DefaultPerPage),
		Tag:   c.Query("tag"),
		Query: c.Query("q"),
		Sort:  c.Query("sort"),
	}
	questions, info, err := h.questions.List(c.Request.Context(), params)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Page(c, questionResponses(questions), info)
}

// GetQuestion looks a question up by numeric id or by slug
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	ref := c.Param("id")

	var (
		q   *models.Question
		err error
	)
	if id, perr := strconv.ParseUint(ref, 10, 64); perr == nil {
		q, err = h.questions.Get(c.Request.Context(), uint(id))
	} else {
		q, err = h.questions.BySlug(c.Request.Context(), ref)
	}
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "", q.Response())
}

// CreateQuestion (PROTECTED - requires authentication)
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var input services.CreateQuestionInput
	if !bindJSON(c, &input) {
		return
	}

	q, err := h.questions.Create(c.Request.Context(), middleware.Actor(c), input)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusCreated, "Question created successfully", q.Response())
}

// UpdateQuestion (PROTECTED - requires ownership)
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input services.UpdateQuestionInput
	if !bindJSON(c, &input) {
		return
	}

	q, err := h.questions.Update(c.Request.Context(), middleware.Actor(c), id, input)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "Question updated successfully", q.Response())
}

// DeleteQuestion (PROTECTED - author or staff)
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.questions.Delete(c.Request.Context(), middleware.Actor(c), id); err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "Question deleted successfully", nil)
}

func (h *QuestionHandler) CloseQuestion(c *gin.Context) {
	h.moderate(c, "Question closed", h.questions.Close)
}

func (h *QuestionHandler) ReopenQuestion(c *gin.Context) {
	h.moderate(c, "Question reopened", h.questions.Reopen)
}

func (h *QuestionHandler) FeatureQuestion(c *gin.Context) {
	h.moderate(c, "Question feature flag updated", h.questions.ToggleFeatured)
}

type moderation func(ctx context.Context, actor services.Actor, id uint) (*models.Question, error)

func (h *QuestionHandler) moderate(c *gin.Context, message string, op moderation) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	q, err := op(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, message, q.Response())
}

func (h *QuestionHandler) AttachTag(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	q, added, err := h.questions.AttachTag(c.Request.Context(), middleware.Actor(c), id, c.Param("tag"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	msg := "Tag already on question"
	if added {
		msg = "Tag added"
	}
	response.OK(c, http.StatusOK, msg, q.Response())
}

func (h *QuestionHandler) DetachTag(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	q, removed, err := h.questions.DetachTag(c.Request.Context(), middleware.Actor(c), id, c.Param("tag"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	msg := "Tag not on question"
	if removed {
		msg = "Tag removed"
	}
	response.OK(c, http.StatusOK, msg, q.Response())
}
