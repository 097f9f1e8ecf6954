package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/response"
	"github.com/emilythestrangee/stackit/backend/internal/services"
)

type TagHandler struct {
	tags *services.TagService
	log  *slog.Logger
}

func (h *TagHandler) GetTags(c *gin.Context) {
	tags, info, err := h.tags.List(c.Request.Context(), pageParams(c, services.DefaultPerPage))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Page(c, tags, info)
}

func (h *TagHandler) SearchTags(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	tags, err := h.tags.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "", tags)
}

func (h *TagHandler) PopularTags(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	tags, err := h.tags.Popular(c.Request.Context(), limit)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "", tags)
}

func (h *TagHandler) GetTag(c *gin.Context) {
	tag, err := h.tags.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "", tag)
}

// CreateTag (PROTECTED - moderators and admins)
func (h *TagHandler) CreateTag(c *gin.Context) {
	var input services.CreateTagInput
	if !bindJSON(c, &input) {
		return
	}
	tag, err := h.tags.Create(c.Request.Context(), middleware.Actor(c), input)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusCreated, "Tag created successfully", tag)
}

// UpdateTag (PROTECTED - moderators and admins)
func (h *TagHandler) UpdateTag(c *gin.Context) {
	var input services.UpdateTagInput
	if !bindJSON(c, &input) {
		return
	}
	tag, err := h.tags.Update(c.Request.Context(), c.Param("slug"), input)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "Tag updated successfully", tag)
}
