package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/response"
	"github.com/emilythestrangee/stackit/backend/internal/services"
	"github.com/emilythestrangee/stackit/backend/internal/validation"
)

// statusOf maps a service error kind to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error envelope for err. Unexpected errors are logged and
// answered with a generic message.
func fail(c *gin.Context, log *slog.Logger, err error) {
	if errs, ok := validation.AsErrors(err); ok {
		response.Invalid(c, errs)
		return
	}
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		response.Fail(c, status, "Internal server error")
		return
	}
	response.Fail(c, status, err.Error())
}

// bindJSON decodes the request body into dst, answering 400 on malformed
// input.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// paramID parses a positive numeric path parameter.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.Fail(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// pageParams reads page and per_page (or limit) from the query string.
func pageParams(c *gin.Context, def int) services.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	size := c.Query("per_page")
	if size == "" {
		size = c.Query("limit")
	}
	perPage, _ := strconv.Atoi(size)
	return services.NewPage(page, perPage, def)
}
