// Package response writes the JSON envelope every API route answers with.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/validation"
)

type Envelope struct {
	Success    bool                    `json:"success"`
	Message    string                  `json:"message,omitempty"`
	Data       interface{}             `json:"data,omitempty"`
	Error      string                  `json:"error,omitempty"`
	Errors     []validation.FieldError `json:"errors,omitempty"`
	Pagination interface{}             `json:"pagination,omitempty"`
}

// OK writes a success envelope with the given status.
func OK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Page writes a success envelope with a pagination block.
func Page(c *gin.Context, data interface{}, pagination interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Pagination: pagination})
}

// Fail aborts the request with an error envelope.
func Fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: message})
}

// Invalid aborts with 400 and the failed fields.
func Invalid(c *gin.Context, errs validation.Errors) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{
		Success: false,
		Error:   "Validation failed",
		Errors:  errs,
	})
}
