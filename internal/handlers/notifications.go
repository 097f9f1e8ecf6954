package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/response"
	"github.com/emilythestrangee/stackit/backend/internal/services"
)

type NotificationHandler struct {
	notifications *services.NotificationService
	log           *slog.Logger
}

// GetNotifications pages through the caller's notifications, newest first
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	id, _ := middleware.CurrentUserID(c)
	notes, info, err := h.notifications.List(c.Request.Context(), id, pageParams(c, services.DefaultNotificationsPerPage))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Page(c, notes, info)
}

// CreateNotification sends a notification to the caller
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	var input struct {
		Message string `json:"message"`
	}
	if !bindJSON(c, &input) {
		return
	}
	id, _ := middleware.CurrentUserID(c)

	note, err := h.notifications.Notify(c.Request.Context(), id, input.Message)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusCreated, "Notification created", note)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	id, _ := middleware.CurrentUserID(c)
	count, err := h.notifications.UnreadCount(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "", gin.H{"unread_count": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	note, err := h.notifications.MarkRead(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "Notification marked as read", note)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	id, _ := middleware.CurrentUserID(c)
	n, err := h.notifications.MarkAllRead(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, "All notifications marked as read", gin.H{"updated": n})
}
