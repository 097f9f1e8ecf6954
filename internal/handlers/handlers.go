package handlers

import (
	"log/slog"

	"github.com/emilythestrangee/stackit/backend/internal/realtime"
	"github.com/emilythestrangee/stackit/backend/internal/services"
)

// Handler combines all handler types
type Handler struct {
	Auth         *AuthHandler
	Question     *QuestionHandler
	Answer       *AnswerHandler
	Vote         *VoteHandler
	Tag          *TagHandler
	Notification *NotificationHandler
	Admin        *AdminHandler
	Live         *LiveHandler
}

// NewHandler wires every sub-handler to the shared services.
func NewHandler(svc *services.Services, hub *realtime.Hub, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Auth:         &AuthHandler{auth: svc.Auth, votes: svc.Votes, log: logger},
		Question:     &QuestionHandler{questions: svc.Questions, log: logger},
		Answer:       &AnswerHandler{answers: svc.Answers, log: logger},
		Vote:         &VoteHandler{votes: svc.Votes, log: logger},
		Tag:          &TagHandler{tags: svc.Tags, log: logger},
		Notification: &NotificationHandler{notifications: svc.Notifications, log: logger},
		Admin:        &AdminHandler{admin: svc.Admin, questions: svc.Questions, log: logger},
		Live:         &LiveHandler{hub: hub, log: logger},
	}
}
