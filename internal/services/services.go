// Package services holds the platform's business operations. Every mutation
// runs in one gorm transaction; live events go out only after commit.
package services

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/validation"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uint
	Role models.Role
}

func (a Actor) IsStaff() bool { return a.Role.IsStaff() }

// Publisher delivers live events to a user's connected clients. It must not
// block.
type Publisher interface {
	Publish(userID uint, event string, data interface{})
}

type nopPublisher struct{}

func (nopPublisher) Publish(uint, string, interface{}) {}

// Services is the dependency set handed to the HTTP layer.
type Services struct {
	Auth          *AuthService
	Questions     *QuestionService
	Answers       *AnswerService
	Votes         *VoteService
	Tags          *TagService
	Notifications *NotificationService
	Admin         *AdminService
}

func New(db *gorm.DB, tokens *auth.Manager, pub Publisher, logger *slog.Logger) *Services {
	if pub == nil {
		pub = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	v := validation.New()

	notifications := NewNotificationService(db, pub, logger)
	tags := NewTagService(db, v, logger)
	return &Services{
		Auth:          NewAuthService(db, tokens, v, logger),
		Questions:     NewQuestionService(db, notifications, v, logger),
		Answers:       NewAnswerService(db, notifications, v, logger),
		Votes:         NewVoteService(db, logger),
		Tags:          tags,
		Notifications: notifications,
		Admin:         NewAdminService(db, logger),
	}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(strings.TrimSpace(q))) + "%"
}

// nonZero treats a zero id as absent.
func nonZero(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	return id
}

// decrementFloor is an UPDATE expression that never drops below zero.
func decrementFloor(column string) interface{} {
	return gorm.Expr("CASE WHEN " + column + " > 0 THEN " + column + " - 1 ELSE 0 END")
}
