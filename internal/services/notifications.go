package services

import (
	"context"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/validation"
)

const (
	DefaultNotificationsPerPage = 10
	EventNotification           = "notification"
)

type NotificationService struct {
	db  *gorm.DB
	pub Publisher
	log *slog.Logger
}

func NewNotificationService(db *gorm.DB, pub Publisher, logger *slog.Logger) *NotificationService {
	if pub == nil {
		pub = nopPublisher{}
	}
	return &NotificationService{db: db, pub: pub, log: logger}
}

// Notify stores a message for userID and pushes it to live subscribers.
func (s *NotificationService) Notify(ctx context.Context, userID uint, message string) (*models.Notification, error) {
	var n *models.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		n, err = s.notifyTx(tx, userID, message)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(n)
	return n, nil
}

// notifyTx writes the notification inside an open transaction. The caller
// publishes it once the transaction commits.
func (s *NotificationService) notifyTx(tx *gorm.DB, userID uint, message string) (*models.Notification, error) {
	var errs validation.Errors
	if userID == 0 {
		errs.Add("user_id", "user_id must be a positive integer")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		errs.Add("message", "message is a required field")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, notFound("User not found")
	}

	n := &models.Notification{
		UserID:  userID,
		Message: strings.TrimSpace(truncate(message, models.MaxNotificationLength)),
	}
	if err := tx.Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NotificationService) publish(notes ...*models.Notification) {
	for _, n := range notes {
		if n == nil {
			continue
		}
		s.pub.Publish(n.UserID, EventNotification, n)
	}
}

// List returns userID's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint, page Page) ([]models.Notification, PageInfo, error) {
	db := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, PageInfo{}, err
	}

	notes := []models.Notification{}
	err := db.Scopes(page.Scope).
		Order("created_at DESC").Order("id DESC").
		Find(&notes).Error
	if err != nil {
		return nil, PageInfo{}, err
	}
	return notes, page.Info(total), nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flags one notification as read. Only its owner may do so.
func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, id uint) (*models.Notification, error) {
	var n models.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&n, id).Error; err != nil {
			return orNotFound(err, "Notification not found")
		}
		if n.UserID != actor.ID {
			return forbidden("You can only modify your own notifications")
		}
		if n.IsRead {
			return nil
		}
		n.IsRead = true
		return tx.Model(&n).Update("is_read", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllRead flags every unread notification of userID and returns how many
// changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

