package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/sanitize"
	"github.com/emilythestrangee/stackit/backend/internal/validation"
)

type AnswerService struct {
	db            *gorm.DB
	notifications *NotificationService
	validate      *validation.Validator
	log           *slog.Logger
}

func NewAnswerService(db *gorm.DB, notes *NotificationService, v *validation.Validator, logger *slog.Logger) *AnswerService {
	return &AnswerService{db: db, notifications: notes, validate: v, log: logger}
}

type AnswerInput struct {
	Content string `json:"content" validate:"notblank"`
}

func (s *AnswerService) cleanContent(in AnswerInput) (string, error) {
	if errs := s.validate.Struct(in); len(errs) > 0 {
		return "", errs
	}
	content := sanitize.HTML(in.Content)
	if content == "" {
		return "", validation.Single("content", "content is a required field")
	}
	return content, nil
}

// Create posts an answer and tells the question's author about it.
func (s *AnswerService) Create(ctx context.Context, actor Actor, questionID uint, in AnswerInput) (*models.Answer, error) {
	content, err := s.cleanContent(in)
	if err != nil {
		return nil, err
	}

	a := &models.Answer{Content: content, QuestionID: questionID, UserID: actor.ID}
	var note *models.Notification
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q models.Question
		if err := tx.Where("is_active = ?", true).First(&q, questionID).Error; err != nil {
			return orNotFound(err, "Question not found")
		}
		if q.IsClosed {
			return conflict("Question is closed to new answers")
		}
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		err := tx.Model(&models.Question{}).Where("id = ?", questionID).
			UpdateColumn("answer_count", gorm.Expr("answer_count + 1")).Error
		if err != nil {
			return err
		}
		if q.UserID == actor.ID {
			return nil
		}
		note, err = s.notifications.notifyTx(tx, q.UserID, "New answer on your question: "+q.Title)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifications.publish(note)
	s.log.Info("answer created", "answer_id", a.ID, "question_id", questionID, "user_id", actor.ID)
	return s.load(s.db.WithContext(ctx), a.ID)
}

func (s *AnswerService) load(db *gorm.DB, id uint) (*models.Answer, error) {
	var a models.Answer
	if err := db.Preload("User").First(&a, id).Error; err != nil {
		return nil, orNotFound(err, "Answer not found")
	}
	return &a, nil
}

// List returns a question's answers, oldest first.
func (s *AnswerService) List(ctx context.Context, questionID uint, page Page) ([]models.Answer, PageInfo, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", questionID).Count(&n).Error; err != nil {
		return nil, PageInfo{}, err
	}
	if n == 0 {
		return nil, PageInfo{}, notFound("Question not found")
	}

	db := s.db.WithContext(ctx).Model(&models.Answer{}).
		Where("question_id = ?", questionID).
		Session(&gorm.Session{})
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, PageInfo{}, err
	}
	answers := []models.Answer{}
	err := db.Scopes(page.Scope).
		Order("created_at ASC").Order("id ASC").
		Preload("User").
		Find(&answers).Error
	if err != nil {
		return nil, PageInfo{}, err
	}
	return answers, page.Info(total), nil
}

func (s *AnswerService) Update(ctx context.Context, actor Actor, id uint, in AnswerInput) (*models.Answer, error) {
	content, err := s.cleanContent(in)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Answer
		if err := tx.First(&a, id).Error; err != nil {
			return orNotFound(err, "Answer not found")
		}
		if a.UserID != actor.ID {
			return forbidden("You can only edit your own answers")
		}
		return tx.Model(&a).Update("content", content).Error
	})
	if err != nil {
		return nil, err
	}
	return s.load(s.db.WithContext(ctx), id)
}

// Delete removes an answer and its votes. Authors and staff may delete.
func (s *AnswerService) Delete(ctx context.Context, actor Actor, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Answer
		if err := tx.First(&a, id).Error; err != nil {
			return orNotFound(err, "Answer not found")
		}
		if a.UserID != actor.ID && !actor.IsStaff() {
			return forbidden("You can only delete your own answers")
		}
		if err := tx.Where("answer_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return fmt.Errorf("deleting answer votes: %w", err)
		}
		if err := tx.Delete(&a).Error; err != nil {
			return err
		}
		return tx.Model(&models.Question{}).Where("id = ?", a.QuestionID).
			UpdateColumn("answer_count", decrementFloor("answer_count")).Error
	})
	if err != nil {
		return err
	}
	s.log.Info("answer deleted", "answer_id", id, "user_id", actor.ID)
	return nil
}

// Accept marks an answer as the accepted one for its question, clearing any
// previous choice. Only the question's author may accept.
func (s *AnswerService) Accept(ctx context.Context, actor Actor, id uint) (*models.Answer, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Answer
		if err := tx.Preload("Question").First(&a, id).Error; err != nil {
			return orNotFound(err, "Answer not found")
		}
		if a.Question == nil {
			return fmt.Errorf("answer %d: question %d: %w", a.ID, a.QuestionID, ErrInconsistent)
		}
		if a.Question.UserID != actor.ID {
			return forbidden("Only the question author can accept an answer")
		}
		if a.IsAccepted {
			return nil
		}
		err := tx.Model(&models.Answer{}).
			Where("question_id = ? AND id <> ? AND is_accepted = ?", a.QuestionID, a.ID, true).
			Update("is_accepted", false).Error
		if err != nil {
			return err
		}
		return tx.Model(&a).Update("is_accepted", true).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("answer accepted", "answer_id", id, "user_id", actor.ID)
	return s.load(s.db.WithContext(ctx), id)
}
