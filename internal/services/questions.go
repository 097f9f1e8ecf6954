package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/database"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/sanitize"
	"github.com/emilythestrangee/stackit/backend/internal/slug"
	"github.com/emilythestrangee/stackit/backend/internal/validation"
)

const (
	questionSlugLength   = 80
	notificationTitleLen = 50
)

type QuestionService struct {
	db            *gorm.DB
	notifications *NotificationService
	validate      *validation.Validator
	log           *slog.Logger
}

func NewQuestionService(db *gorm.DB, notes *NotificationService, v *validation.Validator, logger *slog.Logger) *QuestionService {
	return &QuestionService{db: db, notifications: notes, validate: v, log: logger}
}

type CreateQuestionInput struct {
	Title   string   `json:"title" validate:"notblank,max=255"`
	Content string   `json:"content" validate:"notblank"`
	Tags    []string `json:"tags" validate:"omitempty,dive,notblank,max=50,tagname"`
}

type UpdateQuestionInput struct {
	Title   *string   `json:"title" validate:"omitnil,notblank,max=255"`
	Content *string   `json:"content" validate:"omitnil,notblank"`
	Tags    *[]string `json:"tags" validate:"omitnil,dive,notblank,max=50,tagname"`
}

// ListQuestionsParams filters the question feed.
type ListQuestionsParams struct {
	Page  Page
	Tag   string
	Query string
	// Sort is "newest" (default), "votes", "views" or "unanswered".
	Sort string
}

func (s *QuestionService) Create(ctx context.Context, actor Actor, in CreateQuestionInput) (*models.Question, error) {
	in.Title = strings.TrimSpace(in.Title)
	if errs := s.validate.Struct(in); len(errs) > 0 {
		return nil, errs
	}
	content := sanitize.HTML(in.Content)
	if content == "" {
		return nil, validation.Single("content", "content is a required field")
	}

	q := &models.Question{
		Title:    in.Title,
		Content:  content,
		UserID:   actor.ID,
		IsActive: true,
	}
	var note *models.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		base := slug.Make(in.Title, questionSlugLength, "question")
		var err error
		q.Slug, err = slug.Unique(base, func(candidate string) (bool, error) {
			var n int64
			err := tx.Model(&models.Question{}).Where("slug = ?", candidate).Count(&n).Error
			return n > 0, err
		})
		if err != nil {
			return err
		}
		if err := tx.Omit("Tags").Create(q).Error; err != nil {
			return err
		}
		if err := s.attachNames(tx, q.ID, actor.ID, in.Tags); err != nil {
			return err
		}
		note, err = s.notifications.notifyTx(tx, actor.ID,
			"New question posted: "+truncate(q.Title, notificationTitleLen))
		return err
	})
	if database.IsUniqueViolation(err) {
		return nil, conflict("A question with the same slug was created concurrently, please retry")
	}
	if err != nil {
		return nil, err
	}
	s.notifications.publish(note)
	s.log.Info("question created", "question_id", q.ID, "slug", q.Slug, "user_id", actor.ID)

	return s.load(s.db.WithContext(ctx), q.ID)
}

func (s *QuestionService) attachNames(tx *gorm.DB, questionID, userID uint, names []string) error {
	seen := map[string]bool{}
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if seen[key] {
			continue
		}
		seen[key] = true
		tag, err := findOrCreateTag(tx, name, userID)
		if err != nil {
			return err
		}
		if _, err := attachTag(tx, questionID, tag.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *QuestionService) load(db *gorm.DB, id uint) (*models.Question, error) {
	var q models.Question
	err := db.Preload("User").Preload("Tags", func(db *gorm.DB) *gorm.DB {
		return db.Order("tags.name ASC")
	}).First(&q, id).Error
	if err != nil {
		return nil, orNotFound(err, "Question not found")
	}
	return &q, nil
}

func (s *QuestionService) List(ctx context.Context, p ListQuestionsParams) ([]models.Question, PageInfo, error) {
	db := s.db.WithContext(ctx).Model(&models.Question{}).Where("questions.is_active = ?", true)
	if tag := strings.TrimSpace(p.Tag); tag != "" {
		db = db.Where("questions.id IN (?)",
			s.db.Table("question_tags").
				Select("question_tags.question_id").
				Joins("JOIN tags ON tags.id = question_tags.tag_id").
				Where("tags.slug = ?", strings.ToLower(tag)))
	}
	if strings.TrimSpace(p.Query) != "" {
		db = db.Where(`LOWER(questions.title) LIKE ? ESCAPE '\'`, likePattern(p.Query))
	}
	if p.Sort == "unanswered" {
		db = db.Where("questions.answer_count = ?", 0)
	}
	db = db.Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, PageInfo{}, err
	}

	switch p.Sort {
	case "votes":
		db = db.Order("questions.vote_count DESC")
	case "views":
		db = db.Order("questions.view_count DESC")
	}
	questions := []models.Question{}
	err := db.Scopes(p.Page.Scope).
		Order("questions.created_at DESC").Order("questions.id DESC").
		Preload("User").Preload("Tags").
		Find(&questions).Error
	if err != nil {
		return nil, PageInfo{}, err
	}
	return questions, p.Page.Info(total), nil
}

// Get returns a question and counts the view.
func (s *QuestionService) Get(ctx context.Context, id uint) (*models.Question, error) {
	var q *models.Question
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Question{}).
			Where("id = ? AND is_active = ?", id, true).
			UpdateColumn("view_count", gorm.Expr("view_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("Question not found")
		}
		var err error
		q, err = s.load(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// BySlug resolves a slug to a question and counts the view.
func (s *QuestionService) BySlug(ctx context.Context, questionSlug string) (*models.Question, error) {
	var q models.Question
	if err := s.db.WithContext(ctx).Select("id").Where("slug = ?", questionSlug).First(&q).Error; err != nil {
		return nil, orNotFound(err, "Question not found")
	}
	return s.Get(ctx, q.ID)
}

func (s *QuestionService) Update(ctx context.Context, actor Actor, id uint, in UpdateQuestionInput) (*models.Question, error) {
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}
	if errs := s.validate.Struct(in); len(errs) > 0 {
		return nil, errs
	}
	updates := map[string]interface{}{}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Content != nil {
		content := sanitize.HTML(*in.Content)
		if content == "" {
			return nil, validation.Single("content", "content is a required field")
		}
		updates["content"] = content
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := s.load(tx, id)
		if err != nil {
			return err
		}
		if q.UserID != actor.ID {
			return forbidden("You can only edit your own questions")
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Question{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		if in.Tags == nil {
			return nil
		}
		wanted := map[string]bool{}
		for _, name := range *in.Tags {
			wanted[strings.ToLower(strings.TrimSpace(name))] = true
		}
		for _, t := range q.Tags {
			if wanted[strings.ToLower(t.Name)] {
				continue
			}
			if _, err := detachTag(tx, id, t.ID); err != nil {
				return err
			}
		}
		return s.attachNames(tx, id, actor.ID, *in.Tags)
	})
	if err != nil {
		return nil, err
	}
	return s.load(s.db.WithContext(ctx), id)
}

// Delete removes a question with its answers, votes and tag links.
// Authors and staff may delete.
func (s *QuestionService) Delete(ctx context.Context, actor Actor, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q models.Question
		if err := tx.Preload("Tags").First(&q, id).Error; err != nil {
			return orNotFound(err, "Question not found")
		}
		if q.UserID != actor.ID && !actor.IsStaff() {
			return forbidden("You can only delete your own questions")
		}

		answerIDs := tx.Model(&models.Answer{}).Select("id").Where("question_id = ?", id)
		if err := tx.Where("answer_id IN (?)", answerIDs).Delete(&models.Vote{}).Error; err != nil {
			return fmt.Errorf("deleting answer votes: %w", err)
		}
		if err := tx.Where("question_id = ?", id).Delete(&models.Answer{}).Error; err != nil {
			return fmt.Errorf("deleting answers: %w", err)
		}
		if err := tx.Where("question_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return fmt.Errorf("deleting question votes: %w", err)
		}
		for _, t := range q.Tags {
			if _, err := detachTag(tx, id, t.ID); err != nil {
				return fmt.Errorf("detaching tag %d: %w", t.ID, err)
			}
		}
		return tx.Delete(&models.Question{}, id).Error
	})
	if err != nil {
		return err
	}
	s.log.Info("question deleted", "question_id", id, "user_id", actor.ID)
	return nil
}

// Close marks a question closed to new answers. Staff only.
func (s *QuestionService) Close(ctx context.Context, actor Actor, id uint) (*models.Question, error) {
	now := time.Now().UTC()
	return s.setClosed(ctx, actor, id, true, map[string]interface{}{
		"is_closed": true,
		"closed_by": actor.ID,
		"closed_at": now,
	})
}

// Reopen clears a question's closed state. Staff only.
func (s *QuestionService) Reopen(ctx context.Context, actor Actor, id uint) (*models.Question, error) {
	return s.setClosed(ctx, actor, id, false, map[string]interface{}{
		"is_closed": false,
		"closed_by": nil,
		"closed_at": nil,
	})
}

func (s *QuestionService) setClosed(ctx context.Context, actor Actor, id uint, closed bool, updates map[string]interface{}) (*models.Question, error) {
	if !actor.IsStaff() {
		return nil, forbidden("Insufficient permissions")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q models.Question
		if err := tx.First(&q, id).Error; err != nil {
			return orNotFound(err, "Question not found")
		}
		if q.IsClosed == closed {
			if closed {
				return conflict("Question is already closed")
			}
			return conflict("Question is not closed")
		}
		return tx.Model(&q).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("question close state changed", "question_id", id, "closed", closed, "user_id", actor.ID)
	return s.load(s.db.WithContext(ctx), id)
}

// ToggleFeatured flips is_featured. Staff only.
func (s *QuestionService) ToggleFeatured(ctx context.Context, actor Actor, id uint) (*models.Question, error) {
	if !actor.IsStaff() {
		return nil, forbidden("Insufficient permissions")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q models.Question
		if err := tx.First(&q, id).Error; err != nil {
			return orNotFound(err, "Question not found")
		}
		return tx.Model(&q).Update("is_featured", !q.IsFeatured).Error
	})
	if err != nil {
		return nil, err
	}
	return s.load(s.db.WithContext(ctx), id)
}

// AttachTag links a tag by name, creating the tag if needed. The author or
// staff may do this; linking twice is a no-op.
func (s *QuestionService) AttachTag(ctx context.Context, actor Actor, id uint, name string) (*models.Question, bool, error) {
	in := struct {
		Name string `json:"tag" validate:"notblank,max=50,tagname"`
	}{Name: strings.TrimSpace(name)}
	if errs := s.validate.Struct(in); len(errs) > 0 {
		return nil, false, errs
	}

	var changed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.authorOrStaff(tx, actor, id); err != nil {
			return err
		}
		tag, err := findOrCreateTag(tx, in.Name, actor.ID)
		if err != nil {
			return err
		}
		changed, err = attachTag(tx, id, tag.ID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	q, err := s.load(s.db.WithContext(ctx), id)
	return q, changed, err
}

// DetachTag unlinks a tag given by name or slug. Unknown or unlinked tags are
// a no-op.
func (s *QuestionService) DetachTag(ctx context.Context, actor Actor, id uint, nameOrSlug string) (*models.Question, bool, error) {
	var changed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.authorOrStaff(tx, actor, id); err != nil {
			return err
		}
		var tag models.Tag
		err := tx.Where("LOWER(name) = ? OR slug = ?",
			strings.ToLower(strings.TrimSpace(nameOrSlug)), nameOrSlug).
			Limit(1).Find(&tag).Error
		if err != nil || tag.ID == 0 {
			return err
		}
		changed, err = detachTag(tx, id, tag.ID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	q, err := s.load(s.db.WithContext(ctx), id)
	return q, changed, err
}

func (s *QuestionService) authorOrStaff(tx *gorm.DB, actor Actor, id uint) error {
	var q models.Question
	if err := tx.Select("id", "user_id").First(&q, id).Error; err != nil {
		return orNotFound(err, "Question not found")
	}
	if q.UserID != actor.ID && !actor.IsStaff() {
		return forbidden("You can only edit your own questions")
	}
	return nil
}

// RecountQuestion rebuilds the cached answer_count and vote_count of a
// question and the vote_count of its answers from the child rows.
func (s *QuestionService) RecountQuestion(ctx context.Context, id uint) (*models.Question, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q models.Question
		if err := tx.Select("id").First(&q, id).Error; err != nil {
			return orNotFound(err, "Question not found")
		}
		var answers int64
		if err := tx.Model(&models.Answer{}).Where("question_id = ?", id).Count(&answers).Error; err != nil {
			return err
		}
		counts, err := tallyVotes(tx, "question_id", id)
		if err != nil {
			return err
		}
		err = tx.Model(&models.Question{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
			"answer_count": answers,
			"vote_count":   counts.Total,
		}).Error
		if err != nil {
			return err
		}

		var answerIDs []uint
		if err := tx.Model(&models.Answer{}).Where("question_id = ?", id).Pluck("id", &answerIDs).Error; err != nil {
			return err
		}
		for _, aid := range answerIDs {
			counts, err := tallyVotes(tx, "answer_id", aid)
			if err != nil {
				return err
			}
			err = tx.Model(&models.Answer{}).Where("id = ?", aid).
				UpdateColumn("vote_count", counts.Total).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("question counters rebuilt", "question_id", id)
	return s.load(s.db.WithContext(ctx), id)
}
