package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/database"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/slug"
	"github.com/emilythestrangee/stackit/backend/internal/validation"
)

const (
	DefaultTagSearchLimit = 10
	MaxTagSearchLimit     = 50
	tagSlugLength         = 60
)

type TagService struct {
	db       *gorm.DB
	validate *validation.Validator
	log      *slog.Logger
}

func NewTagService(db *gorm.DB, v *validation.Validator, logger *slog.Logger) *TagService {
	return &TagService{db: db, validate: v, log: logger}
}

type CreateTagInput struct {
	Name        string `json:"name" validate:"notblank,max=50,tagname"`
	Description string `json:"description" validate:"max=500"`
	Color       string `json:"color" validate:"omitempty,hexcolor6"`
}

type UpdateTagInput struct {
	Description *string `json:"description" validate:"omitempty,max=500"`
	Color       *string `json:"color" validate:"omitempty,hexcolor6"`
	IsActive    *bool   `json:"is_active"`
}

func (s *TagService) Create(ctx context.Context, actor Actor, in CreateTagInput) (*models.Tag, error) {
	in.Name = strings.TrimSpace(in.Name)
	if errs := s.validate.Struct(in); len(errs) > 0 {
		return nil, errs
	}

	var tag *models.Tag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findTagByName(tx, in.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			return conflict("Tag already exists")
		}
		tag, err = createTag(tx, in.Name, strings.TrimSpace(in.Description), in.Color, &actor.ID)
		return err
	})
	if database.IsUniqueViolation(err) {
		return nil, conflict("Tag already exists")
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("tag created", "tag_id", tag.ID, "name", tag.Name, "user_id", actor.ID)
	return tag, nil
}

// List returns active tags, most used first.
func (s *TagService) List(ctx context.Context, page Page) ([]models.Tag, PageInfo, error) {
	db := s.db.WithContext(ctx).Model(&models.Tag{}).
		Where("is_active = ?", true).
		Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, PageInfo{}, err
	}
	tags := []models.Tag{}
	err := db.Scopes(page.Scope).
		Order("usage_count DESC").Order("name ASC").
		Find(&tags).Error
	if err != nil {
		return nil, PageInfo{}, err
	}
	return tags, page.Info(total), nil
}

// ClampLimit bounds a search or popular limit to 1..MaxTagSearchLimit.
func ClampLimit(limit int) int {
	if limit < 1 {
		return DefaultTagSearchLimit
	}
	if limit > MaxTagSearchLimit {
		return MaxTagSearchLimit
	}
	return limit
}

// Search matches active tag names containing q.
func (s *TagService) Search(ctx context.Context, q string, limit int) ([]models.Tag, error) {
	tags := []models.Tag{}
	if strings.TrimSpace(q) == "" {
		return tags, nil
	}
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, likePattern(q)).
		Order("usage_count DESC").Order("name ASC").
		Limit(ClampLimit(limit)).
		Find(&tags).Error
	return tags, err
}

func (s *TagService) Popular(ctx context.Context, limit int) ([]models.Tag, error) {
	tags := []models.Tag{}
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND usage_count > 0", true).
		Order("usage_count DESC").Order("name ASC").
		Limit(ClampLimit(limit)).
		Find(&tags).Error
	return tags, err
}

func (s *TagService) GetBySlug(ctx context.Context, tagSlug string) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).Where("slug = ?", tagSlug).First(&tag).Error; err != nil {
		return nil, orNotFound(err, "Tag not found")
	}
	return &tag, nil
}

func (s *TagService) Update(ctx context.Context, tagSlug string, in UpdateTagInput) (*models.Tag, error) {
	if errs := s.validate.Struct(in); len(errs) > 0 {
		return nil, errs
	}

	var tag models.Tag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("slug = ?", tagSlug).First(&tag).Error; err != nil {
			return orNotFound(err, "Tag not found")
		}
		updates := map[string]interface{}{}
		if in.Description != nil {
			updates["description"] = strings.TrimSpace(*in.Description)
		}
		if in.Color != nil && *in.Color != "" {
			updates["color"] = strings.ToUpper(*in.Color)
		}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&tag).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&tag, tag.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func findTagByName(tx *gorm.DB, name string) (*models.Tag, error) {
	var tag models.Tag
	err := tx.Where("LOWER(name) = ?", strings.ToLower(name)).First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func createTag(tx *gorm.DB, name, description, color string, createdBy *uint) (*models.Tag, error) {
	base := slug.Make(name, tagSlugLength, "tag")
	tagSlug, err := slug.Unique(base, func(candidate string) (bool, error) {
		var n int64
		err := tx.Model(&models.Tag{}).Where("slug = ?", candidate).Count(&n).Error
		return n > 0, err
	})
	if err != nil {
		return nil, err
	}
	if color == "" {
		color = models.DefaultTagColor
	}
	tag := &models.Tag{
		Name:        name,
		Slug:        tagSlug,
		Description: description,
		Color:       strings.ToUpper(color),
		IsActive:    true,
		CreatedBy:   createdBy,
	}
	if err := tx.Create(tag).Error; err != nil {
		return nil, err
	}
	return tag, nil
}

// findOrCreateTag resolves a tag by name, creating it when missing.
func findOrCreateTag(tx *gorm.DB, name string, createdBy uint) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	tag, err := findTagByName(tx, name)
	if err != nil || tag != nil {
		return tag, err
	}
	return createTag(tx, name, "", "", &createdBy)
}

// attachTag links a tag to a question and bumps usage_count. Linking an
// already linked tag changes nothing.
func attachTag(tx *gorm.DB, questionID, tagID uint) (bool, error) {
	var n int64
	err := tx.Model(&models.QuestionTag{}).
		Where("question_id = ? AND tag_id = ?", questionID, tagID).
		Count(&n).Error
	if err != nil || n > 0 {
		return false, err
	}
	if err := tx.Create(&models.QuestionTag{QuestionID: questionID, TagID: tagID}).Error; err != nil {
		return false, err
	}
	err = tx.Model(&models.Tag{}).Where("id = ?", tagID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
	return err == nil, err
}

// detachTag unlinks a tag and lowers usage_count, never below zero.
func detachTag(tx *gorm.DB, questionID, tagID uint) (bool, error) {
	res := tx.Where("question_id = ? AND tag_id = ?", questionID, tagID).Delete(&models.QuestionTag{})
	if res.Error != nil || res.RowsAffected == 0 {
		return false, res.Error
	}
	err := tx.Model(&models.Tag{}).Where("id = ?", tagID).
		UpdateColumn("usage_count", decrementFloor("usage_count")).Error
	return err == nil, err
}
