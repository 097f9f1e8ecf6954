package services

import (
	"context"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/validation"
)

type AdminService struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewAdminService(db *gorm.DB, logger *slog.Logger) *AdminService {
	return &AdminService{db: db, log: logger}
}

type UserFilter struct {
	Role   models.Role
	Query  string
	Active *bool
}

func (s *AdminService) ListUsers(ctx context.Context, page Page, f UserFilter) ([]models.User, PageInfo, error) {
	db := s.db.WithContext(ctx).Model(&models.User{})
	if f.Role != "" {
		db = db.Where("role = ?", f.Role)
	}
	if f.Active != nil {
		db = db.Where("is_active = ?", *f.Active)
	}
	if strings.TrimSpace(f.Query) != "" {
		p := likePattern(f.Query)
		db = db.Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'`, p, p)
	}
	db = db.Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, PageInfo{}, err
	}
	users := []models.User{}
	err := db.Scopes(page.Scope).Order("created_at DESC").Order("id DESC").Find(&users).Error
	if err != nil {
		return nil, PageInfo{}, err
	}
	return users, page.Info(total), nil
}

// UpdateRole assigns role to a user. Admins cannot change their own role.
func (s *AdminService) UpdateRole(ctx context.Context, actor Actor, id uint, role models.Role) (*models.User, error) {
	if actor.ID == id {
		return nil, forbidden("You cannot change your own role")
	}
	if !role.Valid() {
		return nil, validation.Single("role", "role must be one of user, moderator, admin")
	}
	user, err := s.update(ctx, id, "role", role)
	if err != nil {
		return nil, err
	}
	s.log.Info("user role changed", "user_id", id, "role", role, "admin_id", actor.ID)
	return user, nil
}

// UpdateStatus activates or deactivates a user. Admins cannot change their
// own status.
func (s *AdminService) UpdateStatus(ctx context.Context, actor Actor, id uint, active *bool) (*models.User, error) {
	if actor.ID == id {
		return nil, forbidden("You cannot change your own status")
	}
	if active == nil {
		return nil, validation.Single("is_active", "is_active is required")
	}
	user, err := s.update(ctx, id, "is_active", *active)
	if err != nil {
		return nil, err
	}
	s.log.Info("user status changed", "user_id", id, "is_active", *active, "admin_id", actor.ID)
	return user, nil
}

func (s *AdminService) update(ctx context.Context, id uint, column string, value interface{}) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return orNotFound(err, "User not found")
		}
		if err := tx.Model(&user).Update(column, value).Error; err != nil {
			return err
		}
		return tx.First(&user, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type UserStats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

type ContentStats struct {
	Questions int64 `json:"questions"`
	Answers   int64 `json:"answers"`
	Votes     int64 `json:"votes"`
	Tags      int64 `json:"tags"`
}

type PlatformStats struct {
	Users   UserStats    `json:"users"`
	Content ContentStats `json:"content"`
}

func (s *AdminService) Stats(ctx context.Context) (*PlatformStats, error) {
	db := s.db.WithContext(ctx)
	var st PlatformStats
	counts := []struct {
		model interface{}
		where []interface{}
		dest  *int64
	}{
		{&models.User{}, nil, &st.Users.Total},
		{&models.User{}, []interface{}{"is_active = ?", true}, &st.Users.Active},
		{&models.Question{}, nil, &st.Content.Questions},
		{&models.Answer{}, nil, &st.Content.Answers},
		{&models.Vote{}, nil, &st.Content.Votes},
		{&models.Tag{}, nil, &st.Content.Tags},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if len(c.where) > 0 {
			q = q.Where(c.where[0], c.where[1:]...)
		}
		if err := q.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}
	st.Users.Inactive = st.Users.Total - st.Users.Active
	return &st, nil
}
