package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/database"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/validation"
)

type AuthService struct {
	db       *gorm.DB
	tokens   *auth.Manager
	validate *validation.Validator
	log      *slog.Logger
}

func NewAuthService(db *gorm.DB, tokens *auth.Manager, v *validation.Validator, logger *slog.Logger) *AuthService {
	return &AuthService{db: db, tokens: tokens, validate: v, log: logger}
}

type RegisterInput struct {
	Username string `json:"username" validate:"notblank,min=3,max=80"`
	Email    string `json:"email" validate:"required,max=120,emailaddr"`
	Password string `json:"password" validate:"required,strongpassword"`
}

type LoginInput struct {
	// Identifier is an email address or a username. Clients may send either
	// field under its own name instead.
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password" validate:"required"`
}

func (in LoginInput) identifier() string {
	for _, v := range []string{in.Identifier, in.Email, in.Username} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Session is returned by register and login.
type Session struct {
	User *models.User `json:"user"`
	auth.Pair
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if errs := s.validate.Struct(in); len(errs) > 0 {
		return nil, errs
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		IsActive:     true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", in.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return conflict("Email already registered")
		}
		if err := tx.Model(&models.User{}).Where("LOWER(username) = ?", strings.ToLower(in.Username)).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return conflict("Username already taken")
		}
		return tx.Create(user).Error
	})
	if database.IsUniqueViolation(err) {
		return nil, conflict("Username or email already exists")
	}
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", user.ID, "username", user.Username)
	return &Session{User: user, Pair: pair}, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	errs := s.validate.Struct(in)
	ident := in.identifier()
	if ident == "" {
		errs.Add("identifier", "email or username is required")
	}
	if len(errs) > 0 {
		return nil, errs
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ? OR username = ?", strings.ToLower(ident), ident).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, in.Password) {
		s.log.Warn("failed login", "user_id", user.ID)
		return nil, unauthorized("Invalid credentials")
	}
	if !user.IsActive {
		return nil, unauthorized("Account is deactivated")
	}

	pair, err := s.tokens.IssuePair(&user)
	if err != nil {
		return nil, err
	}
	s.log.Info("user logged in", "user_id", user.ID)
	return &Session{User: &user, Pair: pair}, nil
}

// AccessToken is the refresh response.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Refresh trades a refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AccessToken, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.RefreshToken)
	if err != nil {
		return nil, unauthorized("Invalid or expired refresh token")
	}
	user, err := s.ActiveUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	return &AccessToken{AccessToken: access, TokenType: "Bearer"}, nil
}

// ActiveUser loads a user and fails with ErrUnauthorized when the account is
// missing or deactivated.
func (s *AuthService) ActiveUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, unauthorized("User not found")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, unauthorized("Account is deactivated")
	}
	return &user, nil
}

