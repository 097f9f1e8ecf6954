// Package testutil provides isolated databases and fixtures for tests.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/database"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// DefaultPassword satisfies the password policy.
const DefaultPassword = "Passw0rdX"

// NewDB opens a private in-memory sqlite database with the schema migrated.
// Each call gets its own database, closed when the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on",
		LogLevel: "silent",
	}
	db, err := database.Open(cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CreateUser inserts an active user with DefaultPassword.
func CreateUser(t testing.TB, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(DefaultPassword)
	require.NoError(t, err)
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateQuestion inserts a question directly, bypassing the service.
func CreateQuestion(t testing.TB, db *gorm.DB, author *models.User, title string) *models.Question {
	t.Helper()
	q := &models.Question{
		Title:    title,
		Content:  "<p>" + title + "</p>",
		Slug:     uuid.NewString(),
		UserID:   author.ID,
		IsActive: true,
	}
	require.NoError(t, db.Create(q).Error)
	return q
}

// CreateAnswer inserts an answer directly and bumps the question's counter.
func CreateAnswer(t testing.TB, db *gorm.DB, author *models.User, q *models.Question, content string) *models.Answer {
	t.Helper()
	a := &models.Answer{Content: content, QuestionID: q.ID, UserID: author.ID}
	require.NoError(t, db.Create(a).Error)
	require.NoError(t, db.Model(&models.Question{}).Where("id = ?", q.ID).
		UpdateColumn("answer_count", gorm.Expr("answer_count + 1")).Error)
	return a
}

// Reload fetches a fresh copy of a user.
func Reload(t testing.TB, db *gorm.DB, u *models.User) *models.User {
	t.Helper()
	var fresh models.User
	require.NoError(t, db.First(&fresh, u.ID).Error)
	return &fresh
}
