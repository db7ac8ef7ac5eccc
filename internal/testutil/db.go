// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AllModels is every persisted entity, shared and feature-owned.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.RefreshToken{},
		&models.PasswordReset{},
		&models.Report{},
		&models.Block{},
		&models.Promotion{},
		&models.EmailLog{},
		&models.SystemLog{},
		&models.Ad{},
		&models.Favorite{},
		&models.Company{},
		&models.Conversation{},
		&models.Message{},
		&models.NewsPost{},
		&models.NewsComment{},
		&models.NewsLike{},
	}
}

// NewDB opens a private in-memory SQLite database with every table migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	// Each connection to :memory: is a separate database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(AllModels()...))
	return db
}

// CreateUser inserts a user with the given email and password "password123".
func CreateUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		ID:          uuid.New(),
		Email:       email,
		Password:    string(hash),
		DisplayName: email,
		Role:        models.RoleUser,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// Config returns settings suitable for handler tests.
func Config() *config.Config {
	return &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: time.Hour,
		AuthCookieName:   "access_token",
		CORSOrigins:      "http://localhost:3000",
		PublicURL:        "http://bazaar.test",
	}
}

// Token signs an access token for user with cfg's secret.
func Token(t *testing.T, cfg *config.Config, user *models.User) string {
	t.Helper()
	token, err := identity.SignAccessToken(cfg.JWTSecret, cfg.JWTAccessExpiry, user.ID, user.Email, user.Role)
	require.NoError(t, err)
	return token
}
