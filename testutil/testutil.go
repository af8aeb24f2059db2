// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"io"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"laundry-api/config"
	"laundry-api/models"
)

// NewDB opens a migrated in-memory SQLite database private to t. The pool
// is pinned to one connection so every query sees the same database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

// Logger discards everything
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func CreateUser(t testing.TB, db *gorm.DB, role models.UserRole) *models.User {
	t.Helper()
	id := uuid.NewString()
	u := &models.User{
		ID:           id,
		Name:         string(role) + " " + id[:8],
		Email:        id + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreateShop(t testing.TB, db *gorm.DB, ownerID string, approved bool) *models.Shop {
	t.Helper()
	s := &models.Shop{
		OwnerID:    ownerID,
		Name:       "Laundry " + ownerID[:8],
		Address:    "123 Test Street",
		IsApproved: approved,
	}
	require.NoError(t, db.Create(s).Error)
	return s
}

func CreateService(t testing.TB, db *gorm.DB, shopID, name, price string) *models.Service {
	t.Helper()
	s := &models.Service{
		ShopID: shopID,
		Name:   name,
		Price:  decimal.RequireFromString(price),
	}
	require.NoError(t, db.Create(s).Error)
	return s
}
