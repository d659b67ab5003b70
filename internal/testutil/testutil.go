// Package testutil provides shared helpers for package tests: an in-memory
// database, fixtures, and small assertion helpers.
package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/receiptvault/receiptvault/constants"
	"github.com/receiptvault/receiptvault/internal/apperr"
	"github.com/receiptvault/receiptvault/internal/entity"
)

// SetupTestDB opens a fresh in-memory database with the full schema.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.New().String() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = db.AutoMigrate(
		&entity.User{},
		&entity.Category{},
		&entity.Receipt{},
		&entity.EmailForward{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// CreateTestUser inserts a user and returns it.
func CreateTestUser(t *testing.T, db *gorm.DB) *entity.User {
	t.Helper()
	u := &entity.User{
		ID:    uuid.New().String(),
		Email: uuid.New().String() + "@example.com",
		Name:  "Test User",
	}
	if err := db.WithContext(context.Background()).Create(u).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return u
}

// CreateTestCategory inserts a category for the user.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID, name, irsCategory string) *entity.Category {
	t.Helper()
	c := &entity.Category{
		UserID: userID,
		Name:   name,
	}
	if irsCategory != "" {
		c.IRSCategory = &irsCategory
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create test category: %v", err)
	}
	return c
}

// CreateTestReceipt inserts a receipt with sensible defaults; mutate it via fn.
func CreateTestReceipt(t *testing.T, db *gorm.DB, userID string, fn func(*entity.Receipt)) *entity.Receipt {
	t.Helper()
	r := &entity.Receipt{
		UserID:           userID,
		Merchant:         "Test Merchant",
		Date:             time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Total:            10.00,
		ImageKey:         uuid.New().String() + ".jpg",
		ImageURL:         "/uploads/test.jpg",
		ExtractionStatus: constants.StatusPending,
	}
	if fn != nil {
		fn(r)
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("create test receipt: %v", err)
	}
	return r
}

// AssertNoError fails the test when err is non-nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertAppError fails unless err wraps the expected sentinel.
func AssertAppError(t *testing.T, err error, want *apperr.AppError) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want.Code)
	}
	var got *apperr.AppError
	if !errors.As(err, &got) {
		t.Fatalf("expected AppError %q, got %T: %v", want.Code, err, err)
	}
	if got.Code != want.Code {
		t.Fatalf("error code = %q, want %q", got.Code, want.Code)
	}
}
