package database

import (
	"path/filepath"
	"testing"

	"github.com/MarcoPoloResearchLab/cloudvault/internal/users"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func TestApplyMigrationsNormalizesUserEmails(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&users.User{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	legacy := users.User{
		ID:           "user-1",
		Email:        " Legacy@Example.COM ",
		PasswordHash: "hash",
	}
	if err := database.Create(&legacy).Error; err != nil {
		testContext.Fatalf("failed to insert user: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored users.User
	if err := database.Where("id = ?", legacy.ID).Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload user: %v", err)
	}
	if stored.Email != "legacy@example.com" {
		testContext.Fatalf("expected normalized email, got %q", stored.Email)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationNormalizeUserEmails).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("expected second run to be a no-op: %v", err)
	}
	var count int64
	if err := database.Model(&migrationRecord{}).Count(&count).Error; err != nil {
		testContext.Fatalf("failed to count migrations: %v", err)
	}
	if count != 1 {
		testContext.Fatalf("expected a single migration record, got %d", count)
	}
}

func TestApplyMigrationsSkipsCollidingLegacyEmails(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "collision.db")
	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&users.User{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	existing := users.User{ID: "user-1", Email: "dup@example.com", PasswordHash: "hash"}
	legacy := users.User{ID: "user-2", Email: "Dup@Example.com", PasswordHash: "hash"}
	other := users.User{ID: "user-3", Email: "Other@Example.com", PasswordHash: "hash"}
	for _, user := range []users.User{existing, legacy, other} {
		if err := database.Create(&user).Error; err != nil {
			testContext.Fatalf("failed to insert user %s: %v", user.ID, err)
		}
	}

	core, logs := observer.New(zapcore.WarnLevel)
	if err := applyMigrations(database, zap.New(core)); err != nil {
		testContext.Fatalf("expected colliding rows not to fail startup: %v", err)
	}

	var stored users.User
	if err := database.Where("id = ?", legacy.ID).Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload user: %v", err)
	}
	if stored.Email != legacy.Email {
		testContext.Fatalf("expected colliding email to stay %q, got %q", legacy.Email, stored.Email)
	}
	if err := database.Where("id = ?", other.ID).Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload user: %v", err)
	}
	if stored.Email != "other@example.com" {
		testContext.Fatalf("expected non-colliding email to be normalized, got %q", stored.Email)
	}
	if logs.FilterMessageSnippet("legacy email left unnormalized").Len() != 1 {
		testContext.Fatalf("expected one collision warning, got %v", logs.All())
	}
}
