package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/cloudvault/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationNormalizeUserEmails = "2026-10-01_normalize_user_emails"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB, *zap.Logger) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNormalizeUserEmails, apply: normalizeUserEmails},
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db, logger); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		logger.Info("database migration applied", zap.String("migration", migration.name))
	}
	return nil
}

// normalizeUserEmails folds addresses of accounts imported from the legacy
// user store, which kept emails exactly as typed. Rows whose folded address
// already belongs to another account are left untouched and reported, since
// merging accounts needs an operator decision.
func normalizeUserEmails(db *gorm.DB, logger *zap.Logger) error {
	var legacy []users.User
	if err := db.Where("email <> lower(trim(email))").Order("created_at ASC").Find(&legacy).Error; err != nil {
		return err
	}
	for _, user := range legacy {
		normalized := users.NormalizeEmail(user.Email)
		var taken int64
		if err := db.Model(&users.User{}).
			Where("email = ? AND id <> ?", normalized, user.ID).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			logger.Warn("legacy email left unnormalized: address already registered",
				zap.String("user_id", user.ID),
				zap.String("email", normalized))
			continue
		}
		if err := db.Model(&users.User{}).Where("id = ?", user.ID).Update("email", normalized).Error; err != nil {
			return err
		}
	}
	return nil
}
