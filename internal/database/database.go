package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/cloudvault/internal/activity"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/files"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/texts"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/users"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the database named by url and brings the schema up to date.
// A postgres:// or postgresql:// url selects PostgreSQL; anything else is a
// SQLite path or DSN.
func Open(url string, logger *zap.Logger) (*gorm.DB, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	driver := DriverFor(url)
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(url)
	default:
		dialector = sqlite.Open(url)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(
		&users.User{},
		&files.File{},
		&texts.Text{},
		&activity.LogEntry{},
		&migrationRecord{},
	); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("driver", driver))
	}

	return db, nil
}

// DriverFor reports which driver Open selects for url.
func DriverFor(url string) string {
	lowered := strings.ToLower(strings.TrimSpace(url))
	if strings.HasPrefix(lowered, "postgres://") || strings.HasPrefix(lowered, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}
