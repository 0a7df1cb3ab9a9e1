package activity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/cloudvault/internal/ids"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/svcerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrEmptyAction indicates an entry without a description.
	ErrEmptyAction = errors.New("activity: action is required")
	// ErrMissingUserID indicates a per-user operation without a user identifier.
	ErrMissingUserID = errors.New("activity: user id is required")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
)

const (
	opServiceNew = "activity.service.new"
	opAppend     = "activity.append"
	opList       = "activity.list"
	opClear      = "activity.clear"
)

// Publisher receives every entry after it has been persisted.
type Publisher interface {
	Publish(entry LogEntry)
}

// ServiceConfig describes the dependencies of the activity log.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider ids.Provider
	Publisher  Publisher
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service appends, lists and clears per-user activity entries.
type Service struct {
	db        *gorm.DB
	ids       ids.Provider
	publisher Publisher
	clock     func() time.Time
	logger    *zap.Logger
	reporter  svcerr.Reporter
}

// NewService validates the configuration and constructs the activity log.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, svcerr.New(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, svcerr.New(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:        cfg.Database,
		ids:       cfg.IDProvider,
		publisher: cfg.Publisher,
		clock:     clock,
		logger:    logger,
		reporter:  svcerr.NewReporter("activity", logger),
	}, nil
}

// Append persists an entry and publishes it. An empty userID stores an
// unattributed entry.
func (s *Service) Append(ctx context.Context, userID, action string) (LogEntry, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return LogEntry{}, svcerr.New(opAppend, "empty_action", ErrEmptyAction)
	}
	entryID, err := s.ids.NewID()
	if err != nil {
		return LogEntry{}, svcerr.New(opAppend, "id_generation_failed", err)
	}
	entry := LogEntry{
		ID:     entryID,
		Action: action,
		Time:   s.clock().UTC(),
	}
	if userID != "" {
		owner := userID
		entry.UserID = &owner
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return LogEntry{}, svcerr.New(opAppend, "insert_failed", err)
	}
	if s.publisher != nil {
		s.publisher.Publish(entry)
	}
	return entry, nil
}

// Record appends an entry on a best-effort basis. Failures are logged at warn
// level and dropped so they never change the outcome of the calling request.
// The write outlives cancellation of ctx.
func (s *Service) Record(ctx context.Context, userID, action string) {
	if s == nil {
		return
	}
	if _, err := s.Append(context.WithoutCancel(ctx), userID, action); err != nil {
		s.logger.Warn("activity entry dropped",
			zap.String("user_id", userID),
			zap.String("action", action),
			zap.Error(err))
	}
}

// List returns the entries owned by userID, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]LogEntry, error) {
	if userID == "" {
		return nil, svcerr.New(opList, "missing_user_id", ErrMissingUserID)
	}
	entries := make([]LogEntry, 0)
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("time DESC").
		Order("id DESC").
		Find(&entries).Error; err != nil {
		return nil, s.reporter.Fail(opList, "query_failed", err, zap.String("user_id", userID))
	}
	return entries, nil
}

// Clear deletes every entry owned by userID.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return svcerr.New(opClear, "missing_user_id", ErrMissingUserID)
	}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&LogEntry{}).Error; err != nil {
		return s.reporter.Fail(opClear, "delete_failed", err, zap.String("user_id", userID))
	}
	return nil
}
