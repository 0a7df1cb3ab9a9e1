package texts

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
	// ErrEmptyContent indicates a snippet without content.
	ErrEmptyContent = errors.New("texts: content is required")
	// ErrMissingTextID indicates a delete without a snippet identifier.
	ErrMissingTextID = errors.New("texts: text id is required")
	// ErrMissingUserID indicates an operation without an owner.
	ErrMissingUserID = errors.New("texts: user id is required")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
)

const (
	opServiceNew = "texts.service.new"
	opSave       = "texts.save"
	opList       = "texts.list"
	opDelete     = "texts.delete"
	opDeleteAll  = "texts.delete_all"
)

type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider ids.Provider
	Clock      func() time.Time
	Logger     *zap.Logger
}

type Service struct {
	db       *gorm.DB
	ids      ids.Provider
	clock    func() time.Time
	reporter svcerr.Reporter
}

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
	return &Service{
		db:       cfg.Database,
		ids:      cfg.IDProvider,
		clock:    clock,
		reporter: svcerr.NewReporter("texts", cfg.Logger),
	}, nil
}

// Save stores content for userID. Content is kept verbatim; only an empty
// string is rejected.
func (s *Service) Save(ctx context.Context, userID, content string) (Text, error) {
	if userID == "" {
		return Text{}, svcerr.New(opSave, "missing_user_id", ErrMissingUserID)
	}
	if content == "" {
		return Text{}, svcerr.New(opSave, "empty_content", ErrEmptyContent)
	}
	textID, err := s.ids.NewID()
	if err != nil {
		return Text{}, s.reporter.Fail(opSave, "id_generation_failed", err)
	}
	text := Text{
		ID:        textID,
		UserID:    userID,
		Content:   content,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&text).Error; err != nil {
		return Text{}, s.reporter.Fail(opSave, "insert_failed", err, zap.String("user_id", userID))
	}
	return text, nil
}

// List returns the snippets owned by userID, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Text, error) {
	if userID == "" {
		return nil, svcerr.New(opList, "missing_user_id", ErrMissingUserID)
	}
	texts := make([]Text, 0)
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&texts).Error; err != nil {
		return nil, s.reporter.Fail(opList, "query_failed", err, zap.String("user_id", userID))
	}
	return texts, nil
}

// Delete removes the snippet matching (textID, userID). Deleting a snippet
// that does not exist, or belongs to someone else, is not an error.
func (s *Service) Delete(ctx context.Context, userID, textID string) error {
	if strings.TrimSpace(textID) == "" {
		return svcerr.New(opDelete, "missing_text_id", ErrMissingTextID)
	}
	if userID == "" {
		return svcerr.New(opDelete, "missing_user_id", ErrMissingUserID)
	}
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", textID, userID).
		Delete(&Text{}).Error; err != nil {
		return s.reporter.Fail(opDelete, "delete_failed", err,
			zap.String("user_id", userID),
			zap.String("text_id", textID))
	}
	return nil
}

// DeleteAll removes every snippet owned by userID.
func (s *Service) DeleteAll(ctx context.Context, userID string) error {
	if userID == "" {
		return svcerr.New(opDeleteAll, "missing_user_id", ErrMissingUserID)
	}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&Text{}).Error; err != nil {
		return s.reporter.Fail(opDeleteAll, "delete_failed", err, zap.String("user_id", userID))
	}
	return nil
}
