package files

import (
	"context"
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/cloudvault/internal/blob"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/ids"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/svcerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNoFile indicates an upload request without a file payload.
	ErrNoFile = errors.New("files: no file received")
	// ErrFileNotFound indicates the caller owns no file with the external id.
	ErrFileNotFound = errors.New("files: file not found")
	// ErrMissingUserID indicates an operation without an owner.
	ErrMissingUserID = errors.New("files: user id is required")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingBlobs      = errors.New("blob service is required")
	errMissingIDProvider = errors.New("id provider is required")
)

const (
	opServiceNew = "files.service.new"
	opUpload     = "files.upload"
	opList       = "files.list"
	opDelete     = "files.delete"
	opDeleteAll  = "files.delete_all"
)

type ServiceConfig struct {
	Database   *gorm.DB
	Blobs      blob.Service
	IDProvider ids.Provider
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service indexes uploads and keeps the index and the blob service in step.
type Service struct {
	db       *gorm.DB
	blobs    blob.Service
	ids      ids.Provider
	clock    func() time.Time
	reporter svcerr.Reporter
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, svcerr.New(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.Blobs == nil {
		return nil, svcerr.New(opServiceNew, "missing_blob_service", errMissingBlobs)
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
		blobs:    cfg.Blobs,
		ids:      cfg.IDProvider,
		clock:    clock,
		reporter: svcerr.NewReporter("files", cfg.Logger),
	}, nil
}

// UploadRequest is one file received from a client.
type UploadRequest struct {
	UserID      string
	Filename    string
	ContentType string
	// Path overrides Filename as the display path when non-empty.
	Path string
	Data []byte
}

// EffectivePath is the path recorded for the upload.
func (r UploadRequest) EffectivePath() string {
	if r.Path != "" {
		return r.Path
	}
	return r.Filename
}

// Upload stores the bytes in the blob service and indexes the result.
// When indexing fails after the blob was stored, the blob is left in place.
func (s *Service) Upload(ctx context.Context, request UploadRequest) (File, error) {
	if request.UserID == "" {
		return File{}, svcerr.New(opUpload, "missing_user_id", ErrMissingUserID)
	}
	if request.Data == nil && request.Filename == "" {
		return File{}, svcerr.New(opUpload, "no_file", ErrNoFile)
	}

	object, err := s.blobs.Upload(ctx, blob.UploadInput{
		Data:        request.Data,
		Filename:    request.Filename,
		ContentType: request.ContentType,
	})
	if err != nil {
		return File{}, s.reporter.Fail(opUpload, "blob_upload_failed", err, zap.String("user_id", request.UserID))
	}

	fileID, err := s.ids.NewID()
	if err != nil {
		return File{}, s.reporter.Fail(opUpload, "id_generation_failed", err)
	}
	file := File{
		ID:         fileID,
		UserID:     request.UserID,
		URL:        object.URL,
		ExternalID: object.ExternalID,
		Type:       object.ResourceType,
		Format:     object.Format,
		Path:       request.EffectivePath(),
		SizeBytes:  int64(len(request.Data)),
		CreatedAt:  s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&file).Error; err != nil {
		return File{}, s.reporter.Fail(opUpload, "insert_failed", err,
			zap.String("user_id", request.UserID),
			zap.String("external_id", object.ExternalID))
	}
	return file, nil
}

// List returns the files owned by userID in upload order.
func (s *Service) List(ctx context.Context, userID string) ([]File, error) {
	if userID == "" {
		return nil, svcerr.New(opList, "missing_user_id", ErrMissingUserID)
	}
	files := make([]File, 0)
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&files).Error; err != nil {
		return nil, s.reporter.Fail(opList, "query_failed", err, zap.String("user_id", userID))
	}
	return files, nil
}

// Delete removes the caller's file identified by externalID from the blob
// service and then from the index. There is no compensation: if the index
// delete fails after the blob is gone, the record stays behind. Cancelling
// ctx does not interrupt the two steps.
func (s *Service) Delete(ctx context.Context, userID, externalID string) (File, error) {
	if userID == "" {
		return File{}, svcerr.New(opDelete, "missing_user_id", ErrMissingUserID)
	}
	ctx = context.WithoutCancel(ctx)
	if externalID == "" {
		return File{}, svcerr.New(opDelete, "not_found", ErrFileNotFound)
	}

	var file File
	err := s.db.WithContext(ctx).
		Where("external_id = ? AND user_id = ?", externalID, userID).
		Take(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return File{}, svcerr.New(opDelete, "not_found", ErrFileNotFound)
	}
	if err != nil {
		return File{}, s.reporter.Fail(opDelete, "lookup_failed", err, zap.String("user_id", userID))
	}

	if err := s.blobs.Delete(ctx, file.ExternalID, file.Type); err != nil {
		return File{}, s.reporter.Fail(opDelete, "blob_delete_failed", err,
			zap.String("user_id", userID),
			zap.String("external_id", file.ExternalID))
	}
	if err := s.db.WithContext(ctx).Where("id = ?", file.ID).Delete(&File{}).Error; err != nil {
		return File{}, s.reporter.Fail(opDelete, "record_delete_failed", err,
			zap.String("user_id", userID),
			zap.String("external_id", file.ExternalID))
	}
	return file, nil
}

// DeleteAll removes every index record owned by userID without touching blobs.
func (s *Service) DeleteAll(ctx context.Context, userID string) error {
	if userID == "" {
		return svcerr.New(opDeleteAll, "missing_user_id", ErrMissingUserID)
	}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&File{}).Error; err != nil {
		return s.reporter.Fail(opDeleteAll, "delete_failed", err, zap.String("user_id", userID))
	}
	return nil
}
