// Package blob stores uploaded bytes in an object store and hands back a
// public URL plus the opaque identifier needed to delete them again.
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/cloudvault/internal/ids"
	"go.uber.org/zap"
)

const (
	ProviderS3     = "s3"
	ProviderMinio  = "minio"
	ProviderMemory = "memory"
)

var (
	ErrUnknownProvider   = errors.New("blob: unknown provider")
	ErrMissingBucket     = errors.New("blob: bucket is required")
	ErrMissingEndpoint   = errors.New("blob: endpoint is required")
	ErrMissingExternalID = errors.New("blob: external id is required")
	ErrInvalidType       = errors.New("blob: unsupported resource type")
)

// UploadInput carries one uploaded file.
type UploadInput struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Object describes a stored blob.
type Object struct {
	URL          string
	ExternalID   string
	ResourceType string
	Format       string
}

// Service uploads and deletes blobs. Delete needs the resource type the blob
// was stored under because it is part of the object key.
type Service interface {
	Upload(ctx context.Context, input UploadInput) (Object, error)
	Delete(ctx context.Context, externalID, resourceType string) error
}

// Config selects and configures a driver.
type Config struct {
	Provider      string
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	UseSSL        bool
}

// New builds the driver named by cfg.Provider.
func New(ctx context.Context, cfg Config, idProvider ids.Provider, logger *zap.Logger) (Service, error) {
	if idProvider == nil {
		idProvider = ids.NewUUIDProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderS3:
		store, err := NewS3Store(ctx, cfg, idProvider)
		if err != nil {
			return nil, err
		}
		return store, nil
	case ProviderMinio:
		store, err := NewMinioStore(ctx, cfg, idProvider, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case ProviderMemory:
		logger.Warn("using in-memory blob storage; uploads are lost on restart")
		return NewMemoryStore(cfg.PublicBaseURL, idProvider), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// objectKey places every blob under its resource type, mirroring how the
// external id and type together address an object.
func objectKey(resourceType, externalID string) (string, error) {
	if strings.TrimSpace(externalID) == "" {
		return "", ErrMissingExternalID
	}
	switch resourceType {
	case ResourceImage, ResourceVideo, ResourceRaw:
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, resourceType)
	}
	return resourceType + "/" + externalID, nil
}

func joinURL(base string, segments ...string) string {
	joined := strings.TrimRight(base, "/")
	for _, segment := range segments {
		joined += "/" + strings.Trim(segment, "/")
	}
	return joined
}

// prepare detects the resource and allocates the external id for an upload.
func prepare(input UploadInput, idProvider ids.Provider) (Resource, string, string, error) {
	resource := Detect(input.Data, input.ContentType, input.Filename)
	externalID, err := idProvider.NewID()
	if err != nil {
		return Resource{}, "", "", err
	}
	key, err := objectKey(resource.Type, externalID)
	if err != nil {
		return Resource{}, "", "", err
	}
	return resource, externalID, key, nil
}
