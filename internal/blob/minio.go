package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/MarcoPoloResearchLab/cloudvault/internal/ids"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// MinioStore keeps blobs in a MinIO bucket.
type MinioStore struct {
	client     minioAPI
	bucket     string
	publicBase string
	ids        ids.Provider
}

// NewMinioStore connects to the MinIO endpoint and creates the bucket if needed.
func NewMinioStore(ctx context.Context, cfg Config, idProvider ids.Provider, logger *zap.Logger) (*MinioStore, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, ErrMissingBucket
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("blob: minio client: %w", err)
	}

	publicBase := strings.TrimSpace(cfg.PublicBaseURL)
	if publicBase == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicBase = joinURL(scheme+"://"+endpoint, bucket)
	}

	store := newMinioStore(client, bucket, publicBase, idProvider)
	if err := store.ensureBucket(ctx, cfg.Region, logger); err != nil {
		return nil, err
	}
	return store, nil
}

func newMinioStore(client minioAPI, bucket, publicBase string, idProvider ids.Provider) *MinioStore {
	return &MinioStore{
		client:     client,
		bucket:     bucket,
		publicBase: publicBase,
		ids:        idProvider,
	}
}

func (s *MinioStore) ensureBucket(ctx context.Context, region string, logger *zap.Logger) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("blob: check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("blob: create bucket %s: %w", s.bucket, err)
	}
	if logger != nil {
		logger.Info("blob bucket created", zap.String("bucket", s.bucket))
	}
	return nil
}

func (s *MinioStore) Upload(ctx context.Context, input UploadInput) (Object, error) {
	resource, externalID, key, err := prepare(input, s.ids)
	if err != nil {
		return Object{}, err
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(input.Data), int64(len(input.Data)), minio.PutObjectOptions{
		ContentType: resource.ContentType,
	})
	if err != nil {
		return Object{}, fmt.Errorf("blob: put object %s: %w", key, err)
	}
	return Object{
		URL:          joinURL(s.publicBase, key),
		ExternalID:   externalID,
		ResourceType: resource.Type,
		Format:       resource.Format,
	}, nil
}

func (s *MinioStore) Delete(ctx context.Context, externalID, resourceType string) error {
	key, err := objectKey(resourceType, externalID)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("blob: remove object %s: %w", key, err)
	}
	return nil
}
