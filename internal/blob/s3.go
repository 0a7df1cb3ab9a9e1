package blob

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/cloudvault/internal/ids"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultS3Region = "us-east-1"

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store keeps blobs in an S3 bucket (or any S3-compatible endpoint).
type S3Store struct {
	client     s3API
	bucket     string
	publicBase string
	ids        ids.Provider
}

// NewS3Store builds an S3 client from cfg. Static credentials are used when an
// access key is configured; otherwise the default AWS credential chain applies.
func NewS3Store(ctx context.Context, cfg Config, idProvider ids.Provider) (*S3Store, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, ErrMissingBucket
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultS3Region
	}

	options := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		options = append(options, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("blob: load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Store(client, bucket, s3PublicBase(cfg.PublicBaseURL, endpoint, bucket, region), idProvider), nil
}

func newS3Store(client s3API, bucket, publicBase string, idProvider ids.Provider) *S3Store {
	return &S3Store{
		client:     client,
		bucket:     bucket,
		publicBase: publicBase,
		ids:        idProvider,
	}
}

func s3PublicBase(configured, endpoint, bucket, region string) string {
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured
	}
	if endpoint != "" {
		return joinURL(endpoint, bucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}

func (s *S3Store) Upload(ctx context.Context, input UploadInput) (Object, error) {
	resource, externalID, key, err := prepare(input, s.ids)
	if err != nil {
		return Object{}, err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(input.Data),
		ContentLength: aws.Int64(int64(len(input.Data))),
		ContentType:   aws.String(resource.ContentType),
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

func (s *S3Store) Delete(ctx context.Context, externalID, resourceType string) error {
	key, err := objectKey(resourceType, externalID)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("blob: delete object %s: %w", key, err)
	}
	return nil
}
