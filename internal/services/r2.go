package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	appconfig "event-marketplace/internal/config"
)

// R2Service implements StorageService for Cloudflare R2
type R2Service struct {
	client   *s3.Client
	uploader *manager.Uploader
	config   appconfig.R2Config
	logger   *slog.Logger
}

// NewR2Service creates a new R2 storage service
func NewR2Service(ctx context.Context, cfg appconfig.R2Config, logger *slog.Logger) (*R2Service, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("R2 credentials not configured")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		} else {
			o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
		}
		o.UsePathStyle = true
	})

	return &R2Service{
		client:   client,
		uploader: manager.NewUploader(client),
		config:   cfg,
		logger:   logger,
	}, nil
}

// Upload uploads a file to R2 and returns the public URL
func (r *R2Service) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error) {
	key = strings.TrimPrefix(key, "/")

	result, err := r.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.config.BucketName),
		Key:           aws.String(key),
		Body:          reader,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		CacheControl:  aws.String("public, max-age=31536000"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	r.logger.Info("uploaded object to R2", "key", key, "location", result.Location)
	return r.GetURL(key), nil
}

// Delete removes a file from R2
func (r *R2Service) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.config.BucketName),
		Key:    aws.String(strings.TrimPrefix(key, "/")),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from R2: %w", err)
	}
	return nil
}

// GetURL returns the public URL for a file
func (r *R2Service) GetURL(key string) string {
	key = strings.TrimPrefix(key, "/")
	if r.config.PublicURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(r.config.PublicURL, "/"), key)
	}
	return fmt.Sprintf("https://pub-%s.r2.dev/%s", r.config.AccountID, key)
}

// Exists checks if a file exists in R2
func (r *R2Service) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.config.BucketName),
		Key:    aws.String(strings.TrimPrefix(key, "/")),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if object exists: %w", err)
	}
	return true, nil
}

// HealthCheck verifies that the bucket is reachable
func (r *R2Service) HealthCheck(ctx context.Context) error {
	_, err := r.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(r.config.BucketName),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("R2 health check failed: %w", err)
	}
	return nil
}
