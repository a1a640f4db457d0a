// Package s3 implements blob.Store with S3 GetObject.
package s3

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/xtxerr/seisfetch/config"
	"github.com/xtxerr/seisfetch/internal/blob"
	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/logging"
	"github.com/xtxerr/seisfetch/internal/validation"
)

// API is the subset of the S3 client used by Store.
// This interface allows for mocking in tests.
type API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config holds S3 store settings.
type Config struct {
	Bucket string

	// Endpoint overrides the service endpoint (MinIO, LocalStack).
	Endpoint string

	// UsePathStyle addresses the bucket in the path instead of the host.
	UsePathStyle bool
}

// Store fetches objects from one bucket.
type Store struct {
	api    API
	cfg    Config
	logger *slog.Logger
}

// New creates a Store over an existing client.
func New(api API, cfg Config) (*Store, error) {
	if api == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.NewMissingField("bucket")
	}
	if err := validation.ValidateBucketName(cfg.Bucket); err != nil {
		return nil, errors.NewInvalidValue("bucket", cfg.Bucket, err.Error())
	}
	return &Store{
		api:    api,
		cfg:    cfg,
		logger: logging.Component("blob.s3"),
	}, nil
}

// NewFromConfig creates a Store with a new client built from awsCfg.
func NewFromConfig(awsCfg aws.Config, cfg Config) (*Store, error) {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return New(client, cfg)
}

// Name returns the backend name.
func (*Store) Name() string {
	return "s3"
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string {
	return s.cfg.Bucket
}

// Fetch implements blob.Store.
func (s *Store) Fetch(ctx context.Context, key, dest string) (int64, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("get s3://%s/%s: %w", s.cfg.Bucket, key, classify(ctx, err))
	}
	defer out.Body.Close()

	n, err := blob.WriteFile(dest, out.Body, config.DefaultFilePerm)
	if err != nil {
		return n, fmt.Errorf("s3://%s/%s: %w", s.cfg.Bucket, key, err)
	}

	if out.ContentLength != nil && *out.ContentLength != n {
		os.Remove(dest)
		return n, fmt.Errorf("s3://%s/%s: short body %d of %d bytes: %w", s.cfg.Bucket, key, n, *out.ContentLength, errors.ErrFetch)
	}

	s.logger.Debug("object fetched", "key", key, "bytes", n)
	return n, nil
}

// classify attaches the category of a GetObject failure.
// Public buckets answer AccessDenied for missing keys when the caller
// may not list the bucket, so both count as not found.
func classify(ctx context.Context, err error) error {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return errors.Mark(err, errors.ErrObjectNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "AccessDenied", "Forbidden":
			return errors.Mark(err, errors.ErrObjectNotFound)
		case "NoSuchBucket":
			return errors.Mark(err, errors.ErrInvalidConfig)
		case "RequestTimeout", "RequestTimeTooSkewed":
			return errors.Mark(err, errors.ErrTimeout)
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Mark(err, errors.ErrTimeout)
	case ctx.Err() != nil:
		return err
	default:
		return errors.Mark(err, errors.ErrFetch)
	}
}

// Verify interface compliance.
var _ blob.Store = (*Store)(nil)
