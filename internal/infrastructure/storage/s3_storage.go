package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/ilustra/ilustra-server/internal/config"
	"github.com/ilustra/ilustra-server/internal/domain/media"
)

// S3Storage handles uploads, downloads and presigning against S3-compatible storage.
type S3Storage struct {
	client    *s3.Client
	presigner *s3.PresignClient
	log       zerolog.Logger
	buckets   []string
}

func NewS3Storage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*S3Storage, error) {
	logger := log.With().Str("component", "s3-storage").Logger()

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	// Static keys are optional; without them the default chain (env, profile, IAM role) applies.
	if cfg.S3AccessKeyID != "" && cfg.S3SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretKey, ""),
		))
	}
	if cfg.S3Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.S3Endpoint,
				PartitionID:       "aws",
				SigningRegion:     cfg.AWSRegion,
				HostnameImmutable: cfg.S3UsePathStyle,
			}, nil
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	storage := &S3Storage{
		client:    client,
		presigner: s3.NewPresignClient(client),
		log:       logger,
	}
	for _, raw := range []string{cfg.S3BucketUploads, cfg.S3BucketOutputs, cfg.S3BucketCatalog} {
		if loc, err := media.ParseLocation(raw); err == nil {
			storage.buckets = appendUnique(storage.buckets, loc.Bucket)
		}
	}

	logger.Info().Strs("buckets", storage.buckets).Str("region", cfg.AWSRegion).Msg("s3 storage initialized")
	return storage, nil
}

func (s *S3Storage) Upload(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *S3Storage) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}

func (s *S3Storage) Download(ctx context.Context, bucket, key string) (io.ReadCloser, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	return out.Body, aws.ToString(out.ContentType), nil
}

// OwnsURL accepts virtual-hosted (bucket.host/key) and path-style (host/bucket/key) URLs.
func (s *S3Storage) OwnsURL(bucket, rawURL string) bool {
	return ownsS3URL(bucket, rawURL)
}

func ownsS3URL(bucket, rawURL string) bool {
	if bucket == "" {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if strings.HasPrefix(host, strings.ToLower(bucket)+".") {
		return strings.TrimPrefix(u.Path, "/") != ""
	}
	first, rest, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	return first == bucket && rest != ""
}

// Health performs a HeadBucket request on every configured bucket.
func (s *S3Storage) Health(ctx context.Context) error {
	var errs []error
	for _, bucket := range s.buckets {
		if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
			errs = append(errs, fmt.Errorf("bucket %s: %w", bucket, err))
		}
	}
	return errors.Join(errs...)
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

var _ media.Storage = (*S3Storage)(nil)
