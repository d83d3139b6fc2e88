package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/ilustra/ilustra-server/internal/config"
	"github.com/ilustra/ilustra-server/internal/infrastructure/metrics"
	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
	"github.com/ilustra/ilustra-server/utils/mediaid"
)

var allowedMIMEs = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// Storage defines blob storage operations.
type Storage interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	Download(ctx context.Context, bucket, key string) (io.ReadCloser, string, error)
	// OwnsURL reports whether rawURL addresses an object in bucket.
	OwnsURL(bucket, rawURL string) bool
	Health(ctx context.Context) error
}

// Fetcher downloads remote content up to maxBytes.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, maxBytes int64) ([]byte, string, error)
}

// Service stores uploads and generated images and hands out signed URLs.
type Service struct {
	cfg     *config.Config
	storage Storage
	fetcher Fetcher
	log     zerolog.Logger

	uploads Location
	outputs Location
	catalog Location
}

func NewService(cfg *config.Config, storage Storage, fetcher Fetcher, log zerolog.Logger) (*Service, error) {
	uploads, err := ParseLocation(cfg.S3BucketUploads)
	if err != nil {
		return nil, fmt.Errorf("S3_BUCKET_UPLOADS: %w", err)
	}
	outputs, err := ParseLocation(cfg.S3BucketOutputs)
	if err != nil {
		return nil, fmt.Errorf("S3_BUCKET_OUTPUTS: %w", err)
	}
	catalog, err := ParseLocation(cfg.S3BucketCatalog)
	if err != nil {
		return nil, fmt.Errorf("S3_BUCKET_CATALOG: %w", err)
	}
	return &Service{
		cfg:     cfg,
		storage: storage,
		fetcher: fetcher,
		log:     log.With().Str("component", "media-service").Logger(),
		uploads: uploads,
		outputs: outputs,
		catalog: catalog,
	}, nil
}

// DetectImage sniffs data and returns its MIME type and file extension.
// Only formats the image models accept are allowed.
func DetectImage(data []byte, maxBytes int64) (string, string, error) {
	if len(data) == 0 {
		return "", "", apperrors.Validation("image is empty")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", "", apperrors.Validation("image exceeds max size of %d bytes", maxBytes)
	}
	mimeType := mimetype.Detect(data).String()
	ext, ok := allowedMIMEs[mimeType]
	if !ok {
		return "", "", apperrors.Validation("unsupported image type %s", mimeType)
	}
	return mimeType, ext, nil
}

// DataURL encodes data as a base64 data URL.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// StoreUpload archives an original photo in the uploads location.
func (s *Service) StoreUpload(ctx context.Context, data []byte) (*Object, error) {
	return s.store(ctx, s.uploads, data)
}

// StoreOutput persists a generated image in the outputs location.
func (s *Service) StoreOutput(ctx context.Context, data []byte) (*Object, error) {
	obj, err := s.store(ctx, s.outputs, data)
	if err != nil && apperrors.IsValidation(err) {
		// A bad image from a provider is not the client's fault.
		return nil, apperrors.Upstream("generated image rejected", err)
	}
	return obj, err
}

func (s *Service) store(ctx context.Context, loc Location, data []byte) (*Object, error) {
	mimeType, ext, err := DetectImage(data, s.cfg.MaxUploadBytes)
	if err != nil {
		return nil, err
	}

	key := loc.Key(mediaid.ObjectName(ext))
	start := time.Now()
	err = s.storage.Upload(ctx, loc.Bucket, key, bytes.NewReader(data), int64(len(data)), mimeType)
	metrics.RecordStorageOperation("upload", err, time.Since(start).Seconds())
	if err != nil {
		return nil, apperrors.Internal("store image", err)
	}

	s.log.Debug().
		Str("bucket", loc.Bucket).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("image stored")

	return &Object{
		Bucket:   loc.Bucket,
		Key:      key,
		MimeType: mimeType,
		Bytes:    int64(len(data)),
	}, nil
}

// Sign returns a time-limited URL for a stored object.
func (s *Service) Sign(ctx context.Context, obj *Object) (string, error) {
	return s.sign(ctx, obj.Bucket, obj.Key)
}

// SignCatalog returns a time-limited URL for a brand catalog asset.
func (s *Service) SignCatalog(ctx context.Context, storageKey string) (string, error) {
	return s.sign(ctx, s.catalog.Bucket, s.catalog.Key(storageKey))
}

func (s *Service) sign(ctx context.Context, bucket, key string) (string, error) {
	start := time.Now()
	raw, err := s.storage.PresignGet(ctx, bucket, key, s.cfg.S3PresignTTL)
	metrics.RecordStorageOperation("presign", err, time.Since(start).Seconds())
	if err != nil {
		return "", apperrors.Internal("sign url", err)
	}
	return s.externalizeURL(raw), nil
}

// IsOutputURL reports whether rawURL points into the outputs bucket.
func (s *Service) IsOutputURL(rawURL string) bool {
	if strings.TrimSpace(rawURL) == "" {
		return false
	}
	if s.storage.OwnsURL(s.outputs.Bucket, rawURL) {
		return true
	}
	internal := s.internalizeURL(rawURL)
	return internal != rawURL && s.storage.OwnsURL(s.outputs.Bucket, internal)
}

// FetchOutput downloads a previously generated image by its signed URL.
func (s *Service) FetchOutput(ctx context.Context, rawURL string) ([]byte, string, error) {
	if !s.IsOutputURL(rawURL) {
		return nil, "", apperrors.Validation("url does not reference the outputs bucket")
	}
	return s.Fetch(ctx, rawURL)
}

// Fetch downloads a remote image, bounded by the upload size limit.
func (s *Service) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	start := time.Now()
	data, contentType, err := s.fetcher.Fetch(ctx, rawURL, s.cfg.MaxUploadBytes)
	metrics.RecordStorageOperation("fetch", err, time.Since(start).Seconds())
	if err != nil {
		return nil, "", apperrors.Upstream("fetch image", err)
	}
	if contentType == "" || contentType == "application/octet-stream" || contentType == "binary/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}
	return data, contentType, nil
}

// Health checks the storage backend.
func (s *Service) Health(ctx context.Context) error {
	return s.storage.Health(ctx)
}

func (s *Service) externalizeURL(raw string) string {
	publicEndpoint := strings.TrimSpace(s.cfg.S3PublicEndpoint)
	if publicEndpoint == "" || strings.TrimSpace(raw) == "" {
		return raw
	}
	target, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	external, err := url.Parse(publicEndpoint)
	if err != nil || external.Scheme == "" || external.Host == "" {
		return raw
	}
	target.Scheme = external.Scheme
	target.Host = external.Host
	if path := strings.TrimSuffix(external.Path, "/"); path != "" {
		target.Path = path + "/" + strings.TrimPrefix(target.Path, "/")
	}
	return target.String()
}

// internalizeURL reverses externalizeURL so ownership checks see the storage endpoint form.
func (s *Service) internalizeURL(raw string) string {
	publicEndpoint := strings.TrimSpace(s.cfg.S3PublicEndpoint)
	internalEndpoint := strings.TrimSpace(s.cfg.S3Endpoint)
	if publicEndpoint == "" || internalEndpoint == "" {
		return raw
	}
	target, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	external, err := url.Parse(publicEndpoint)
	if err != nil || target.Host != external.Host {
		return raw
	}
	internal, err := url.Parse(internalEndpoint)
	if err != nil || internal.Host == "" {
		return raw
	}
	target.Scheme = internal.Scheme
	target.Host = internal.Host
	if path := strings.TrimSuffix(external.Path, "/"); path != "" {
		target.Path = "/" + strings.TrimPrefix(strings.TrimPrefix(target.Path, path), "/")
	}
	return target.String()
}
