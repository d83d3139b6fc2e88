package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/ilustra/ilustra-server/internal/config"
	"github.com/ilustra/ilustra-server/internal/domain/media"
)

// LocalStorage keeps objects on the local filesystem as <base>/<bucket>/<key>.
// Used for development without S3.
type LocalStorage struct {
	basePath string
	baseURL  string
	log      zerolog.Logger
}

// NewLocalStorage creates a new local filesystem storage backend.
func NewLocalStorage(cfg *config.Config, log zerolog.Logger) (*LocalStorage, error) {
	logger := log.With().Str("component", "local-storage").Logger()

	basePath := strings.TrimSpace(cfg.LocalStoragePath)
	if basePath == "" {
		return nil, errors.New("LOCAL_STORAGE_PATH is required when STORAGE_BACKEND is local")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory: %w", err)
	}

	storage := &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(strings.TrimSpace(cfg.LocalStorageBaseURL), "/"),
		log:      logger,
	}

	logger.Info().
		Str("path", basePath).
		Str("base_url", storage.baseURL).
		Msg("local storage initialized")

	return storage, nil
}

func (l *LocalStorage) objectPath(bucket, key string) (string, error) {
	clean := filepath.Clean(filepath.Join(l.basePath, bucket, filepath.FromSlash(key)))
	root := filepath.Clean(filepath.Join(l.basePath, bucket)) + string(filepath.Separator)
	if !strings.HasPrefix(clean, root) {
		return "", fmt.Errorf("key escapes bucket: %s", key)
	}
	return clean, nil
}

// Upload stores a file to the local filesystem.
func (l *LocalStorage) Upload(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	fullPath, err := l.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, body)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	l.log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Int64("bytes", written).
		Msg("file uploaded to local storage")
	return nil
}

// PresignGet returns a direct URL; local files need no signature.
// Without LOCAL_STORAGE_BASE_URL it returns a file:// URL.
func (l *LocalStorage) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	fullPath, err := l.objectPath(bucket, key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return "", fmt.Errorf("file not found: %s/%s", bucket, key)
	}
	if l.baseURL != "" {
		return fmt.Sprintf("%s/%s/%s", l.baseURL, bucket, filepath.ToSlash(key)), nil
	}
	return "file://" + filepath.ToSlash(fullPath), nil
}

// Download reads a file from the local filesystem.
func (l *LocalStorage) Download(ctx context.Context, bucket, key string) (io.ReadCloser, string, error) {
	fullPath, err := l.objectPath(bucket, key)
	if err != nil {
		return nil, "", err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("file not found: %s/%s", bucket, key)
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(fullPath); err == nil {
		contentType = mt.String()
	}
	return file, contentType, nil
}

// OwnsURL matches URLs produced by PresignGet for bucket.
func (l *LocalStorage) OwnsURL(bucket, rawURL string) bool {
	if bucket == "" || l.baseURL == "" {
		return false
	}
	prefix := l.baseURL + "/" + bucket + "/"
	return strings.HasPrefix(rawURL, prefix) && len(rawURL) > len(prefix) && !strings.Contains(rawURL[len(prefix):], "..")
}

// Health checks if the storage directory is writable.
func (l *LocalStorage) Health(ctx context.Context) error {
	testFile := filepath.Join(l.basePath, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("storage directory not writable: %w", err)
	}
	_ = os.Remove(testFile)
	return nil
}

var _ media.Storage = (*LocalStorage)(nil)
