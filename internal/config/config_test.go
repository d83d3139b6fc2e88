package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", " sk-test ")
	t.Setenv("S3_BUCKET_OUTPUTS", "s3://ilustra-outputs/generated")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, ":5000", cfg.Addr())
	assert.Equal(t, 3, cfg.ReferenceTopK)
	assert.Equal(t, 250, cfg.ChatMaxChars)
	assert.Equal(t, 200, cfg.RewriteInputMaxChars)
	assert.Equal(t, time.Hour, cfg.S3PresignTTL)
	assert.Equal(t, "s3://ilustra-outputs/generated", cfg.S3BucketUploads)
	assert.Equal(t, "s3://ilustra-outputs/generated", cfg.S3BucketCatalog)
	assert.False(t, cfg.IsLocalStorage())
	assert.False(t, cfg.CaricatureEnabled())
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("S3_BUCKET_OUTPUTS", "s3://bucket")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env config")
}

func TestLoad_MissingOutputsBucket(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("S3_BUCKET_OUTPUTS", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET_OUTPUTS")
}

func TestLoad_EmbeddingCache(t *testing.T) {
	tests := []struct {
		name    string
		cache   string
		redis   string
		wantErr bool
	}{
		{"noop", "noop", "", false},
		{"memory", "memory", "", false},
		{"redis with url", "redis", "redis://localhost:6379/0", false},
		{"redis without url", "redis", "", true},
		{"unknown", "memcached", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv("EMBEDDING_CACHE", tt.cache)
			t.Setenv("REDIS_URL", tt.redis)

			_, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoad_CORSOrigins(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("STORAGE_BACKEND", "LOCAL")
	t.Setenv("FAL_API_KEY", "fal-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.IsLocalStorage())
	assert.True(t, cfg.CaricatureEnabled())
}
