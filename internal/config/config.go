package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the illustration service.
type Config struct {
	// Service Configuration
	ServiceName        string        `env:"SERVICE_NAME" envDefault:"ilustra-api"`
	Environment        string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort           int           `env:"PORT" envDefault:"5000"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat          string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ClientDistDir      string        `env:"CLIENT_DIST_DIR" envDefault:"../client/dist"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:5000"`

	// Observability
	EnableTracing bool   `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint  string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	PIILevel      string `env:"PII_LEVEL" envDefault:"hashed"`

	// OpenAI
	OpenAIAPIKey         string        `env:"OPENAI_API_KEY,notEmpty"`
	OpenAIOrg            string        `env:"OPENAI_ORG"`
	OpenAIBaseURL        string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIImageModel     string        `env:"OPENAI_IMAGE_MODEL" envDefault:"gpt-4.1-mini"`
	OpenAIVisionModel    string        `env:"OPENAI_VISION_MODEL" envDefault:"gpt-4.1-mini"`
	OpenAITextModel      string        `env:"OPENAI_TEXT_MODEL" envDefault:"gpt-4.1-mini"`
	OpenAIEmbeddingModel string        `env:"OPENAI_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	OpenAITimeout        time.Duration `env:"OPENAI_TIMEOUT" envDefault:"180s"`
	ImageSize            string        `env:"IMAGE_SIZE" envDefault:"1024x1024"`
	ImageQuality         string        `env:"IMAGE_QUALITY" envDefault:"medium"`
	ImageBackground      string        `env:"IMAGE_BACKGROUND" envDefault:"transparent"`

	// fal.ai
	FalAPIKey       string        `env:"FAL_API_KEY"`
	FalBaseURL      string        `env:"FAL_BASE_URL" envDefault:"https://queue.fal.run"`
	FalModel        string        `env:"FAL_MODEL" envDefault:"fal-ai/flux-kontext-lora"`
	FalLoRAURL      string        `env:"FAL_LORA_URL" envDefault:"https://v3.fal.media/files/lion/4qvmL3bZKmfNlgAMPihHD_adapter_model.safetensors"`
	FalLoRAScale    float64       `env:"FAL_LORA_SCALE" envDefault:"1"`
	FalPollInterval time.Duration `env:"FAL_POLL_INTERVAL" envDefault:"1s"`
	FalTimeout      time.Duration `env:"FAL_TIMEOUT" envDefault:"180s"`

	// Storage Backend Selection
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"s3"` // Options: "s3" or "local"

	// Local Storage Configuration
	LocalStoragePath    string `env:"LOCAL_STORAGE_PATH"`
	LocalStorageBaseURL string `env:"LOCAL_STORAGE_BASE_URL"`

	// S3 Storage Configuration
	AWSRegion        string        `env:"AWS_REGION" envDefault:"eu-west-1"`
	S3Endpoint       string        `env:"S3_ENDPOINT"`
	S3PublicEndpoint string        `env:"S3_PUBLIC_ENDPOINT"`
	S3AccessKeyID    string        `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey      string        `env:"S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle   bool          `env:"S3_USE_PATH_STYLE" envDefault:"false"`
	S3PresignTTL     time.Duration `env:"S3_PRESIGN_TTL" envDefault:"1h"`
	S3BucketUploads  string        `env:"S3_BUCKET_UPLOADS"`
	S3BucketOutputs  string        `env:"S3_BUCKET_OUTPUTS"`
	S3BucketCatalog  string        `env:"S3_BUCKET_CATALOG"`

	// Illustration pipeline
	MaxUploadBytes       int64         `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
	RemoteFetchTimeout   time.Duration `env:"REMOTE_FETCH_TIMEOUT" envDefault:"30s"`
	ReferenceTopK        int           `env:"REFERENCE_TOP_K" envDefault:"3"`
	DescriptionMaxChars  int           `env:"DESCRIPTION_MAX_CHARS" envDefault:"1000"`
	ChatMaxChars         int           `env:"CHAT_MAX_CHARS" envDefault:"250"`
	RewriteInputMaxChars int           `env:"REWRITE_INPUT_MAX_CHARS" envDefault:"200"`
	CatalogPath          string        `env:"CATALOG_PATH"`

	// Catalog embedding cache
	EmbeddingCache     string        `env:"EMBEDDING_CACHE" envDefault:"noop"` // Options: "noop", "memory", "redis"
	EmbeddingCacheSize int           `env:"EMBEDDING_CACHE_SIZE" envDefault:"512"`
	EmbeddingCacheTTL  time.Duration `env:"EMBEDDING_CACHE_TTL" envDefault:"24h"`
	RedisURL           string        `env:"REDIS_URL"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.OpenAIAPIKey = strings.TrimSpace(c.OpenAIAPIKey)
	c.FalAPIKey = strings.TrimSpace(c.FalAPIKey)
	c.S3AccessKeyID = strings.TrimSpace(c.S3AccessKeyID)
	c.S3SecretKey = strings.TrimSpace(c.S3SecretKey)
	c.S3Endpoint = strings.TrimSpace(c.S3Endpoint)
	c.S3PublicEndpoint = strings.TrimSpace(c.S3PublicEndpoint)
	c.S3BucketUploads = strings.TrimSpace(c.S3BucketUploads)
	c.S3BucketOutputs = strings.TrimSpace(c.S3BucketOutputs)
	c.S3BucketCatalog = strings.TrimSpace(c.S3BucketCatalog)

	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 20 * 1024 * 1024
	}
	if c.ReferenceTopK <= 0 {
		c.ReferenceTopK = 3
	}
	if c.ChatMaxChars <= 0 {
		c.ChatMaxChars = 250
	}
	if c.RewriteInputMaxChars <= 0 {
		c.RewriteInputMaxChars = 200
	}
	if c.DescriptionMaxChars <= 0 {
		c.DescriptionMaxChars = 1000
	}
	if c.S3BucketOutputs == "" {
		return fmt.Errorf("S3_BUCKET_OUTPUTS is required")
	}
	if c.S3BucketUploads == "" {
		c.S3BucketUploads = c.S3BucketOutputs
	}
	if c.S3BucketCatalog == "" {
		c.S3BucketCatalog = c.S3BucketOutputs
	}
	switch c.EmbeddingCache {
	case "", "noop", "memory":
	case "redis":
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("REDIS_URL is required when EMBEDDING_CACHE is redis")
		}
	default:
		return fmt.Errorf("unknown EMBEDDING_CACHE %q", c.EmbeddingCache)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsLocalStorage returns true if local storage backend is configured.
func (c *Config) IsLocalStorage() bool {
	return strings.ToLower(strings.TrimSpace(c.StorageBackend)) == "local"
}

// CaricatureEnabled reports whether the fal.ai backed caricature mode can run.
func (c *Config) CaricatureEnabled() bool {
	return c.FalAPIKey != ""
}
