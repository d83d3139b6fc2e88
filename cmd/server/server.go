package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ilustra/ilustra-server/internal/config"
	"github.com/ilustra/ilustra-server/internal/domain/catalog"
	"github.com/ilustra/ilustra-server/internal/domain/illustration"
	"github.com/ilustra/ilustra-server/internal/domain/imagegen"
	"github.com/ilustra/ilustra-server/internal/domain/iteration"
	"github.com/ilustra/ilustra-server/internal/domain/media"
	"github.com/ilustra/ilustra-server/internal/domain/reference"
	"github.com/ilustra/ilustra-server/internal/infrastructure/cache"
	"github.com/ilustra/ilustra-server/internal/infrastructure/fal"
	"github.com/ilustra/ilustra-server/internal/infrastructure/fetch"
	"github.com/ilustra/ilustra-server/internal/infrastructure/logger"
	"github.com/ilustra/ilustra-server/internal/infrastructure/observability"
	"github.com/ilustra/ilustra-server/internal/infrastructure/openai"
	"github.com/ilustra/ilustra-server/internal/infrastructure/storage"
	"github.com/ilustra/ilustra-server/internal/interfaces/httpserver"
	"github.com/ilustra/ilustra-server/internal/interfaces/httpserver/handlers"
	pkgobs "github.com/ilustra/ilustra-server/pkg/observability"
	"github.com/ilustra/ilustra-server/pkg/telemetry"
)

// @title Ilustra API
// @version 1.0
// @description Turns photos into on-brand illustrations and refines them through chained edits.
// @BasePath /
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetryProvider, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := telemetryProvider.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	storageClient, err := provideStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize storage")
	}

	mediaService, err := media.NewService(cfg, storageClient, fetch.NewFetcher(cfg, log), log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize media service")
	}

	embeddingCache, err := cache.NewEmbeddingCache(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize embedding cache")
	}
	if closer, ok := embeddingCache.(io.Closer); ok {
		defer closer.Close()
	}

	brandCatalog, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load brand catalog")
	}

	chatClient := openai.NewChatClient(cfg, log)
	responsesClient := openai.NewResponsesClient(cfg, log)
	selector := provideSelector(cfg, brandCatalog, chatClient, embeddingCache, mediaService, log)

	illustrationService := illustration.NewService(
		cfg, mediaService, selector, chatClient, responsesClient, provideStylizer(cfg, log), log,
	)
	iterationService := iteration.NewService(
		cfg, mediaService, responsesClient, chatClient, chatClient, provideSanitizer(telemetryProvider), log,
	)

	handlerProvider := handlers.NewProvider(cfg, illustrationService, iterationService, mediaService, brandCatalog, log)
	httpServer, err := httpserver.New(cfg, log, handlerProvider, provideReadiness(mediaService, embeddingCache))
	if err != nil {
		log.Fatal().Err(err).Msg("initialize http server")
	}
	app := NewApplication(httpServer, log)

	log.Info().
		Int("catalog_entries", brandCatalog.Len()).
		Str("storage", cfg.StorageBackend).
		Str("embedding_cache", cfg.EmbeddingCache).
		Bool("caricature_enabled", cfg.CaricatureEnabled()).
		Msg("ilustra-api initialized")

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}

// provideStorage creates the appropriate storage backend based on configuration.
func provideStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (media.Storage, error) {
	if cfg.IsLocalStorage() {
		localStorage, err := storage.NewLocalStorage(cfg, log)
		if err != nil {
			return nil, err
		}
		return localStorage, nil
	}

	s3Storage, err := storage.NewS3Storage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return s3Storage, nil
}

// provideStylizer returns nil when no fal.ai key is configured, which disables caricature mode.
func provideStylizer(cfg *config.Config, log zerolog.Logger) imagegen.Stylizer {
	if !cfg.CaricatureEnabled() {
		log.Warn().Msg("FAL_API_KEY not set, caricature mode disabled")
		return nil
	}
	return fal.NewClient(cfg, log)
}

func provideSelector(
	cfg *config.Config,
	cat *catalog.Catalog,
	embedder *openai.ChatClient,
	embeddingCache cache.EmbeddingCache,
	signer *media.Service,
	log zerolog.Logger,
) *reference.Selector {
	return reference.NewSelector(cat, embedder, embeddingCache, signer, cfg.OpenAIEmbeddingModel, log)
}

// provideReadiness checks storage, plus the embedding cache when it talks to a server.
func provideReadiness(mediaService *media.Service, embeddingCache cache.EmbeddingCache) httpserver.HealthChecker {
	checks := httpserver.HealthCheckers{mediaService}
	if checker, ok := embeddingCache.(httpserver.HealthChecker); ok {
		checks = append(checks, checker)
	}
	return checks
}

func provideSanitizer(provider *pkgobs.Provider) *telemetry.Sanitizer {
	return provider.Sanitizer
}
