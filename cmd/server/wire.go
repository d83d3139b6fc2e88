//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/ilustra/ilustra-server/internal/config"
	"github.com/ilustra/ilustra-server/internal/domain/catalog"
	"github.com/ilustra/ilustra-server/internal/domain/illustration"
	"github.com/ilustra/ilustra-server/internal/domain/imagegen"
	"github.com/ilustra/ilustra-server/internal/domain/iteration"
	"github.com/ilustra/ilustra-server/internal/domain/media"
	"github.com/ilustra/ilustra-server/internal/domain/reference"
	"github.com/ilustra/ilustra-server/internal/infrastructure/cache"
	"github.com/ilustra/ilustra-server/internal/infrastructure/fetch"
	"github.com/ilustra/ilustra-server/internal/infrastructure/logger"
	"github.com/ilustra/ilustra-server/internal/infrastructure/observability"
	"github.com/ilustra/ilustra-server/internal/infrastructure/openai"
	"github.com/ilustra/ilustra-server/internal/interfaces/httpserver"
	"github.com/ilustra/ilustra-server/internal/interfaces/httpserver/handlers"
	"github.com/ilustra/ilustra-server/pkg/telemetry"
)

var mediaSet = wire.NewSet(
	provideStorage,
	fetch.NewFetcher,
	wire.Bind(new(media.Fetcher), new(*fetch.Fetcher)),
	media.NewService,
)

var providerSet = wire.NewSet(
	openai.NewChatClient,
	openai.NewResponsesClient,
	provideStylizer,
	cache.NewEmbeddingCache,
	newCatalog,
	provideSelector,
)

var serviceSet = wire.NewSet(
	newIllustrationService,
	newIterationService,
	newHandlerProvider,
	provideReadiness,
)

// BuildApplication assembles the illustration API with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		observability.Setup,
		provideSanitizer,
		mediaSet,
		providerSet,
		serviceSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	return catalog.Load(cfg.CatalogPath)
}

func newIllustrationService(
	cfg *config.Config,
	mediaService *media.Service,
	selector *reference.Selector,
	chat *openai.ChatClient,
	responses *openai.ResponsesClient,
	stylizer imagegen.Stylizer,
	log zerolog.Logger,
) *illustration.Service {
	return illustration.NewService(cfg, mediaService, selector, chat, responses, stylizer, log)
}

func newIterationService(
	cfg *config.Config,
	mediaService *media.Service,
	responses *openai.ResponsesClient,
	chat *openai.ChatClient,
	sanitizer *telemetry.Sanitizer,
	log zerolog.Logger,
) *iteration.Service {
	return iteration.NewService(cfg, mediaService, responses, chat, chat, sanitizer, log)
}

func newHandlerProvider(
	cfg *config.Config,
	illustrationService *illustration.Service,
	iterationService *iteration.Service,
	mediaService *media.Service,
	cat *catalog.Catalog,
	log zerolog.Logger,
) *handlers.Provider {
	return handlers.NewProvider(cfg, illustrationService, iterationService, mediaService, cat, log)
}
