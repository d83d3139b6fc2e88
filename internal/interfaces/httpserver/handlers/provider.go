package handlers

import (
	"github.com/rs/zerolog"

	"github.com/ilustra/ilustra-server/internal/config"
	"github.com/ilustra/ilustra-server/internal/domain/catalog"
)

// Provider wires HTTP handlers.
type Provider struct {
	Illustration *IllustrationHandler
	Iteration    *IterationHandler
	Download     *DownloadHandler
	Catalog      *CatalogHandler
}

func NewProvider(
	cfg *config.Config,
	generator Generator,
	iterator Iterator,
	outputs OutputFetcher,
	cat *catalog.Catalog,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Illustration: NewIllustrationHandler(cfg, generator, log),
		Iteration:    NewIterationHandler(iterator, log),
		Download:     NewDownloadHandler(outputs, log),
		Catalog:      NewCatalogHandler(cat),
	}
}
