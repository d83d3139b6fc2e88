// Package reference picks the brand-kit entries closest to a description.
package reference

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ilustra/ilustra-server/internal/domain/catalog"
	"github.com/ilustra/ilustra-server/internal/infrastructure/cache"
	"github.com/ilustra/ilustra-server/internal/infrastructure/metrics"
	"github.com/ilustra/ilustra-server/internal/infrastructure/observability"
	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
)

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Signer produces a readable URL for a catalog storage key.
type Signer interface {
	SignCatalog(ctx context.Context, storageKey string) (string, error)
}

// Match is a catalog entry with its similarity to the description.
type Match struct {
	Entry catalog.Entry
	Score float64
}

// Selector ranks catalog entries by embedding similarity.
type Selector struct {
	catalog  *catalog.Catalog
	embedder Embedder
	cache    cache.EmbeddingCache
	signer   Signer
	model    string
	group    singleflight.Group
	log      zerolog.Logger
}

// NewSelector creates a selector. model namespaces cache keys so vectors
// from different embedding models never mix. signer may be nil.
func NewSelector(cat *catalog.Catalog, embedder Embedder, embeddingCache cache.EmbeddingCache, signer Signer, model string, log zerolog.Logger) *Selector {
	if embeddingCache == nil {
		embeddingCache = cache.NoopCache{}
	}
	return &Selector{
		catalog:  cat,
		embedder: embedder,
		cache:    embeddingCache,
		signer:   signer,
		model:    model,
		log:      log.With().Str("component", "reference-selector").Logger(),
	}
}

// Select returns the top min(k, catalog size) references for description,
// highest similarity first. Entries whose URL cannot be signed keep an empty URL.
func (s *Selector) Select(ctx context.Context, description string, k int) ([]catalog.BrandReference, error) {
	matches, err := s.Rank(ctx, description, k)
	if err != nil {
		return nil, err
	}
	refs := make([]catalog.BrandReference, len(matches))
	for i, m := range matches {
		refs[i] = catalog.BrandReference{Title: m.Entry.Title, StorageKey: m.Entry.StorageKey}
		if s.signer == nil {
			continue
		}
		url, err := s.signer.SignCatalog(ctx, m.Entry.StorageKey)
		if err != nil {
			s.log.Warn().Err(err).Str("storage_key", m.Entry.StorageKey).Msg("could not sign catalog reference")
			continue
		}
		refs[i].URL = url
	}
	return refs, nil
}

// Rank scores every catalog entry against description and returns the top k.
// Ties keep catalog order.
func (s *Selector) Rank(ctx context.Context, description string, k int) ([]Match, error) {
	ctx, span := observability.StartStageSpan(ctx, "reference", "rank")
	defer span.End()

	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperrors.Validation("description is required for reference selection")
	}
	if k <= 0 {
		return []Match{}, nil
	}

	entries := s.catalog.Entries()
	catalogVecs, err := s.catalogVectors(ctx, entries)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	descVecs, err := s.embedder.Embed(ctx, []string{description})
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.Upstream("embed description", err)
	}
	if len(descVecs) != 1 {
		return nil, apperrors.Upstream("embed description", fmt.Errorf("expected 1 vector, got %d", len(descVecs)))
	}

	matches := make([]Match, len(entries))
	for i, e := range entries {
		score, err := CosineSimilarity(descVecs[0], catalogVecs[i])
		if err != nil {
			err = apperrors.Upstream(fmt.Sprintf("score %q", e.Title), err)
			observability.RecordError(span, err)
			return nil, err
		}
		matches[i] = Match{Entry: e, Score: score}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// catalogVectors returns one vector per entry, embedding only cache misses.
// Concurrent callers share a single in-flight embedding call.
func (s *Selector) catalogVectors(ctx context.Context, entries []catalog.Entry) ([][]float32, error) {
	ch := s.group.DoChan("catalog:"+s.model, func() (any, error) {
		return s.loadCatalogVectors(context.WithoutCancel(ctx), entries)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([][]float32), nil
	}
}

func (s *Selector) loadCatalogVectors(ctx context.Context, entries []catalog.Entry) ([][]float32, error) {
	vecs := make([][]float32, len(entries))
	var missing []int
	for i, e := range entries {
		if v, ok := s.cache.Get(ctx, s.cacheKey(e.Title)); ok {
			vecs[i] = v
			metrics.RecordEmbeddingCache(true)
			continue
		}
		metrics.RecordEmbeddingCache(false)
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return vecs, nil
	}

	inputs := make([]string, len(missing))
	for j, i := range missing {
		inputs[j] = entries[i].Title
	}
	embedded, err := s.embedder.Embed(ctx, inputs)
	if err != nil {
		return nil, apperrors.Upstream("embed catalog", err)
	}
	if len(embedded) != len(inputs) {
		return nil, apperrors.Upstream("embed catalog", fmt.Errorf("expected %d vectors, got %d", len(inputs), len(embedded)))
	}
	for j, i := range missing {
		vecs[i] = embedded[j]
		s.cache.Set(ctx, s.cacheKey(entries[i].Title), embedded[j])
	}

	s.log.Debug().Int("embedded", len(missing)).Int("cached", len(entries)-len(missing)).Msg("catalog vectors loaded")
	return vecs, nil
}

func (s *Selector) cacheKey(title string) string {
	return s.model + ":" + title
}
