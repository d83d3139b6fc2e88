package reference

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilustra/ilustra-server/internal/domain/catalog"
	"github.com/ilustra/ilustra-server/internal/infrastructure/cache"
	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
)

type mockEmbedder struct {
	EmbedFunc func(ctx context.Context, inputs []string) ([][]float32, error)
	calls     int32
}

func (m *mockEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.EmbedFunc(ctx, inputs)
}

type mockSigner struct {
	SignCatalogFunc func(ctx context.Context, storageKey string) (string, error)
}

func (m *mockSigner) SignCatalog(ctx context.Context, storageKey string) (string, error) {
	return m.SignCatalogFunc(ctx, storageKey)
}

// vectors maps each text to a fixed 2D direction.
func vectorEmbedder(vectors map[string][]float32) *mockEmbedder {
	return &mockEmbedder{
		EmbedFunc: func(ctx context.Context, inputs []string) ([][]float32, error) {
			out := make([][]float32, len(inputs))
			for i, in := range inputs {
				v, ok := vectors[in]
				if !ok {
					return nil, errors.New("unknown input " + in)
				}
				out[i] = v
			}
			return out, nil
		},
	}
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Entry{
		{Title: "Piggy bank", StorageKey: "kit/piggy.png"},
		{Title: "Car", StorageKey: "kit/car.png"},
		{Title: "House", StorageKey: "kit/house.png"},
		{Title: "Coins", StorageKey: "kit/coins.png"},
	})
	require.NoError(t, err)
	return c
}

var testVectors = map[string][]float32{
	"Piggy bank":       {1, 0},
	"Car":              {0, 1},
	"House":            {0.6, 0.8},
	"Coins":            {1, 0},
	"a person saving":  {0.9, 0.1},
	"a red sports car": {0, 1},
}

func TestCosineSimilarity(t *testing.T) {
	score, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)

	score, err = CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, score, 1e-9)

	score, err = CosineSimilarity([]float32{1, 1}, []float32{-1, -1})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, score, 1e-9)

	_, err = CosineSimilarity(nil, []float32{1})
	assert.ErrorIs(t, err, ErrEmptyVector)
	_, err = CosineSimilarity([]float32{1, 2}, []float32{1})
	assert.ErrorIs(t, err, ErrLengthMismatch)
	_, err = CosineSimilarity([]float32{0, 0}, []float32{1, 1})
	assert.ErrorIs(t, err, ErrZeroVector)
}

func TestRank_SortedDescendingWithStableTies(t *testing.T) {
	s := NewSelector(testCatalog(t), vectorEmbedder(testVectors), nil, nil, "test-model", zerolog.Nop())

	matches, err := s.Rank(context.Background(), "a person saving", 4)
	require.NoError(t, err)
	require.Len(t, matches, 4)

	// Piggy bank and Coins tie; catalog order wins.
	assert.Equal(t, "Piggy bank", matches[0].Entry.Title)
	assert.Equal(t, "Coins", matches[1].Entry.Title)
	assert.Equal(t, matches[0].Score, matches[1].Score)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestRank_ReturnsMinOfKAndCatalogSize(t *testing.T) {
	s := NewSelector(testCatalog(t), vectorEmbedder(testVectors), nil, nil, "test-model", zerolog.Nop())

	tests := []struct {
		k    int
		want int
	}{
		{0, 0},
		{1, 1},
		{3, 3},
		{4, 4},
		{10, 4},
	}
	for _, tt := range tests {
		matches, err := s.Rank(context.Background(), "a red sports car", tt.k)
		require.NoError(t, err)
		assert.Len(t, matches, tt.want, "k=%d", tt.k)
	}

	matches, err := s.Rank(context.Background(), "a red sports car", 1)
	require.NoError(t, err)
	assert.Equal(t, "Car", matches[0].Entry.Title)
}

func TestRank_EmptyDescription(t *testing.T) {
	embedder := vectorEmbedder(testVectors)
	s := NewSelector(testCatalog(t), embedder, nil, nil, "m", zerolog.Nop())
	_, err := s.Rank(context.Background(), "   ", 3)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&embedder.calls))
}

func TestRank_UnscorableVectorFails(t *testing.T) {
	vectors := map[string][]float32{
		"Piggy bank": {1, 0}, "Car": {0, 0}, "House": {1, 1}, "Coins": {1, 0}, "desc": {1, 0},
	}
	s := NewSelector(testCatalog(t), vectorEmbedder(vectors), nil, nil, "m", zerolog.Nop())
	_, err := s.Rank(context.Background(), "desc", 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrZeroVector)
	assert.Equal(t, apperrors.TypeUpstream, apperrors.TypeOf(err))
}

func TestRank_EmbedderFailureIsUpstream(t *testing.T) {
	embedder := &mockEmbedder{EmbedFunc: func(ctx context.Context, inputs []string) ([][]float32, error) {
		return nil, errors.New("rate limited")
	}}
	s := NewSelector(testCatalog(t), embedder, nil, nil, "m", zerolog.Nop())
	_, err := s.Rank(context.Background(), "desc", 2)
	assert.Equal(t, apperrors.TypeUpstream, apperrors.TypeOf(err))
}

func TestRank_NoCacheRecomputesEveryCall(t *testing.T) {
	embedder := vectorEmbedder(testVectors)
	s := NewSelector(testCatalog(t), embedder, cache.NoopCache{}, nil, "m", zerolog.Nop())
	for i := 0; i < 2; i++ {
		_, err := s.Rank(context.Background(), "a person saving", 2)
		require.NoError(t, err)
	}
	// catalog + description per call
	assert.Equal(t, int32(4), atomic.LoadInt32(&embedder.calls))
}

func TestRank_MemoryCacheSkipsCatalogEmbedding(t *testing.T) {
	embedder := vectorEmbedder(testVectors)
	memCache, err := cache.NewMemoryCache(16, time.Hour)
	require.NoError(t, err)
	s := NewSelector(testCatalog(t), embedder, memCache, nil, "m", zerolog.Nop())

	for i := 0; i < 3; i++ {
		_, err := s.Rank(context.Background(), "a person saving", 2)
		require.NoError(t, err)
	}
	// one catalog call, then only descriptions
	assert.Equal(t, int32(4), atomic.LoadInt32(&embedder.calls))
	assert.Equal(t, 4, memCache.Len())
}

func TestRank_ConcurrentCallsShareResults(t *testing.T) {
	s := NewSelector(testCatalog(t), vectorEmbedder(testVectors), nil, nil, "m", zerolog.Nop())

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			matches, err := s.Rank(context.Background(), "a red sports car", 1)
			if err == nil && matches[0].Entry.Title != "Car" {
				err = errors.New("unexpected top match " + matches[0].Entry.Title)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestSelect_SignsReferences(t *testing.T) {
	signer := &mockSigner{SignCatalogFunc: func(ctx context.Context, key string) (string, error) {
		if key == "kit/coins.png" {
			return "", errors.New("denied")
		}
		return "https://signed/" + key, nil
	}}
	s := NewSelector(testCatalog(t), vectorEmbedder(testVectors), nil, signer, "m", zerolog.Nop())

	refs, err := s.Select(context.Background(), "a person saving", 2)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, catalog.BrandReference{Title: "Piggy bank", StorageKey: "kit/piggy.png", URL: "https://signed/kit/piggy.png"}, refs[0])
	assert.Equal(t, "Coins", refs[1].Title)
	assert.Empty(t, refs[1].URL)
}
