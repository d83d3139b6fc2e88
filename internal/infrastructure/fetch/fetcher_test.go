package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilustra/ilustra-server/internal/config"
	"github.com/ilustra/ilustra-server/internal/domain/media"
	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
)

func newTestFetcher() *Fetcher {
	return NewFetcher(&config.Config{RemoteFetchTimeout: 5 * time.Second}, zerolog.Nop())
}

func TestFetch_ReturnsBodyAndContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	data, contentType, err := newTestFetcher().Fetch(context.Background(), server.URL+"/a.png", 1024)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
	assert.Equal(t, "image/png", contentType)
}

func TestFetch_RejectsOversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	_, _, err := newTestFetcher().Fetch(context.Background(), server.URL, 16)
	assert.Error(t, err)
}

func TestFetch_ErrorStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, _, err := newTestFetcher().Fetch(context.Background(), server.URL, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetch_ServerErrorIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, _, err := NewFetcher(&config.Config{}, zerolog.Nop()).Fetch(context.Background(), server.URL, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetch_ServerErrorSurfacesAsUpstream(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc, err := media.NewService(&config.Config{
		S3BucketUploads: "ilustra/uploads",
		S3BucketOutputs: "ilustra/outputs",
		S3BucketCatalog: "brand-assets",
		MaxUploadBytes:  1 << 20,
	}, nil, newTestFetcher(), zerolog.Nop())
	require.NoError(t, err)

	_, _, err = svc.Fetch(context.Background(), server.URL+"/x.png")
	require.Error(t, err)
	assert.Equal(t, apperrors.TypeUpstream, apperrors.TypeOf(err))
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(apperrors.TypeOf(err)))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
