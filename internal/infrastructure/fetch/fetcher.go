package fetch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/ilustra/ilustra-server/internal/config"
	"github.com/ilustra/ilustra-server/internal/domain/media"
)

// Fetcher downloads remote images (signed storage URLs, provider result URLs).
type Fetcher struct {
	httpClient *resty.Client
	log        zerolog.Logger
}

// NewFetcher creates a Resty-backed fetcher. Failed requests are not retried.
func NewFetcher(cfg *config.Config, log zerolog.Logger) *Fetcher {
	timeout := cfg.RemoteFetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		httpClient: resty.New().SetTimeout(timeout),
		log: log.With().Str("component", "remote-fetcher").Logger(),
	}
}

// Fetch GETs rawURL and returns the body and its Content-Type.
// Bodies larger than maxBytes are rejected; maxBytes <= 0 disables the limit.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, maxBytes int64) ([]byte, string, error) {
	resp, err := f.httpClient.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return nil, "", fmt.Errorf("fetch: unexpected status %d", resp.StatusCode())
	}

	reader := io.Reader(body)
	if maxBytes > 0 {
		if resp.RawResponse.ContentLength > maxBytes {
			return nil, "", fmt.Errorf("fetch: body of %d bytes exceeds limit of %d", resp.RawResponse.ContentLength, maxBytes)
		}
		reader = io.LimitReader(body, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: read body: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("fetch: body exceeds limit of %d bytes", maxBytes)
	}

	f.log.Debug().Int("bytes", len(data)).Int("status", resp.StatusCode()).Msg("remote image fetched")
	return data, resp.Header().Get("Content-Type"), nil
}

var _ media.Fetcher = (*Fetcher)(nil)
