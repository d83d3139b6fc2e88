// Package fal runs image-to-image jobs on the fal.ai queue API.
package fal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ilustra/ilustra-server/internal/config"
	"github.com/ilustra/ilustra-server/internal/domain/imagegen"
	"github.com/ilustra/ilustra-server/internal/infrastructure/metrics"
	"github.com/ilustra/ilustra-server/internal/infrastructure/observability"
	"github.com/ilustra/ilustra-server/internal/infrastructure/schema"
	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
	"github.com/ilustra/ilustra-server/pkg/observability/jobs"
)

const providerName = "fal"

const (
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

type lora struct {
	Path  string  `json:"path"`
	Scale float64 `json:"scale"`
}

type submitRequest struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"image_url"`
	LoRAs    []lora `json:"loras,omitempty"`
}

type submitResponse struct {
	RequestID   string `json:"request_id" jsonschema:"minLength=1"`
	StatusURL   string `json:"status_url" jsonschema:"minLength=1"`
	ResponseURL string `json:"response_url" jsonschema:"minLength=1"`
}

type statusResponse struct {
	Status        string `json:"status" jsonschema:"minLength=1"`
	QueuePosition int    `json:"queue_position,omitempty" jsonschema:"oneof_type=integer;null"`
}

type falImage struct {
	URL string `json:"url" jsonschema:"minLength=1"`
}

type resultResponse struct {
	Images []falImage `json:"images" jsonschema:"minItems=1"`
}

var (
	submitSchema = schema.MustFor("fal.submit", &submitResponse{})
	statusSchema = schema.MustFor("fal.status", &statusResponse{})
	resultSchema = schema.MustFor("fal.result", &resultResponse{})
)

// Client submits a job, polls its status and reads the result.
type Client struct {
	httpClient   *resty.Client
	model        string
	loraURL      string
	loraScale    float64
	pollInterval time.Duration
	timeout      time.Duration
	jobs         *jobs.Instrumenter
	log          zerolog.Logger
}

func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	pollInterval := cfg.FalPollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	logger := log.With().Str("component", "fal-client").Logger()
	instrumenter, err := jobs.NewInstrumenter(otel.Tracer("ilustra/fal"), otel.Meter("ilustra/fal"), "ilustra")
	if err != nil {
		logger.Warn().Err(err).Msg("fal job instruments unavailable")
	}
	return &Client{
		httpClient: resty.New().
			SetBaseURL(strings.TrimSuffix(cfg.FalBaseURL, "/")).
			SetHeader("Content-Type", "application/json").
			SetHeader("Authorization", "Key "+cfg.FalAPIKey).
			SetTimeout(30 * time.Second),
		model:        strings.Trim(cfg.FalModel, "/"),
		loraURL:      cfg.FalLoRAURL,
		loraScale:    cfg.FalLoRAScale,
		pollInterval: pollInterval,
		timeout:      cfg.FalTimeout,
		jobs:         instrumenter,
		log:          logger,
	}
}

// Stylize submits req to the configured model and waits for the first output image.
func (c *Client) Stylize(ctx context.Context, req imagegen.StylizeRequest) (*imagegen.StylizeResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	ctx, span := observability.StartProviderSpan(ctx, providerName, "stylize", attribute.String("fal.model", c.model))
	defer span.End()

	start := time.Now()
	result, err := c.run(ctx, req)
	metrics.RecordProviderCall(providerName, "stylize", err, time.Since(start).Seconds())
	if err != nil {
		observability.RecordError(span, err)
		c.log.Error().Err(err).Msg("fal job failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("fal.request_id", result.RequestID))
	return result, nil
}

func (c *Client) run(ctx context.Context, req imagegen.StylizeRequest) (*imagegen.StylizeResult, error) {
	body := submitRequest{Prompt: req.Prompt, ImageURL: req.ImageURL}
	if c.loraURL != "" {
		body.LoRAs = []lora{{Path: c.loraURL, Scale: c.loraScale}}
	}

	var submitted submitResponse
	if err := c.call(ctx, "submit", submitSchema, &submitted, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(body).Post("/" + c.model)
	}); err != nil {
		return nil, err
	}
	c.log.Info().Str("request_id", submitted.RequestID).Msg("fal job submitted")

	wait := func(ctx context.Context, poll func()) error {
		return c.waitCompleted(ctx, submitted, poll)
	}
	var err error
	if c.jobs != nil {
		err = c.jobs.Track(ctx, "fal.stylize", submitted.RequestID, wait)
	} else {
		err = wait(ctx, func() {})
	}
	if err != nil {
		return nil, err
	}

	var result resultResponse
	if err := c.call(ctx, "result", resultSchema, &result, func(r *resty.Request) (*resty.Response, error) {
		return r.Get(submitted.ResponseURL)
	}); err != nil {
		return nil, err
	}

	return &imagegen.StylizeResult{
		RequestID: submitted.RequestID,
		ImageURL:  result.Images[0].URL,
	}, nil
}

func (c *Client) waitCompleted(ctx context.Context, job submitResponse, poll func()) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		poll()
		var status statusResponse
		if err := c.call(ctx, "status", statusSchema, &status, func(r *resty.Request) (*resty.Response, error) {
			return r.Get(job.StatusURL)
		}); err != nil {
			return err
		}

		switch status.Status {
		case StatusCompleted:
			return nil
		case StatusInQueue, StatusInProgress:
			c.log.Debug().
				Str("request_id", job.RequestID).
				Str("status", status.Status).
				Int("queue_position", status.QueuePosition).
				Msg("fal job pending")
		default:
			return apperrors.Upstream("fal status", fmt.Errorf("unexpected job status %q", status.Status))
		}

		select {
		case <-ctx.Done():
			return apperrors.Upstream("fal status", fmt.Errorf("waiting for %s: %w", job.RequestID, ctx.Err()))
		case <-ticker.C:
		}
	}
}

func (c *Client) call(ctx context.Context, op string, v *schema.Validator, out any, send func(*resty.Request) (*resty.Response, error)) error {
	resp, err := send(c.httpClient.R().SetContext(ctx))
	if err != nil {
		return apperrors.Upstream("fal "+op, err)
	}
	if resp.IsError() {
		return apperrors.Upstream("fal "+op, fmt.Errorf("status %d: %s", resp.StatusCode(), truncate(resp.String(), 300)))
	}
	if err := v.Decode(resp.Body(), out); err != nil {
		return apperrors.Upstream("fal "+op, err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

var _ imagegen.Stylizer = (*Client)(nil)
