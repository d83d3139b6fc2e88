package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ilustra/ilustra-server/internal/config"
	"github.com/ilustra/ilustra-server/internal/domain/imagegen"
	"github.com/ilustra/ilustra-server/internal/infrastructure/metrics"
	"github.com/ilustra/ilustra-server/internal/infrastructure/observability"
	"github.com/ilustra/ilustra-server/internal/infrastructure/schema"
	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
)

const providerName = "openai"

// Responses API wire types.

type responsesRequest struct {
	Model              string      `json:"model"`
	Input              []inputItem `json:"input"`
	Tools              []imageTool `json:"tools,omitempty"`
	ToolChoice         *toolChoice `json:"tool_choice,omitempty"`
	PreviousResponseID string      `json:"previous_response_id,omitempty"`
}

// inputItem is either a user message (Role + Content) or an item reference (Type + ID).
type inputItem struct {
	Role    string         `json:"role,omitempty"`
	Content []inputContent `json:"content,omitempty"`
	Type    string         `json:"type,omitempty"`
	ID      string         `json:"id,omitempty"`
}

type inputContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type imageTool struct {
	Type       string `json:"type"`
	Background string `json:"background,omitempty"`
	Size       string `json:"size,omitempty"`
	Quality    string `json:"quality,omitempty"`
}

type toolChoice struct {
	Type string `json:"type"`
}

type responsesResponse struct {
	ID     string       `json:"id" jsonschema:"minLength=1"`
	Status string       `json:"status,omitempty"`
	Output []outputItem `json:"output"`
}

type outputItem struct {
	Type    string          `json:"type" jsonschema:"minLength=1"`
	ID      string          `json:"id,omitempty"`
	Status  string          `json:"status,omitempty"`
	Result  string          `json:"result,omitempty" jsonschema:"oneof_type=string;null"`
	Content []outputContent `json:"content,omitempty"`
}

type outputContent struct {
	Type string `json:"type" jsonschema:"minLength=1"`
	Text string `json:"text,omitempty"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

var responsesSchema = schema.MustFor("openai.response", &responsesResponse{})

// ResponsesClient calls the Responses API with the image_generation tool.
type ResponsesClient struct {
	httpClient *resty.Client
	cfg        *config.Config
	log        zerolog.Logger
}

// NewResponsesClient creates a Resty-backed Responses API client.
func NewResponsesClient(cfg *config.Config, log zerolog.Logger) *ResponsesClient {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.OpenAIBaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.OpenAIAPIKey).
		SetTimeout(cfg.OpenAITimeout)
	if cfg.OpenAIOrg != "" {
		client.SetHeader("OpenAI-Organization", cfg.OpenAIOrg)
	}
	return &ResponsesClient{
		httpClient: client,
		cfg:        cfg,
		log:        log.With().Str("component", "openai-responses").Logger(),
	}
}

// GenerateImage forces the image_generation tool and returns the first generated image.
func (c *ResponsesClient) GenerateImage(ctx context.Context, req imagegen.ImageRequest) (*imagegen.ImageResult, error) {
	content := make([]inputContent, 0, len(req.Images)+1)
	for _, img := range req.Images {
		content = append(content, inputContent{Type: "input_image", ImageURL: img})
	}
	content = append(content, inputContent{Type: "input_text", Text: req.Prompt})

	input := []inputItem{{Role: "user", Content: content}}
	if req.ImageCallID != "" {
		input = append(input, inputItem{Type: "image_generation_call", ID: req.ImageCallID})
	}

	body := responsesRequest{
		Model: c.cfg.OpenAIImageModel,
		Input: input,
		Tools: []imageTool{{
			Type:       "image_generation",
			Background: c.cfg.ImageBackground,
			Size:       c.cfg.ImageSize,
			Quality:    c.cfg.ImageQuality,
		}},
		ToolChoice:         &toolChoice{Type: "image_generation"},
		PreviousResponseID: req.PreviousResponseID,
	}

	resp, err := c.create(ctx, "image_generation", body)
	if err != nil {
		return nil, err
	}

	call, ok := resp.imageCall()
	if !ok {
		return nil, apperrors.Upstream("image generation", errors.New("no image returned"))
	}
	data, err := base64.StdEncoding.DecodeString(call.Result)
	if err != nil {
		return nil, apperrors.Upstream("image generation", fmt.Errorf("decode image: %w", err))
	}

	c.log.Info().
		Str("response_id", resp.ID).
		Str("image_call_id", call.ID).
		Bool("continuation", req.PreviousResponseID != "").
		Int("bytes", len(data)).
		Msg("image generated")

	return &imagegen.ImageResult{
		ResponseID:  resp.ID,
		ImageCallID: call.ID,
		Data:        data,
	}, nil
}

// ContinueText sends a text-only turn after previousResponseID and returns the reply text.
func (c *ResponsesClient) ContinueText(ctx context.Context, previousResponseID, prompt string) (string, error) {
	body := responsesRequest{
		Model:              c.cfg.OpenAIImageModel,
		Input:              []inputItem{{Role: "user", Content: []inputContent{{Type: "input_text", Text: prompt}}}},
		PreviousResponseID: previousResponseID,
	}
	resp, err := c.create(ctx, "continue_text", body)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.outputText())
	if text == "" {
		return "", apperrors.Upstream("text continuation", errors.New("no text returned"))
	}
	return text, nil
}

func (c *ResponsesClient) create(ctx context.Context, operation string, body responsesRequest) (*responsesResponse, error) {
	ctx, span := observability.StartProviderSpan(ctx, providerName, operation,
		attribute.String("openai.model", body.Model),
		attribute.Bool("openai.continuation", body.PreviousResponseID != ""),
		attribute.Int("openai.input_images", countImages(body.Input)),
	)
	defer span.End()

	start := time.Now()
	result, err := c.post(ctx, body)
	metrics.RecordProviderCall(providerName, operation, err, time.Since(start).Seconds())
	if err != nil {
		observability.RecordError(span, err)
		c.log.Error().Err(err).Str("operation", operation).Msg("responses call failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("openai.response_id", result.ID))
	return result, nil
}

func (c *ResponsesClient) post(ctx context.Context, body responsesRequest) (*responsesResponse, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		Post("/responses")
	if err != nil {
		return nil, apperrors.Upstream("openai responses", err)
	}
	if resp.IsError() {
		return nil, apperrors.Upstream("openai responses", apiError(resp))
	}

	var out responsesResponse
	if err := responsesSchema.Decode(resp.Body(), &out); err != nil {
		return nil, apperrors.Upstream("openai responses", err)
	}
	return &out, nil
}

func (r *responsesResponse) imageCall() (outputItem, bool) {
	for _, item := range r.Output {
		if item.Type == "image_generation_call" && item.Result != "" {
			return item, true
		}
	}
	return outputItem{}, false
}

func (r *responsesResponse) outputText() string {
	var sb strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" {
				sb.WriteString(part.Text)
			}
		}
	}
	return sb.String()
}

func apiError(resp *resty.Response) error {
	var body apiErrorBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error.Message != "" {
		return fmt.Errorf("status %d: %s", resp.StatusCode(), body.Error.Message)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode(), truncate(resp.String(), 300))
}

func countImages(items []inputItem) int {
	n := 0
	for _, item := range items {
		for _, c := range item.Content {
			if c.Type == "input_image" {
				n++
			}
		}
	}
	return n
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

var _ imagegen.ImageGenerator = (*ResponsesClient)(nil)
