package openai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	goopenai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ilustra/ilustra-server/internal/config"
	"github.com/ilustra/ilustra-server/internal/domain/imagegen"
	"github.com/ilustra/ilustra-server/internal/domain/reference"
	"github.com/ilustra/ilustra-server/internal/infrastructure/metrics"
	"github.com/ilustra/ilustra-server/internal/infrastructure/observability"
	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
)

// ChatClient covers vision descriptions, text rewrites and embeddings.
type ChatClient struct {
	client *goopenai.Client
	cfg    *config.Config
	log    zerolog.Logger
}

func NewChatClient(cfg *config.Config, log zerolog.Logger) *ChatClient {
	clientCfg := goopenai.DefaultConfig(cfg.OpenAIAPIKey)
	clientCfg.OrgID = cfg.OpenAIOrg
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.OpenAIBaseURL, "/")
	}
	return &ChatClient{
		client: goopenai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		log:    log.With().Str("component", "openai-chat").Logger(),
	}
}

// Describe asks the vision model about imageURL (a data URL or https URL).
func (c *ChatClient) Describe(ctx context.Context, imageURL, instruction string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: c.cfg.OpenAIVisionModel,
		Messages: []goopenai.ChatCompletionMessage{{
			Role: goopenai.ChatMessageRoleUser,
			MultiContent: []goopenai.ChatMessagePart{
				{Type: goopenai.ChatMessagePartTypeText, Text: instruction},
				{Type: goopenai.ChatMessagePartTypeImageURL, ImageURL: &goopenai.ChatMessageImageURL{
					URL:    imageURL,
					Detail: goopenai.ImageURLDetailLow,
				}},
			},
		}},
	}
	return c.complete(ctx, "describe", req)
}

// Rewrite runs a system+user completion on the text model.
func (c *ChatClient) Rewrite(ctx context.Context, system, user string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: c.cfg.OpenAITextModel,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.4,
	}
	return c.complete(ctx, "rewrite", req)
}

func (c *ChatClient) complete(ctx context.Context, operation string, req goopenai.ChatCompletionRequest) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	ctx, span := observability.StartProviderSpan(ctx, providerName, operation, attribute.String("openai.model", req.Model))
	defer span.End()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err == nil && (len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "") {
		err = errors.New("empty completion")
	}
	metrics.RecordProviderCall(providerName, operation, err, time.Since(start).Seconds())
	if err != nil {
		observability.RecordError(span, err)
		c.log.Error().Err(err).Str("operation", operation).Msg("chat completion failed")
		return "", apperrors.Upstream("openai "+operation, err)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Embed returns one vector per input, in input order.
func (c *ChatClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	ctx, span := observability.StartProviderSpan(ctx, providerName, "embed",
		attribute.String("openai.model", c.cfg.OpenAIEmbeddingModel),
		attribute.Int("openai.inputs", len(inputs)),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequestStrings{
		Input: inputs,
		Model: goopenai.EmbeddingModel(c.cfg.OpenAIEmbeddingModel),
	})
	metrics.RecordProviderCall(providerName, "embed", err, time.Since(start).Seconds())
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.Upstream("openai embed", err)
	}

	vecs := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, apperrors.Upstream("openai embed", errors.New("embedding index out of range"))
		}
		vecs[d.Index] = d.Embedding
	}
	for _, v := range vecs {
		if v == nil {
			return nil, apperrors.Upstream("openai embed", errors.New("missing embedding in response"))
		}
	}
	return vecs, nil
}

func (c *ChatClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.OpenAITimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.OpenAITimeout)
}

var (
	_ imagegen.Describer = (*ChatClient)(nil)
	_ imagegen.Rewriter  = (*ChatClient)(nil)
	_ reference.Embedder = (*ChatClient)(nil)
)
