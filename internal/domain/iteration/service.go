// Package iteration applies follow-up edits to a generated illustration,
// threading the provider's response and image call ids from one call to the next.
package iteration

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ilustra/ilustra-server/internal/config"
	"github.com/ilustra/ilustra-server/internal/domain/imagegen"
	"github.com/ilustra/ilustra-server/internal/domain/media"
	"github.com/ilustra/ilustra-server/internal/infrastructure/metrics"
	"github.com/ilustra/ilustra-server/internal/infrastructure/observability"
	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
	"github.com/ilustra/ilustra-server/internal/utils/stringutils"
	"github.com/ilustra/ilustra-server/pkg/telemetry"
)

// MediaStore reads previous outputs and persists new ones.
type MediaStore interface {
	FetchOutput(ctx context.Context, rawURL string) ([]byte, string, error)
	StoreOutput(ctx context.Context, data []byte) (*media.Object, error)
	Sign(ctx context.Context, obj *media.Object) (string, error)
}

type Service struct {
	cfg       *config.Config
	media     MediaStore
	generator imagegen.ImageGenerator
	describer imagegen.Describer
	rewriter  imagegen.Rewriter
	sanitizer *telemetry.Sanitizer
	log       zerolog.Logger
}

func NewService(
	cfg *config.Config,
	mediaStore MediaStore,
	generator imagegen.ImageGenerator,
	describer imagegen.Describer,
	rewriter imagegen.Rewriter,
	sanitizer *telemetry.Sanitizer,
	log zerolog.Logger,
) *Service {
	if sanitizer == nil {
		sanitizer = telemetry.NewSanitizer(telemetry.PIILevelHashed, cfg.ServiceName)
	}
	return &Service{
		cfg:       cfg,
		media:     mediaStore,
		generator: generator,
		describer: describer,
		rewriter:  rewriter,
		sanitizer: sanitizer,
		log:       log.With().Str("component", "iteration-service").Logger(),
	}
}

// Iterate validates req, then runs the branch for its action.
// Every validation happens before the first provider call.
func (s *Service) Iterate(ctx context.Context, req Request) (*Result, error) {
	ctx, span := observability.StartStageSpan(ctx, "iterate", req.Action.String())
	defer span.End()
	span.SetAttributes(
		attribute.String("iterate.action", req.Action.String()),
		attribute.String("iterate.previous_response_id", req.Continuation.ResponseID),
	)

	result, err := s.iterate(ctx, req)
	metrics.RecordIteration(req.Action.String(), err)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	event := s.log.Info().
		Str("action", req.Action.String()).
		Str("previous_response_id", req.Continuation.ResponseID)
	if req.Action.ProducesImage() {
		event = event.
			Str("response_id", result.ResponseID).
			Str("image_call_id", result.ImageCallID)
	} else {
		event = event.Str("suggested_title", s.sanitizer.Clip(result.SuggestedTitle, 80))
	}
	event.Msg("iteration completed")
	return result, nil
}

func (s *Service) iterate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Continuation.Validate(); err != nil {
		return nil, err
	}
	if !req.Action.Valid() {
		return nil, apperrors.Validation("unknown action %q", req.Action)
	}
	if req.Action.RequiresParam() && strings.TrimSpace(req.Param) == "" {
		return nil, apperrors.Validation("actionParam is required for %s", req.Action)
	}

	switch req.Action {
	case ActionSuggestTitle:
		return s.suggestTitle(ctx, req)
	case ActionChat:
		return s.chat(ctx, req)
	case ActionChangePalette, ActionScaleUp, ActionScaleDown, ActionMoveLeft, ActionMoveRight, ActionAddTitle:
		instruction, err := FixedInstruction(req.Action, req.Param)
		if err != nil {
			return nil, err
		}
		if req.Action == ActionAddTitle {
			s.log.Debug().Str("title", s.sanitizer.Clip(req.Param, 80)).Msg("adding title")
		}
		return s.edit(ctx, req.Continuation, imagegen.ImageRequest{Prompt: instruction})
	default:
		return nil, apperrors.Validation("unknown action %q", req.Action)
	}
}

func (s *Service) suggestTitle(ctx context.Context, req Request) (*Result, error) {
	raw, err := s.generator.ContinueText(ctx, req.Continuation.ResponseID, SuggestTitlePrompt(req.Continuation.OriginalDescription))
	if err != nil {
		return nil, err
	}
	title := stringutils.TruncateTitle(stringutils.SanitizeTitle(raw), suggestedTitleLen)
	if title == "" {
		return nil, apperrors.Upstream("suggest title", errors.New("empty title suggestion"))
	}
	return &Result{SuggestedTitle: title}, nil
}

func (s *Service) chat(ctx context.Context, req Request) (*Result, error) {
	text := strings.TrimSpace(req.Param)
	if limit := s.cfg.ChatMaxChars; limit > 0 && stringutils.RuneLen(text) > limit {
		return nil, apperrors.Validation("chat text exceeds %d characters", limit)
	}
	prevURL := strings.TrimSpace(req.Continuation.PrevImageURL)
	if prevURL == "" {
		return nil, apperrors.Validation("prevImageUrl is required for chat")
	}

	stageCtx, span := observability.StartStageSpan(ctx, "iterate.chat", "fetch_previous")
	prev, mimeType, err := s.media.FetchOutput(stageCtx, prevURL)
	span.End()
	if err != nil {
		return nil, err
	}
	prevDataURL := media.DataURL(mimeType, prev)

	subject, err := s.describer.Describe(ctx, prevDataURL, MiniDescriptionInstruction)
	if err != nil {
		return nil, err
	}

	userText := stringutils.TruncateRunes(text, s.cfg.RewriteInputMaxChars)
	s.log.Debug().
		Str("chat_text", s.sanitizer.Clip(userText, 120)).
		Str("subject", subject).
		Msg("rewriting chat request")

	rewritten, err := s.rewriter.Rewrite(ctx, RewriteSystemPrompt(subject), userText)
	if err != nil {
		return nil, err
	}

	return s.edit(ctx, req.Continuation, imagegen.ImageRequest{
		Prompt: ChatInstruction(rewritten),
		Images: []string{prevDataURL},
	})
}

// edit anchors an image request to the continuation and stores the result.
func (s *Service) edit(ctx context.Context, cont Continuation, imgReq imagegen.ImageRequest) (*Result, error) {
	imgReq.PreviousResponseID = cont.ResponseID
	imgReq.ImageCallID = cont.ImageCallID

	out, err := s.generator.GenerateImage(ctx, imgReq)
	if err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, apperrors.Upstream("image generation", errors.New("no image returned"))
	}

	obj, err := s.media.StoreOutput(ctx, out.Data)
	if err != nil {
		return nil, err
	}
	resultURL, err := s.media.Sign(ctx, obj)
	if err != nil {
		return nil, err
	}
	return &Result{
		ResultURL:   resultURL,
		ResponseID:  out.ResponseID,
		ImageCallID: out.ImageCallID,
	}, nil
}
