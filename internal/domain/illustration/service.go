package illustration

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ilustra/ilustra-server/internal/config"
	"github.com/ilustra/ilustra-server/internal/domain/catalog"
	"github.com/ilustra/ilustra-server/internal/domain/imagegen"
	"github.com/ilustra/ilustra-server/internal/domain/media"
	"github.com/ilustra/ilustra-server/internal/infrastructure/metrics"
	"github.com/ilustra/ilustra-server/internal/infrastructure/observability"
	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
	"github.com/ilustra/ilustra-server/internal/utils/stringutils"
)

// MediaStore persists images and signs their URLs.
type MediaStore interface {
	StoreUpload(ctx context.Context, data []byte) (*media.Object, error)
	StoreOutput(ctx context.Context, data []byte) (*media.Object, error)
	Sign(ctx context.Context, obj *media.Object) (string, error)
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}

// ReferenceSelector picks brand-kit references for a description.
type ReferenceSelector interface {
	Select(ctx context.Context, description string, k int) ([]catalog.BrandReference, error)
}

// Service turns an uploaded photo into a first illustration.
type Service struct {
	cfg       *config.Config
	media     MediaStore
	selector  ReferenceSelector
	describer imagegen.Describer
	generator imagegen.ImageGenerator
	stylizer  imagegen.Stylizer
	log       zerolog.Logger
}

// NewService creates the generation orchestrator. stylizer may be nil, which disables caricature mode.
func NewService(
	cfg *config.Config,
	mediaStore MediaStore,
	selector ReferenceSelector,
	describer imagegen.Describer,
	generator imagegen.ImageGenerator,
	stylizer imagegen.Stylizer,
	log zerolog.Logger,
) *Service {
	return &Service{
		cfg:       cfg,
		media:     mediaStore,
		selector:  selector,
		describer: describer,
		generator: generator,
		stylizer:  stylizer,
		log:       log.With().Str("component", "illustration-service").Logger(),
	}
}

// Generate runs the pipeline for req.Mode and returns the stored result with its continuation ids.
func (s *Service) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	if req.Mode == "" {
		req.Mode = ModeBrand
	}
	ctx, span := observability.StartStageSpan(ctx, "generate", string(req.Mode))
	defer span.End()

	result, err := s.generate(ctx, req)
	metrics.RecordGeneration(string(req.Mode), err)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("generate.response_id", result.ResponseID),
		attribute.Int("generate.brand_refs", len(result.BrandRefs)),
	)
	s.log.Info().
		Str("mode", string(req.Mode)).
		Str("response_id", result.ResponseID).
		Str("image_call_id", result.ImageCallID).
		Int("brand_refs", len(result.BrandRefs)).
		Msg("illustration generated")
	return result, nil
}

func (s *Service) generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	mimeType, _, err := media.DetectImage(req.Image, s.cfg.MaxUploadBytes)
	if err != nil {
		return nil, err
	}

	switch req.Mode {
	case ModeBrand:
		return s.generateBrand(ctx, req, mimeType)
	case ModePintor:
		return s.generatePintor(ctx, req, mimeType)
	case ModeCaricature:
		return s.generateCaricature(ctx, req)
	default:
		return nil, apperrors.Validation("Invalid mode")
	}
}

func (s *Service) generateBrand(ctx context.Context, req GenerationRequest, mimeType string) (*GenerationResult, error) {
	photo := media.DataURL(mimeType, req.Image)
	s.archive(ctx, req.Image)

	description, err := s.describer.Describe(ctx, photo, DescriptionInstruction(s.cfg.DescriptionMaxChars))
	if err != nil {
		return nil, err
	}
	description = stringutils.TruncateRunes(stringutils.CollapseSpaces(description), s.cfg.DescriptionMaxChars)

	refs, err := s.selector.Select(ctx, description, s.cfg.ReferenceTopK)
	if err != nil {
		return nil, err
	}

	images := []string{photo}
	for _, ref := range refs {
		if ref.URL != "" {
			images = append(images, ref.URL)
		}
	}

	out, err := s.generator.GenerateImage(ctx, imagegen.ImageRequest{
		Prompt: BrandPrompt(description, refs),
		Images: images,
	})
	if err != nil {
		return nil, err
	}

	resultURL, err := s.persist(ctx, out.Data)
	if err != nil {
		return nil, err
	}
	return &GenerationResult{
		ResultURL:   resultURL,
		ResponseID:  out.ResponseID,
		ImageCallID: out.ImageCallID,
		BrandRefs:   refs,
		Description: description,
		Mode:        ModeBrand,
	}, nil
}

func (s *Service) generatePintor(ctx context.Context, req GenerationRequest, mimeType string) (*GenerationResult, error) {
	prompt, err := ArtistPrompt(req.Artist)
	if err != nil {
		return nil, err
	}
	s.archive(ctx, req.Image)

	out, err := s.generator.GenerateImage(ctx, imagegen.ImageRequest{
		Prompt: prompt,
		Images: []string{media.DataURL(mimeType, req.Image)},
	})
	if err != nil {
		return nil, err
	}

	resultURL, err := s.persist(ctx, out.Data)
	if err != nil {
		return nil, err
	}
	return &GenerationResult{
		ResultURL:   resultURL,
		ResponseID:  out.ResponseID,
		ImageCallID: out.ImageCallID,
		BrandRefs:   []catalog.BrandReference{},
		Mode:        ModePintor,
	}, nil
}

func (s *Service) generateCaricature(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	if s.stylizer == nil {
		return nil, apperrors.Validation("caricature mode is not available")
	}

	source, err := s.media.StoreUpload(ctx, req.Image)
	if err != nil {
		return nil, err
	}
	sourceURL, err := s.media.Sign(ctx, source)
	if err != nil {
		return nil, err
	}

	job, err := s.stylizer.Stylize(ctx, imagegen.StylizeRequest{ImageURL: sourceURL, Prompt: caricaturePrompt})
	if err != nil {
		return nil, err
	}
	if job.ImageURL == "" {
		return nil, apperrors.Upstream("caricature", errors.New("no image returned"))
	}

	data, _, err := s.media.Fetch(ctx, job.ImageURL)
	if err != nil {
		return nil, err
	}
	resultURL, err := s.persist(ctx, data)
	if err != nil {
		return nil, err
	}
	return &GenerationResult{
		ResultURL:   resultURL,
		ResponseID:  job.RequestID,
		ImageCallID: job.RequestID,
		BrandRefs:   []catalog.BrandReference{},
		Mode:        ModeCaricature,
	}, nil
}

// archive keeps the original photo in the uploads location; failures only log.
func (s *Service) archive(ctx context.Context, data []byte) {
	if _, err := s.media.StoreUpload(ctx, data); err != nil {
		s.log.Warn().Err(err).Msg("failed to archive upload")
	}
}

func (s *Service) persist(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperrors.Upstream("image generation", errors.New("no image returned"))
	}
	obj, err := s.media.StoreOutput(ctx, data)
	if err != nil {
		return "", err
	}
	return s.media.Sign(ctx, obj)
}
