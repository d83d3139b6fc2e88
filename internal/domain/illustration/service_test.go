package illustration

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilustra/ilustra-server/internal/config"
	"github.com/ilustra/ilustra-server/internal/domain/catalog"
	"github.com/ilustra/ilustra-server/internal/domain/imagegen"
	"github.com/ilustra/ilustra-server/internal/domain/media"
	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R', 0, 0, 0, 1}

type mockMedia struct {
	StoreUploadFunc func(ctx context.Context, data []byte) (*media.Object, error)
	StoreOutputFunc func(ctx context.Context, data []byte) (*media.Object, error)
	SignFunc        func(ctx context.Context, obj *media.Object) (string, error)
	FetchFunc       func(ctx context.Context, rawURL string) ([]byte, string, error)

	uploads int
	outputs int
}

func (m *mockMedia) StoreUpload(ctx context.Context, data []byte) (*media.Object, error) {
	m.uploads++
	if m.StoreUploadFunc != nil {
		return m.StoreUploadFunc(ctx, data)
	}
	return &media.Object{Bucket: "b", Key: "uploads/in.png"}, nil
}

func (m *mockMedia) StoreOutput(ctx context.Context, data []byte) (*media.Object, error) {
	m.outputs++
	if m.StoreOutputFunc != nil {
		return m.StoreOutputFunc(ctx, data)
	}
	return &media.Object{Bucket: "b", Key: "outputs/out.png"}, nil
}

func (m *mockMedia) Sign(ctx context.Context, obj *media.Object) (string, error) {
	if m.SignFunc != nil {
		return m.SignFunc(ctx, obj)
	}
	return "https://signed/" + obj.Key, nil
}

func (m *mockMedia) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	return m.FetchFunc(ctx, rawURL)
}

type mockSelector struct {
	SelectFunc func(ctx context.Context, description string, k int) ([]catalog.BrandReference, error)
}

func (m *mockSelector) Select(ctx context.Context, description string, k int) ([]catalog.BrandReference, error) {
	return m.SelectFunc(ctx, description, k)
}

type mockDescriber struct {
	DescribeFunc func(ctx context.Context, imageURL, instruction string) (string, error)
}

func (m *mockDescriber) Describe(ctx context.Context, imageURL, instruction string) (string, error) {
	return m.DescribeFunc(ctx, imageURL, instruction)
}

type mockGenerator struct {
	GenerateImageFunc func(ctx context.Context, req imagegen.ImageRequest) (*imagegen.ImageResult, error)
	ContinueTextFunc  func(ctx context.Context, previousResponseID, prompt string) (string, error)
}

func (m *mockGenerator) GenerateImage(ctx context.Context, req imagegen.ImageRequest) (*imagegen.ImageResult, error) {
	return m.GenerateImageFunc(ctx, req)
}

func (m *mockGenerator) ContinueText(ctx context.Context, previousResponseID, prompt string) (string, error) {
	return m.ContinueTextFunc(ctx, previousResponseID, prompt)
}

type mockStylizer struct {
	StylizeFunc func(ctx context.Context, req imagegen.StylizeRequest) (*imagegen.StylizeResult, error)
}

func (m *mockStylizer) Stylize(ctx context.Context, req imagegen.StylizeRequest) (*imagegen.StylizeResult, error) {
	return m.StylizeFunc(ctx, req)
}

func testConfig() *config.Config {
	return &config.Config{
		MaxUploadBytes:      1 << 20,
		ReferenceTopK:       3,
		DescriptionMaxChars: 20,
	}
}

func okGenerator(t *testing.T, check func(req imagegen.ImageRequest)) *mockGenerator {
	return &mockGenerator{GenerateImageFunc: func(ctx context.Context, req imagegen.ImageRequest) (*imagegen.ImageResult, error) {
		if check != nil {
			check(req)
		}
		return &imagegen.ImageResult{ResponseID: "resp_1", ImageCallID: "ig_1", Data: pngBytes}, nil
	}}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeBrand, false},
		{"brand", ModeBrand, false},
		{" Pintor ", ModePintor, false},
		{"caricature", ModeCaricature, false},
		{"anime", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			assert.True(t, apperrors.IsValidation(err), tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestGenerate_Brand(t *testing.T) {
	mediaStore := &mockMedia{}
	describer := &mockDescriber{DescribeFunc: func(ctx context.Context, imageURL, instruction string) (string, error) {
		assert.True(t, strings.HasPrefix(imageURL, "data:image/png;base64,"))
		assert.Contains(t, instruction, "20 characters")
		return "  a woman   holding a piggy bank and smiling  ", nil
	}}
	selector := &mockSelector{SelectFunc: func(ctx context.Context, description string, k int) ([]catalog.BrandReference, error) {
		assert.Equal(t, "a woman holding a pi", description)
		assert.Equal(t, 3, k)
		return []catalog.BrandReference{
			{Title: "Piggy bank", StorageKey: "kit/piggy.png", URL: "https://signed/kit/piggy.png"},
			{Title: "Coins", StorageKey: "kit/coins.png"},
		}, nil
	}}
	generator := okGenerator(t, func(req imagegen.ImageRequest) {
		require.Len(t, req.Images, 2)
		assert.Equal(t, "https://signed/kit/piggy.png", req.Images[1])
		assert.Contains(t, req.Prompt, "Piggy bank, Coins")
		assert.Contains(t, req.Prompt, HouseStyle)
		assert.Empty(t, req.PreviousResponseID)
	})

	svc := NewService(testConfig(), mediaStore, selector, describer, generator, nil, zerolog.Nop())
	result, err := svc.Generate(context.Background(), GenerationRequest{Image: pngBytes})
	require.NoError(t, err)

	assert.Equal(t, "https://signed/outputs/out.png", result.ResultURL)
	assert.Equal(t, "resp_1", result.ResponseID)
	assert.Equal(t, "ig_1", result.ImageCallID)
	assert.Equal(t, "a woman holding a pi", result.Description)
	assert.Len(t, result.BrandRefs, 2)
	assert.Equal(t, ModeBrand, result.Mode)
	assert.Equal(t, 1, mediaStore.uploads)
	assert.Equal(t, 1, mediaStore.outputs)
}

func TestGenerate_ArchiveFailureDoesNotFailBrand(t *testing.T) {
	mediaStore := &mockMedia{StoreUploadFunc: func(ctx context.Context, data []byte) (*media.Object, error) {
		return nil, apperrors.Internal("store image", errors.New("s3 down"))
	}}
	describer := &mockDescriber{DescribeFunc: func(ctx context.Context, imageURL, instruction string) (string, error) {
		return "a dog", nil
	}}
	selector := &mockSelector{SelectFunc: func(ctx context.Context, description string, k int) ([]catalog.BrandReference, error) {
		return nil, nil
	}}

	svc := NewService(testConfig(), mediaStore, selector, describer, okGenerator(t, nil), nil, zerolog.Nop())
	_, err := svc.Generate(context.Background(), GenerationRequest{Image: pngBytes, Mode: ModeBrand})
	assert.NoError(t, err)
}

func TestGenerate_RejectsNonImage(t *testing.T) {
	svc := NewService(testConfig(), &mockMedia{}, nil, nil, nil, nil, zerolog.Nop())
	_, err := svc.Generate(context.Background(), GenerationRequest{Image: []byte("hello")})
	assert.True(t, apperrors.IsValidation(err))
}

func TestGenerate_NoImageReturnedIsUpstream(t *testing.T) {
	generator := &mockGenerator{GenerateImageFunc: func(ctx context.Context, req imagegen.ImageRequest) (*imagegen.ImageResult, error) {
		return &imagegen.ImageResult{ResponseID: "resp_1", ImageCallID: "ig_1"}, nil
	}}
	mediaStore := &mockMedia{}
	svc := NewService(testConfig(), mediaStore, nil, nil, generator, nil, zerolog.Nop())

	_, err := svc.Generate(context.Background(), GenerationRequest{Image: pngBytes, Mode: ModePintor, Artist: "picasso"})
	assert.Equal(t, apperrors.TypeUpstream, apperrors.TypeOf(err))
	assert.Equal(t, 0, mediaStore.outputs)
}

func TestGenerate_Pintor(t *testing.T) {
	generator := okGenerator(t, func(req imagegen.ImageRequest) {
		assert.Contains(t, req.Prompt, "Salvador Dalí")
		assert.Len(t, req.Images, 1)
	})
	svc := NewService(testConfig(), &mockMedia{}, nil, nil, generator, nil, zerolog.Nop())

	result, err := svc.Generate(context.Background(), GenerationRequest{Image: pngBytes, Mode: ModePintor, Artist: "Salvador Dali"})
	require.NoError(t, err)
	assert.Equal(t, "resp_1", result.ResponseID)
	assert.Empty(t, result.Description)
	assert.NotNil(t, result.BrandRefs)
}

func TestGenerate_PintorInvalidArtist(t *testing.T) {
	svc := NewService(testConfig(), &mockMedia{}, nil, nil, nil, nil, zerolog.Nop())
	for _, artist := range []string{"", "banksy"} {
		_, err := svc.Generate(context.Background(), GenerationRequest{Image: pngBytes, Mode: ModePintor, Artist: artist})
		require.Error(t, err)
		assert.Equal(t, "Invalid or missing artist for mode 'pintor'", err.Error())
	}
}

func TestGenerate_Caricature(t *testing.T) {
	mediaStore := &mockMedia{FetchFunc: func(ctx context.Context, rawURL string) ([]byte, string, error) {
		assert.Equal(t, "https://fal.media/out.png", rawURL)
		return pngBytes, "image/png", nil
	}}
	stylizer := &mockStylizer{StylizeFunc: func(ctx context.Context, req imagegen.StylizeRequest) (*imagegen.StylizeResult, error) {
		assert.Equal(t, "https://signed/uploads/in.png", req.ImageURL)
		assert.Equal(t, caricaturePrompt, req.Prompt)
		return &imagegen.StylizeResult{RequestID: "fal-req-1", ImageURL: "https://fal.media/out.png"}, nil
	}}
	svc := NewService(testConfig(), mediaStore, nil, nil, nil, stylizer, zerolog.Nop())

	result, err := svc.Generate(context.Background(), GenerationRequest{Image: pngBytes, Mode: ModeCaricature})
	require.NoError(t, err)
	assert.Equal(t, "fal-req-1", result.ResponseID)
	assert.Equal(t, "fal-req-1", result.ImageCallID)
	assert.Equal(t, "https://signed/outputs/out.png", result.ResultURL)
}

func TestGenerate_CaricatureUnavailable(t *testing.T) {
	svc := NewService(testConfig(), &mockMedia{}, nil, nil, nil, nil, zerolog.Nop())
	_, err := svc.Generate(context.Background(), GenerationRequest{Image: pngBytes, Mode: ModeCaricature})
	assert.True(t, apperrors.IsValidation(err))
}

func TestGenerate_ProviderErrorPropagates(t *testing.T) {
	describer := &mockDescriber{DescribeFunc: func(ctx context.Context, imageURL, instruction string) (string, error) {
		return "", apperrors.Upstream("openai describe", errors.New("timeout"))
	}}
	svc := NewService(testConfig(), &mockMedia{}, nil, describer, nil, nil, zerolog.Nop())
	_, err := svc.Generate(context.Background(), GenerationRequest{Image: pngBytes})
	assert.Equal(t, apperrors.TypeUpstream, apperrors.TypeOf(err))
}

func TestArtists(t *testing.T) {
	assert.Equal(t, []string{"diego velazquez", "joaquin sorolla", "picasso", "salvador dali"}, Artists())
}

func TestBrandPrompt_WithoutRefs(t *testing.T) {
	prompt := BrandPrompt("a cat", nil)
	assert.Contains(t, prompt, "Subject: a cat")
	assert.NotContains(t, prompt, "Brand-kit references")
}
