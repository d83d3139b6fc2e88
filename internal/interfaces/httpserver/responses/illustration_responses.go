package responses

import (
	"github.com/ilustra/ilustra-server/internal/domain/catalog"
	"github.com/ilustra/ilustra-server/internal/domain/illustration"
	"github.com/ilustra/ilustra-server/internal/domain/iteration"
)

// GenerateResponse is returned by POST /api/generate.
type GenerateResponse struct {
	ResultURL   string                   `json:"resultUrl"`
	ResponseID  string                   `json:"responseId"`
	ImageCallID string                   `json:"imageCallId"`
	BrandRefs   []catalog.BrandReference `json:"brandRefs"`
	Description string                   `json:"description,omitempty"`
	Mode        string                   `json:"mode"`
}

// BuildGenerateResponse creates response from domain object
func BuildGenerateResponse(result *illustration.GenerationResult) *GenerateResponse {
	refs := result.BrandRefs
	if refs == nil {
		refs = []catalog.BrandReference{}
	}
	return &GenerateResponse{
		ResultURL:   result.ResultURL,
		ResponseID:  result.ResponseID,
		ImageCallID: result.ImageCallID,
		BrandRefs:   refs,
		Description: result.Description,
		Mode:        string(result.Mode),
	}
}

// IterateResponse carries either the next image with its ids or a suggested title.
type IterateResponse struct {
	ResultURL      string `json:"resultUrl,omitempty"`
	ResponseID     string `json:"responseId,omitempty"`
	ImageCallID    string `json:"imageCallId,omitempty"`
	SuggestedTitle string `json:"suggestedTitle,omitempty"`
}

func BuildIterateResponse(result *iteration.Result) *IterateResponse {
	return &IterateResponse{
		ResultURL:      result.ResultURL,
		ResponseID:     result.ResponseID,
		ImageCallID:    result.ImageCallID,
		SuggestedTitle: result.SuggestedTitle,
	}
}

// CatalogResponse lists the brand catalog titles in catalog order.
type CatalogResponse struct {
	Titles []string `json:"titles"`
}

// PalettesResponse lists the fixed brand palettes.
type PalettesResponse struct {
	Palettes []PaletteResponse `json:"palettes"`
}

type PaletteResponse struct {
	Name   string   `json:"name"`
	Colors []string `json:"colors"`
	Param  string   `json:"param"`
}

func BuildPalettesResponse(palettes []catalog.Palette) *PalettesResponse {
	out := make([]PaletteResponse, 0, len(palettes))
	for _, p := range palettes {
		out = append(out, PaletteResponse{Name: p.Name, Colors: p.Colors, Param: p.Param()})
	}
	return &PalettesResponse{Palettes: out}
}

// ArtistsResponse lists the artists accepted by pintor mode.
type ArtistsResponse struct {
	Artists []string `json:"artists"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
