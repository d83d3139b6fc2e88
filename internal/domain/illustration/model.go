package illustration

import (
	"strings"

	"github.com/ilustra/ilustra-server/internal/domain/catalog"
	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
)

// Mode selects the generation pipeline.
type Mode string

const (
	ModeBrand      Mode = "brand"
	ModePintor     Mode = "pintor"
	ModeCaricature Mode = "caricature"
)

// ParseMode accepts the form value; empty means brand.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeBrand:
		return ModeBrand, nil
	case ModePintor:
		return ModePintor, nil
	case ModeCaricature:
		return ModeCaricature, nil
	default:
		return "", apperrors.Validation("Invalid mode")
	}
}

// GenerationRequest is one uploaded photo plus the selected pipeline.
type GenerationRequest struct {
	Image  []byte
	Mode   Mode
	Artist string
}

// GenerationResult is what the client keeps to start iterating.
type GenerationResult struct {
	ResultURL   string                   `json:"resultUrl"`
	ResponseID  string                   `json:"responseId"`
	ImageCallID string                   `json:"imageCallId"`
	BrandRefs   []catalog.BrandReference `json:"brandRefs"`
	Description string                   `json:"description,omitempty"`
	Mode        Mode                     `json:"mode"`
}
