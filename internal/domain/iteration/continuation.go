package iteration

import (
	"strings"

	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
)

// Continuation is the state a client threads between calls. It is replaced
// as a whole after every successful image-producing iteration.
type Continuation struct {
	ResponseID          string
	ImageCallID         string
	PrevImageURL        string
	OriginalDescription string
}

// Validate checks the identifiers every iteration needs.
func (c Continuation) Validate() error {
	if strings.TrimSpace(c.ResponseID) == "" || strings.TrimSpace(c.ImageCallID) == "" {
		return apperrors.Validation("previousResponseId and imageCallId are required")
	}
	return nil
}

// Next returns the continuation for the call after result. The description carries over.
func (c Continuation) Next(result *Result) Continuation {
	if result == nil || result.ResponseID == "" {
		return c
	}
	return Continuation{
		ResponseID:          result.ResponseID,
		ImageCallID:         result.ImageCallID,
		PrevImageURL:        result.ResultURL,
		OriginalDescription: c.OriginalDescription,
	}
}

// Request is one iteration call.
type Request struct {
	Continuation Continuation
	Action       Action
	Param        string
}

// Result holds either a new image with its ids, or a suggested title.
type Result struct {
	ResultURL      string `json:"resultUrl,omitempty"`
	ResponseID     string `json:"responseId,omitempty"`
	ImageCallID    string `json:"imageCallId,omitempty"`
	SuggestedTitle string `json:"suggestedTitle,omitempty"`
}
