package requests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/ilustra/ilustra-server/internal/domain/iteration"
)

// IterateRequest is the body of POST /api/iterate.
type IterateRequest struct {
	PreviousResponseID  string              `json:"previousResponseId" binding:"required"`
	ImageCallID         string              `json:"imageCallId" binding:"required"`
	Action              string              `json:"action" binding:"required,iteration_action"`
	ActionParam         string              `json:"actionParam"`
	OriginalDescription OriginalDescription `json:"originalDescription"`
	PrevImageURL        string              `json:"prevImageUrl"`
}

// OriginalDescription accepts either a plain string or {text, prevImageUrl}.
type OriginalDescription struct {
	Text         string `json:"text"`
	PrevImageURL string `json:"prevImageUrl"`
}

func (d *OriginalDescription) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = OriginalDescription{}
		return nil
	}
	if data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*d = OriginalDescription{Text: text}
		return nil
	}
	type plain OriginalDescription
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("originalDescription must be a string or an object: %w", err)
	}
	*d = OriginalDescription(obj)
	return nil
}

// ToDomain converts request to domain model
func (r *IterateRequest) ToDomain() (iteration.Request, error) {
	action, err := iteration.ParseAction(r.Action)
	if err != nil {
		return iteration.Request{}, err
	}
	prevImageURL := strings.TrimSpace(r.PrevImageURL)
	if prevImageURL == "" {
		prevImageURL = strings.TrimSpace(r.OriginalDescription.PrevImageURL)
	}
	return iteration.Request{
		Continuation: iteration.Continuation{
			ResponseID:          strings.TrimSpace(r.PreviousResponseID),
			ImageCallID:         strings.TrimSpace(r.ImageCallID),
			PrevImageURL:        prevImageURL,
			OriginalDescription: strings.TrimSpace(r.OriginalDescription.Text),
		},
		Action: action,
		Param:  r.ActionParam,
	}, nil
}

// RegisterValidators adds the custom validations used by request structs to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	return v.RegisterValidation("iteration_action", func(fl validator.FieldLevel) bool {
		return iteration.Action(strings.TrimSpace(fl.Field().String())).Valid()
	})
}

// BindingMessage turns a bind error into a message fit for the client.
func BindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}
	for _, fe := range verrs {
		switch fe.Field() {
		case "PreviousResponseID", "ImageCallID":
			return "previousResponseId and imageCallId are required"
		case "Action":
			if fe.Tag() == "required" {
				return "action is required"
			}
			return fmt.Sprintf("unknown action %q", fe.Value())
		}
	}
	return verrs[0].Error()
}
