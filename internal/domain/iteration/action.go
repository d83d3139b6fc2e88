package iteration

import (
	"slices"
	"strings"

	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
)

// Action is a closed set of edits a client can request on the previous image.
type Action string

const (
	ActionChangePalette Action = "change_palette"
	ActionScaleUp       Action = "scale_up"
	ActionScaleDown     Action = "scale_down"
	ActionMoveLeft      Action = "move_left"
	ActionMoveRight     Action = "move_right"
	ActionAddTitle      Action = "add_title"
	ActionSuggestTitle  Action = "suggest_title"
	ActionChat          Action = "chat"
)

var allActions = []Action{
	ActionChangePalette,
	ActionScaleUp,
	ActionScaleDown,
	ActionMoveLeft,
	ActionMoveRight,
	ActionAddTitle,
	ActionSuggestTitle,
	ActionChat,
}

// ParseAction maps a wire value to an Action. Unknown values are rejected.
func ParseAction(raw string) (Action, error) {
	a := Action(strings.TrimSpace(raw))
	if !a.Valid() {
		if a == "" {
			return "", apperrors.Validation("action is required")
		}
		return "", apperrors.Validation("unknown action %q", raw)
	}
	return a, nil
}

func (a Action) Valid() bool {
	return slices.Contains(allActions, a)
}

// RequiresParam reports whether the action needs a non-blank actionParam.
func (a Action) RequiresParam() bool {
	switch a {
	case ActionChangePalette, ActionAddTitle, ActionChat:
		return true
	}
	return false
}

// ProducesImage is false only for suggest_title.
func (a Action) ProducesImage() bool {
	return a != ActionSuggestTitle
}

func (a Action) String() string {
	return string(a)
}
