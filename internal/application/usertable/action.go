package usertable

import (
	"fmt"

	"github.com/lllypuk/useradmin/internal/domain/errs"
)

// ActionKind is a row menu action.
type ActionKind int

// Row menu actions.
const (
	ActionEdit ActionKind = iota + 1
	ActionDelete
)

// String returns the form value of the action.
func (k ActionKind) String() string {
	switch k {
	case ActionEdit:
		return "edit"
	case ActionDelete:
		return "delete"
	default:
		return fmt.Sprintf("action(%d)", int(k))
	}
}

// ParseAction maps a form value to an ActionKind.
func ParseAction(value string) (ActionKind, error) {
	switch value {
	case "edit":
		return ActionEdit, nil
	case "delete":
		return ActionDelete, nil
	default:
		return 0, fmt.Errorf("%w: unknown action %q", errs.ErrInvalidInput, value)
	}
}
