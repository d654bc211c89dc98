package usertable

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/lllypuk/useradmin/internal/domain/errs"
)

// Controller errors. Each wraps a domain sentinel so callers can match either.
var (
	ErrNoSelection     = fmt.Errorf("%w: no user selected", errs.ErrInvalidState)
	ErrNoPendingAction = fmt.Errorf("%w: no matching action awaits confirmation", errs.ErrInvalidState)
	ErrUserNotFound    = fmt.Errorf("%w: user", errs.ErrNotFound)
	ErrViewNotFound    = fmt.Errorf("%w: view", errs.ErrNotFound)
)

// ValidationError carries field-level problems of the edit form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return errs.ErrValidationFailed.Error() + ": " + strings.Join(parts, ", ")
}

// Is matches errs.ErrValidationFailed.
func (e *ValidationError) Is(target error) bool {
	return target == errs.ErrValidationFailed
}

// FieldErrors returns the problems keyed by form field.
func (e *ValidationError) FieldErrors() map[string]string {
	return maps.Clone(e.Fields)
}
