package registration

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrPaymentNotCompleted is returned when the provider does not
	// report the payment as succeeded.
	ErrPaymentNotCompleted = errors.New("payment not completed")
	// ErrNotPending is returned when a participant cannot move to the
	// requested state, e.g. confirming a cancelled registration.
	ErrNotPending = errors.New("participant is not pending")
)

// ValidationError lists invalid request fields, keyed by JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
