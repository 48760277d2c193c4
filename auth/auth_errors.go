package auth

import (
	"fmt"
	"sort"
	"strings"

	clienterrors "github.com/Urientropy/centavo/internal/errors"
)

// ValidationError lists the fields of a payload that failed local validation.
// It is returned before any network call is made.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("%s: %s", clienterrors.ErrInvalidPayload, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return clienterrors.ErrInvalidPayload
}
