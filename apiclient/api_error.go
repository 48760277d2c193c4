package apiclient

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	clienterrors "github.com/Urientropy/centavo/internal/errors"
	"github.com/tidwall/gjson"
)

// APIError is a request the server answered with a non 2xx status.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       []byte

	// Detail is the "detail" message of the response, when present.
	Detail string
	// Fields maps field names to validation messages, including
	// non_field_errors.
	Fields map[string][]string
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	e := &APIError{
		StatusCode: status,
		Method:     method,
		Path:       path,
		Body:       body,
	}
	if !gjson.ValidBytes(body) {
		return e
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return e
	}
	parsed.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if name == "detail" {
			e.Detail = value.String()
			return true
		}
		if e.Fields == nil {
			e.Fields = make(map[string][]string)
		}
		if value.IsArray() {
			for _, msg := range value.Array() {
				e.Fields[name] = append(e.Fields[name], msg.String())
			}
		} else {
			e.Fields[name] = append(e.Fields[name], value.String())
		}
		return true
	})
	return e
}

func (e *APIError) Error() string {
	msg := e.Message()
	if msg == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// Message renders Detail or the field errors as one line.
func (e *APIError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if len(e.Fields) == 0 {
		return ""
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], " ")))
	}
	return strings.Join(parts, "; ")
}

// FieldError returns the first message for a field, or "".
func (e *APIError) FieldError(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// HasBody reports whether the server sent a response body worth surfacing.
func (e *APIError) HasBody() bool {
	return len(strings.TrimSpace(string(e.Body))) > 0
}

// Unwrap maps a rejected credential to ErrUnauthorized and a server fault to
// ErrUnexpected.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return clienterrors.ErrUnauthorized
	case e.StatusCode >= http.StatusInternalServerError:
		return clienterrors.ErrUnexpected
	}
	return nil
}
