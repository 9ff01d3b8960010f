package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUsage         = errors.New("usage error")
	ErrConfiguration = errors.New("configuration error")
	ErrTransport     = errors.New("transport error")
	ErrFormat        = errors.New("format error")
	ErrInvalidFilter = errors.New("invalid filter")
)

// UsageError reports a missing argument or an unknown command. Usage holds a
// hint shown to the user after the error line.
type UsageError struct {
	Problem string
	Usage   string
}

func (e *UsageError) Error() string {
	return e.Problem
}

func (e *UsageError) Unwrap() error {
	return ErrUsage
}

// ErrSchemaViolation is returned when a response body does not have the
// change list envelope. The Errors field contains machine-readable details.
type ErrSchemaViolation struct {
	Errors []string
}

func (e *ErrSchemaViolation) Error() string {
	return fmt.Sprintf("unexpected response shape: %s", strings.Join(e.Errors, "; "))
}

func (e *ErrSchemaViolation) Unwrap() error {
	return ErrFormat
}

// FilterError carries per-parameter problems found while parsing a change
// list request, keyed by query parameter name.
type FilterError struct {
	Fields map[string]string
}

func (e *FilterError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid filter: " + strings.Join(parts, ", ")
}

func (e *FilterError) Unwrap() error {
	return ErrInvalidFilter
}
