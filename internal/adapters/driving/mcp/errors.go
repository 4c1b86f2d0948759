// Package mcp provides an MCP (Model Context Protocol) server adapter for Distill.
// It lets AI assistants query a space's artifacts and ask grounded questions
// about them.
package mcp

import (
	"encoding/json"
	"errors"

	"github.com/custodia-labs/distill/internal/core/domain"
)

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")

// toolError reports a failure to the client as a JSON object carrying the
// error kind and its details, so callers can act on retryAfterMs and
// offending fields without parsing prose.
type toolError struct {
	err *domain.Error
}

// newToolError maps err onto the taxonomy for the client.
func newToolError(err error, op string) error {
	var de *domain.Error
	if !errors.As(err, &de) {
		de = &domain.Error{Kind: domain.KindUpstreamError, Op: op, Message: err.Error(), Err: err}
	}
	return &toolError{err: de}
}

// Error renders {"error": kind, "message": ..., "details": {...}}.
func (e *toolError) Error() string {
	body := struct {
		Error   domain.ErrorKind `json:"error"`
		Message string           `json:"message"`
		Details map[string]any   `json:"details,omitempty"`
	}{e.err.Kind, e.err.Message, e.err.Details}
	data, err := json.Marshal(body)
	if err != nil {
		return e.err.Error()
	}
	return string(data)
}

// Unwrap returns the domain error.
func (e *toolError) Unwrap() error {
	return e.err
}
