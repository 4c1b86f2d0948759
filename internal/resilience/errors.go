package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
)

// MapError maps a raw failure onto the fixed error taxonomy. Errors that
// already carry a kind pass through unchanged; when their op is missing a
// copy is returned with op filled in.
func MapError(err error, op string) *domain.Error {
	if err == nil {
		return nil
	}

	var de *domain.Error
	if errors.As(err, &de) {
		if de.Op != "" {
			return de
		}
		filled := *de
		filled.Op = op
		return &filled
	}

	mapped := &domain.Error{Op: op, Err: err, Message: err.Error()}

	var se *driven.StatusError
	var ne net.Error
	switch {
	case errors.As(err, &se):
		mapped.UpstreamStatus = se.Code
		mapped.Kind = kindForStatus(se.Code)
		mapped.WithDetail("status", se.Code)
	case domain.IsParseError(err):
		mapped.Kind = domain.KindBadOutput
	case errors.Is(err, context.DeadlineExceeded):
		mapped.Kind = domain.KindUpstreamTimeout
	case errors.Is(err, context.Canceled):
		mapped.Kind = domain.KindUpstreamError
		mapped.Message = "request cancelled"
	case errors.As(err, &ne):
		if ne.Timeout() {
			mapped.Kind = domain.KindUpstreamTimeout
		} else {
			mapped.Kind = domain.KindUpstreamError
		}
	case errors.Is(err, domain.ErrNotFound):
		mapped.Kind = domain.KindInvalidRequest
		mapped.UpstreamStatus = http.StatusNotFound
	case errors.Is(err, domain.ErrOutsideSpace), errors.Is(err, domain.ErrInvalidInput):
		mapped.Kind = domain.KindInvalidRequest
	case errors.Is(err, domain.ErrRateLimited):
		mapped.Kind = domain.KindRateLimited
	case errors.Is(err, domain.ErrLLMUnavailable):
		mapped.Kind = domain.KindNotConfigured
	default:
		mapped.Kind = domain.KindUpstreamError
	}

	mapped.WithDetail("operation", op)
	return mapped
}

func kindForStatus(code int) domain.ErrorKind {
	switch {
	case code == http.StatusTooManyRequests:
		return domain.KindRateLimited
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return domain.KindUpstreamTimeout
	case code >= 400 && code < 500:
		return domain.KindInvalidRequest
	default:
		return domain.KindUpstreamError
	}
}

// IsNotFound reports whether err describes a missing object, however the
// adapter or mapper expressed it.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrNotFound) {
		return true
	}
	var se *driven.StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return true
	}
	var de *domain.Error
	return errors.As(err, &de) && de.UpstreamStatus == http.StatusNotFound
}
