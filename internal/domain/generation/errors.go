package generation

import (
	"context"
	"errors"
	"net"
	"net/http"

	apperrors "github.com/yanqian/rihla/pkg/errors"
)

// Error codes surfaced to the HTTP boundary. Extraction and normalization
// never produce any of these.
const (
	CodeInvalidInput        = "invalid_input"
	CodeAuth                = "auth_error"
	CodeRateLimited         = "rate_limited"
	CodeTimeout             = "timeout"
	CodeProviderUnavailable = "provider_unavailable"
)

var taxonomy = map[string]struct{}{
	CodeInvalidInput:        {},
	CodeAuth:                {},
	CodeRateLimited:         {},
	CodeTimeout:             {},
	CodeProviderUnavailable: {},
}

// Classify maps a provider or transport failure onto the closed error taxonomy.
// Errors that already carry a taxonomy code are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := taxonomy[apperrors.CodeOf(err)]; ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.Wrap(CodeTimeout, "the AI provider did not answer in time", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.Wrap(CodeTimeout, "the AI provider did not answer in time", err)
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch code := statusErr.StatusCode; {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return apperrors.Wrap(CodeAuth, "the AI provider rejected the configured credentials", err)
		case code == http.StatusTooManyRequests:
			return apperrors.Wrap(CodeRateLimited, "rate limit exceeded, please try again in a moment", err)
		case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
			return apperrors.Wrap(CodeTimeout, "the AI provider did not answer in time", err)
		case code == http.StatusNotFound:
			return apperrors.Wrap(CodeProviderUnavailable, "the selected AI model is not available, please try again later", err)
		}
	}
	return apperrors.Wrap(CodeProviderUnavailable, "the AI provider is currently unavailable", err)
}

// ClassOf returns the taxonomy code of err, or "" when err is outside it.
func ClassOf(err error) string {
	code := apperrors.CodeOf(err)
	if _, ok := taxonomy[code]; ok {
		return code
	}
	return ""
}

func invalidInput(message string) error {
	return apperrors.Wrap(CodeInvalidInput, message, nil)
}
