package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/rihla/internal/domain/generation"
	apperrors "github.com/yanqian/rihla/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

var statusByCode = map[string]int{
	generation.CodeInvalidInput:        http.StatusBadRequest,
	generation.CodeAuth:                http.StatusUnauthorized,
	generation.CodeRateLimited:         http.StatusTooManyRequests,
	generation.CodeTimeout:             http.StatusGatewayTimeout,
	generation.CodeProviderUnavailable: http.StatusServiceUnavailable,
}

// fromDomainError maps a taxonomy error onto its HTTP status. The user facing
// message is the AppError message; the cause is only logged.
func fromDomainError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		return asHTTPError(err)
	}
	return NewHTTPError(status, code, apperrors.MessageOf(err), err)
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequest(message string, err error) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, generation.CodeInvalidInput, message, err)
}
