package common

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"google.golang.org/grpc/codes"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInternal        = errors.New("internal error")
	ErrDatabase        = errors.New("database error")
	ErrValidation      = errors.New("validation failed")
	ErrUnsupportedFile = errors.New("unsupported file type")

	// Extraction and classification outcomes of external calls.
	ErrAuthentication = errors.New("authentication failed")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrParse          = errors.New("unparseable response")
	ErrExtraction     = errors.New("extraction failed")
	ErrTimeout        = errors.New("external call timed out")
)

const (
	CodeConfig         = "CONFIG_ERROR"
	CodeValidation     = "VALIDATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeAuthentication = "AUTHENTICATION_ERROR"
	CodeRateLimited    = "RATE_LIMITED"
	CodeParse          = "PARSE_ERROR"
	CodeExtraction     = "EXTRACTION_FAILED"
	CodeTimeout        = "TIMEOUT"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func AuthenticationError(message string) error {
	return NewAppError(CodeAuthentication, message, ErrAuthentication)
}

func RateLimitError(message string) error {
	return NewAppError(CodeRateLimited, message, ErrRateLimited)
}

func TimeoutError(message string, cause error) error {
	return NewAppError(CodeTimeout, message, join(ErrTimeout, cause))
}

// ParseError marks data that does not fit the expected shape.
func ParseError(message string, cause error) error {
	return NewAppError(CodeParse, message, join(ErrParse, cause))
}

// ExtractionFailure is the catch-all for OCR, network and provider failures.
func ExtractionFailure(message string, cause error) error {
	return NewAppError(CodeExtraction, message, join(ErrExtraction, cause))
}

func NotFoundError(message string) error {
	return NewAppError(CodeNotFound, message, ErrNotFound)
}

func join(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

// ClassifyHTTPStatus turns a non-2xx provider response into an error kind.
func ClassifyHTTPStatus(statusCode int, body string) error {
	msg := fmt.Sprintf("provider status %d", statusCode)
	if body != "" {
		msg += ": " + truncate(body, 512)
	}
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return AuthenticationError(msg)
	case statusCode == http.StatusTooManyRequests:
		return RateLimitError(msg)
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return TimeoutError(msg, nil)
	default:
		return ExtractionFailure(msg, nil)
	}
}

// ClassifyTransportError maps a failed call (no response) to an error kind.
// Errors that already carry a kind pass through unchanged.
func ClassifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return TimeoutError("deadline exceeded", err)
	}
	return ExtractionFailure("request failed", err)
}

// IsRetryable reports whether the same call may succeed later without a
// configuration or input change.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrAuthentication), errors.Is(err, ErrParse):
		return false
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrTimeout), errors.Is(err, ErrExtraction):
		return true
	default:
		return false
	}
}

// Kind returns the AppError code carried by err, or "" when there is none.
func Kind(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Title is the short user-facing heading for err.
func Title(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "Rate Limit Exceeded"
	case errors.Is(err, ErrAuthentication):
		return "Authentication Error"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedFile):
		return "Invalid Request"
	case errors.Is(err, ErrNotFound):
		return "Not Found"
	default:
		return "Processing Error"
	}
}

// Code maps an error to the closest gRPC status code.
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrAuthentication):
		return codes.Unauthenticated
	case errors.Is(err, ErrRateLimited):
		return codes.ResourceExhausted
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, ErrParse), errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedFile):
		return codes.InvalidArgument
	case errors.Is(err, ErrNotFound):
		return codes.NotFound
	case errors.Is(err, ErrExtraction):
		return codes.Unavailable
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
