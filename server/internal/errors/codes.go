package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/hrygo/timextag/plugin/temporal"
	"github.com/hrygo/timextag/server/service/tagger"
	"github.com/hrygo/timextag/store"
)

// ErrorCode represents a specific error type returned by the API.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeNotFound indicates the requested document does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeNoReferenceDate indicates no reference date strategy was provided.
	ErrCodeNoReferenceDate ErrorCode = ErrorCode(temporal.KindNoReferenceDate)
	// ErrCodeInvalidDateFormat indicates an explicit date is not a valid YYYY-MM-DD date.
	ErrCodeInvalidDateFormat ErrorCode = ErrorCode(temporal.KindInvalidDateFormat)
	// ErrCodeMissingFileDate indicates the requested file timestamp is unavailable.
	ErrCodeMissingFileDate ErrorCode = ErrorCode(temporal.KindMissingFileDate)
	// ErrCodeNoValidDateInAnnotations indicates no input annotation holds a valid date.
	ErrCodeNoValidDateInAnnotations ErrorCode = ErrorCode(temporal.KindNoValidDateInAnnotations)
	// ErrCodeInvalidSpan indicates annotation offsets that do not fit the document.
	ErrCodeInvalidSpan ErrorCode = ErrorCode(temporal.KindInvalidSpan)
	// ErrCodeExtractorUnavailable indicates the extraction engine failed.
	ErrCodeExtractorUnavailable ErrorCode = "EXTRACTOR_UNAVAILABLE"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// APIError represents a structured error returned by the API.
type APIError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *APIError) WithContext(key string, value interface{}) *APIError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// HTTPStatus returns the HTTP status of the error code.
func (e *APIError) HTTPStatus() int {
	return StatusOf(e.Code)
}

// StatusOf maps an error code to an HTTP status.
func StatusOf(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidArgument, ErrCodeNoReferenceDate, ErrCodeInvalidDateFormat, ErrCodeInvalidSpan:
		return http.StatusBadRequest
	case ErrCodeMissingFileDate, ErrCodeNoValidDateInAnnotations:
		return http.StatusUnprocessableEntity
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeExtractorUnavailable:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeContextCanceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *APIError {
	return &APIError{Code: ErrCodeInvalidArgument, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *APIError {
	return &APIError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *APIError {
	return &APIError{Code: ErrCodeNotFound, Message: msg}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *APIError {
	return &APIError{Code: code, Message: msg, Cause: cause}
}

// FromError classifies any error returned by the tagging pipeline.
func FromError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	// Timeouts first: an extractor failure caused by the deadline is a timeout.
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "operation timed out")
	case stderrors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeContextCanceled, "operation canceled")
	}

	var temporalErr *temporal.Error
	if stderrors.As(err, &temporalErr) {
		apiErr := Wrap(err, ErrorCode(temporalErr.Kind), temporalErr.Message)
		if temporalErr.Value != "" {
			apiErr.WithContext("value", temporalErr.Value)
		}
		return apiErr
	}

	var extractionErr *tagger.ExtractionError
	switch {
	case stderrors.As(err, &extractionErr):
		return Wrap(err, ErrCodeExtractorUnavailable, "temporal extraction failed")
	case stderrors.Is(err, store.ErrDocumentNotFound):
		return Wrap(err, ErrCodeNotFound, "document not found")
	case stderrors.Is(err, store.ErrInvalidSpan):
		return Wrap(err, ErrCodeInvalidSpan, "annotation span does not fit the document")
	case stderrors.Is(err, tagger.ErrNoDocumentText):
		return Wrap(err, ErrCodeInvalidArgument, tagger.ErrNoDocumentText.Error())
	}
	return Wrap(err, ErrCodeInternal, "internal error")
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an APIError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Code
	}
	return defaultCode
}
