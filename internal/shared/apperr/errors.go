package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error kinds shared by every workflow package. Callers match them with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	ErrAnalysis     = errors.New("analysis failed")
	ErrGeneration   = errors.New("generation failed")
	ErrStorage      = errors.New("storage failure")
	ErrUnavailable  = errors.New("unavailable")

	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)
)

const (
	CodeValidation        = "validation_error"
	CodeNotFound          = "not_found"
	CodeSessionNotFound   = "session_not_found"
	CodeInvalidState      = "invalid_state"
	CodeConflict          = "conflict"
	CodeAnalysisFailed    = "analysis_failed"
	CodeAnalysisTimeout   = "analysis_timeout"
	CodeGenerationFailed  = "generation_failed"
	CodeGenerationTimeout = "generation_timeout"
	CodeStorage           = "storage_error"
	CodeUnavailable       = "unavailable"
	CodeInternal          = "internal"
)

// Error carries a caller-safe message alongside its kind and the internal cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error of the given kind with a stable message.
func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches an internal cause to a kind and a stable message.
func Wrap(kind error, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Validation(msg string) error   { return New(ErrValidation, msg) }
func InvalidState(msg string) error { return New(ErrInvalidState, msg) }
func NotFound(msg string) error     { return New(ErrNotFound, msg) }

// Storage wraps a persistence failure.
func Storage(op string, err error) error {
	return Wrap(ErrStorage, op, err)
}

// HTTPStatus maps an error to its status code and stable error code.
func HTTPStatus(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity, CodeValidation
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound, CodeSessionNotFound
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict, CodeInvalidState
	case errors.Is(err, ErrAnalysis):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, CodeAnalysisTimeout
		}
		return http.StatusBadGateway, CodeAnalysisFailed
	case errors.Is(err, ErrGeneration):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, CodeGenerationTimeout
		}
		return http.StatusBadGateway, CodeGenerationFailed
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, CodeUnavailable
	case errors.Is(err, ErrStorage):
		return http.StatusInternalServerError, CodeStorage
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// PublicMessage returns the message safe to show a caller. Reasoning and
// storage causes are never exposed.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAnalysis), errors.Is(err, ErrGeneration):
		return "The reasoning service could not complete the request. Please try again."
	case errors.Is(err, ErrStorage):
		return "A storage error occurred. Please try again."
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidState), errors.Is(err, ErrConflict),
		errors.Is(err, ErrUnavailable):
		var e *Error
		if errors.As(err, &e) {
			return e.Msg
		}
		return err.Error()
	default:
		return "Unexpected server error"
	}
}
