package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the error type shared by the builder, the engine and the admin API.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the cause and returns e.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges details into e and returns e.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	for k, v := range details {
		e.WithDetail(k, v)
	}
	return e
}

// WithDetail sets one detail and returns e.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, 1)
	}
	e.Details[key] = value
	return e
}

// New returns an AppError whose status and retryability follow code.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: code.Status(),
		Retryable:  IsRetryableCode(code),
	}
}

// Is reports whether the first AppError in err's chain carries code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

// CodeOf returns the code of the first AppError in err's chain, or
// ErrCodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// Construction reports a builder created from invalid inputs.
func Construction(reason string) *AppError {
	return New(ErrCodeConstruction, reason)
}

// Serialization reports a value that could not be encoded.
func Serialization(what string, cause error) *AppError {
	return New(ErrCodeSerialization, "Unable to serialize "+what+".").WithCause(cause)
}

// Deserialization reports bytes or a reference that could not be decoded.
func Deserialization(what string, cause error) *AppError {
	return New(ErrCodeDeserialization, "Unable to deserialize "+what+".").WithCause(cause)
}

// Transform reports a user function that failed on one record. A non-empty
// trace is kept under the "trace" detail and never leaves the process.
func Transform(step string, cause error, trace string) *AppError {
	e := New(ErrCodeTransform, "Step "+step+" failed.").WithCause(cause).WithDetail("step", step)
	if trace != "" {
		e.WithDetail("trace", trace)
	}
	return e
}

// EngineCall reports a failed engine primitive.
func EngineCall(primitive string, cause error) *AppError {
	return New(ErrCodeEngineCall, "Engine call "+primitive+" failed.").
		WithCause(cause).
		WithDetail("primitive", primitive)
}

// InvalidState reports an operation not allowed in the current lifecycle state.
func InvalidState(reason string) *AppError {
	return New(ErrCodeInvalidState, reason)
}

func ServiceUnavailable(service string) *AppError {
	return New(ErrCodeServiceUnavailable, fmt.Sprintf("The %s is temporarily unavailable.", service)).
		WithDetail("service", service)
}

func ConnectionFailed(service string) *AppError {
	return New(ErrCodeConnectionFailed, fmt.Sprintf("Unable to connect to %s.", service)).
		WithDetail("service", service)
}

// NotFound reports a missing resource; id is optional.
func NotFound(resource, id string) *AppError {
	e := New(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource)).
		WithDetail("resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

func InvalidInput(field, reason string) *AppError {
	e := New(ErrCodeInvalidInput, "Invalid input: "+reason)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// Validation carries a pre-rendered list of field failures.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message)
}

func MissingField(field string) *AppError {
	return New(ErrCodeMissingField, "Missing required field: "+field).WithDetail("field", field)
}

// Internal hides cause behind a generic message.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred.").WithCause(cause)
}

func ExternalServiceError(service string, cause error) *AppError {
	return New(ErrCodeExternalService, fmt.Sprintf("The %s service returned an error.", service)).
		WithCause(cause).
		WithDetail("service", service)
}
