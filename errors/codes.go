package errors

import "net/http"

// ErrorCode is the machine-readable kind of an AppError.
type ErrorCode string

// Pipeline construction and execution.
const (
	ErrCodeConstruction    ErrorCode = "CONSTRUCTION_ERROR"
	ErrCodeSerialization   ErrorCode = "SERIALIZATION_ERROR"
	ErrCodeDeserialization ErrorCode = "DESERIALIZATION_ERROR"
	ErrCodeTransform       ErrorCode = "TRANSFORM_ERROR"
	ErrCodeEngineCall      ErrorCode = "ENGINE_CALL_ERROR"
	ErrCodeInvalidState    ErrorCode = "INVALID_STATE"
)

// Store, broker and admin API.
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField       ErrorCode = "MISSING_FIELD"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeExternalService    ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

type codeInfo struct {
	status    int
	retryable bool
}

// Engine calls are never retried locally; the caller decides.
var codes = map[ErrorCode]codeInfo{
	ErrCodeConstruction:       {http.StatusBadRequest, false},
	ErrCodeSerialization:      {http.StatusUnprocessableEntity, false},
	ErrCodeDeserialization:    {http.StatusUnprocessableEntity, false},
	ErrCodeTransform:          {http.StatusUnprocessableEntity, false},
	ErrCodeEngineCall:         {http.StatusBadGateway, false},
	ErrCodeInvalidState:       {http.StatusConflict, false},
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, true},
	ErrCodeConnectionFailed:   {http.StatusServiceUnavailable, true},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, true},
	ErrCodeNotFound:           {http.StatusNotFound, false},
	ErrCodeInvalidInput:       {http.StatusBadRequest, false},
	ErrCodeMissingField:       {http.StatusBadRequest, false},
	ErrCodeInternal:           {http.StatusInternalServerError, false},
	ErrCodeExternalService:    {http.StatusBadGateway, true},
}

// Status is the HTTP status the admin API answers with. Unknown codes map
// to 500.
func (c ErrorCode) Status() int {
	if info, ok := codes[c]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// IsRetryableCode reports whether a failure with this code may succeed on retry.
func IsRetryableCode(code ErrorCode) bool {
	return codes[code].retryable
}
