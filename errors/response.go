package errors

import (
	stderrors "errors"
)

// Response is the JSON body the admin API writes for a failed request.
type Response struct {
	Error ResponseBody `json:"error"`
}

// ResponseBody mirrors AppError without the cause chain.
type ResponseBody struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToResponse builds the wire body. Stack traces captured for transform
// failures stay in logs and are not sent to clients.
func (e *AppError) ToResponse() Response {
	body := ResponseBody{Code: e.Code, Message: e.Message, Retryable: e.Retryable}
	for k, v := range e.Details {
		if k == "trace" {
			continue
		}
		if body.Details == nil {
			body.Details = make(map[string]any, len(e.Details))
		}
		body.Details[k] = v
	}
	return Response{Error: body}
}

// AsAppError returns the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// From returns err as an AppError, wrapping anything else as Internal.
// A nil err yields nil.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}
