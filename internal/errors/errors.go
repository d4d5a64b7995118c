package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"
	ErrorTypeDecode     ErrorType = "DECODE_ERROR"
	ErrorTypeInternal   ErrorType = "INTERNAL_ERROR"
)

// APIError classifies a request failure. Only Message reaches the client;
// Details is for logs.
type APIError struct {
	Type    ErrorType
	Message string
	Details error
}

func (e *APIError) Error() string {
	if e.Details == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Details)
}

func (e *APIError) Unwrap() error {
	return e.Details
}

// Error constructors
func NewValidationError(message string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeValidation,
		Message: message,
		Details: err,
	}
}

func NewDecodeError(err error) *APIError {
	return &APIError{
		Type:    ErrorTypeDecode,
		Message: "Failed to decode image",
		Details: err,
	}
}

func NewInternalError(err error) *APIError {
	return &APIError{
		Type:    ErrorTypeInternal,
		Message: "Internal server error",
		Details: err,
	}
}

// Status maps err to the HTTP status the client sees. Undecodable uploads
// are reported as server failures, same as any other error past the form.
func Status(err error) int {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) && apiErr.Type == ErrorTypeValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Message is the client-facing text for err.
func Message(err error) string {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "Internal server error"
}
