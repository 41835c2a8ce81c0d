package core

import (
	"errors"
	"fmt"
)

// ErrorCode is a machine-readable failure category surfaced to callers.
type ErrorCode string

const (
	ErrorCodeNotFound          ErrorCode = "SUBSCRIPTION_NOT_FOUND"
	ErrorCodeSourceInvalid     ErrorCode = "SOURCE_INVALID"
	ErrorCodeSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"
	ErrorCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrorCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyName     = errors.New("empty name")
)

// DomainError is a structured failure with a code, a human readable message
// and optional details.
type DomainError struct {
	Err     error
	Details map[string]any
	Code    ErrorCode
	Message string
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Details: make(map[string]any)}
}

func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Details: make(map[string]any), Err: err}
}

// NotFound reports that identifier resolved to no subscription.
func NotFound(identifier string) *DomainError {
	return NewDomainError(ErrorCodeNotFound, fmt.Sprintf("Subscription '%s' not found", identifier)).
		WithDetail("identifier", identifier)
}

// InvalidSource reports an ingestion source outside the recognised set.
func InvalidSource(source string) *DomainError {
	return NewDomainError(ErrorCodeSourceInvalid, fmt.Sprintf("Unknown source '%s'", source)).
		WithDetail("source", source)
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

func IsNotFound(err error) bool   { return IsDomainError(err, ErrorCodeNotFound) }
func IsValidation(err error) bool { return IsDomainError(err, ErrorCodeValidationFailed) }

// GetErrorCode extracts the error code, or "" when err is not a DomainError.
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// GetMessage returns the domain message, or a generic text for other errors.
func GetMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "internal error"
}
