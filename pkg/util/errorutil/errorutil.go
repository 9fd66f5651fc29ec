package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a DomainError independently of its message.
type Kind string

const (
	KindMissingToken       Kind = "MISSING_TOKEN"
	KindInvalidToken       Kind = "INVALID_TOKEN"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindForbidden          Kind = "FORBIDDEN"
	KindInvalidRequest     Kind = "INVALID_REQUEST"
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindRateLimited        Kind = "RATE_LIMITED"
	KindInternal           Kind = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Kind       Kind
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports kind equality so errors.Is(err, &DomainError{Kind: KindForbidden}) works.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewDomainError constructs a DomainError.
func NewDomainError(kind Kind, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Kind: kind, Message: message, HTTPStatus: status, Details: details}
}

func NewMissingToken(message string) error {
	return NewDomainError(KindMissingToken, message, http.StatusUnauthorized, nil)
}

func NewInvalidToken(message string) error {
	return NewDomainError(KindInvalidToken, message, http.StatusUnauthorized, nil)
}

// NewInvalidCredentials hides which login check failed.
func NewInvalidCredentials() error {
	return NewDomainError(KindInvalidCredentials, "invalid credentials or inactive user", http.StatusUnauthorized, nil)
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(KindInvalidRequest, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Kind:       KindNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewForbidden(message string) error {
	return NewDomainError(KindForbidden, message, http.StatusForbidden, nil)
}

// NewConflict reports a uniqueness or reference violation. It renders as 400:
// clients treat it as a validation failure.
func NewConflict(message string, details map[string]any) error {
	return NewDomainError(KindConflict, message, http.StatusBadRequest, details)
}

func NewRateLimited(message string) error {
	return NewDomainError(KindRateLimited, message, http.StatusTooManyRequests, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Kind:       KindInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Kind:       KindInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return ToDomainError(err).Kind
}

func MapError(err error) error {
	return ToDomainError(err)
}
