package services

import (
	"errors"

	"github.com/soaringjerry/Quizbank/internal/docstore"
	"github.com/soaringjerry/Quizbank/internal/utils"
)

type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorForbidden    ErrorCode = "forbidden"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorConflict     ErrorCode = "conflict"
	ErrorUnauthorized ErrorCode = "unauthorized"
	ErrorBadGateway   ErrorCode = "bad_gateway"
	ErrorUnavailable  ErrorCode = "unavailable"
)

// ServiceError is the error every service returns. Key and Args name the
// message catalogue entry so the transport layer can localize Message.
type ServiceError struct {
	Code    ErrorCode
	Message string
	Key     string
	Args    []any
	// Detail is an optional payload echoed back to the client, e.g. the
	// offending record of a rejected batch.
	Detail any
	Err    error
}

func (e *ServiceError) Error() string { return e.Message }

func (e *ServiceError) Unwrap() error { return e.Err }

// Localized renders the message in locale.
func (e *ServiceError) Localized(locale string) string {
	if e.Key == "" {
		return e.Message
	}
	return utils.T(locale, e.Key, e.Args...)
}

func newError(code ErrorCode, key string, args ...any) *ServiceError {
	return &ServiceError{Code: code, Key: key, Args: args, Message: utils.T("en", key, args...)}
}

func NewInvalidError(key string, args ...any) error  { return newError(ErrorInvalid, key, args...) }
func NewNotFoundError(key string, args ...any) error { return newError(ErrorNotFound, key, args...) }
func NewConflictError(key string, args ...any) error { return newError(ErrorConflict, key, args...) }
func NewUnauthorizedError(key string, args ...any) error {
	return newError(ErrorUnauthorized, key, args...)
}

func NewUnavailableError() error { return newError(ErrorUnavailable, "store.unavailable") }

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsRevisionConflict reports whether err is a conflict raised by a stale
// document revision, as opposed to a duplicate id.
func IsRevisionConflict(err error) bool {
	return errors.Is(err, docstore.ErrConflict)
}

// storeError translates a docstore failure into a ServiceError, keeping the
// original as the cause.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsServiceError(err); ok {
		return err
	}
	var se *ServiceError
	switch {
	case errors.Is(err, docstore.ErrConflict):
		se = newError(ErrorConflict, "store.conflict")
	case errors.Is(err, docstore.ErrNotFound):
		se = newError(ErrorNotFound, "store.transport")
	default:
		se = newError(ErrorBadGateway, "store.transport")
	}
	se.Err = err
	return se
}
