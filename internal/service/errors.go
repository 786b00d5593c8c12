package service

import (
	"errors"
	"fmt"

	"go-stock-ledger/internal/repository"
	"go-stock-ledger/pkg/validator"
)

// Kind classifies a service failure so callers can react without parsing messages.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindValidation           Kind = "validation_failed"
	KindInvalidFormat        Kind = "invalid_format"
	KindStorageUnavailable   Kind = "storage_unavailable"
	KindConfirmationRequired Kind = "confirmation_required"
	KindConflict             Kind = "conflict"
)

// Error is the typed error returned by every service operation.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	// Set for KindConfirmationRequired.
	CurrentStock int
	Requested    int
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrValidation           = &Error{Kind: KindValidation}
	ErrInvalidFormat        = &Error{Kind: KindInvalidFormat}
	ErrStorageUnavailable   = &Error{Kind: KindStorageUnavailable}
	ErrConfirmationRequired = &Error{Kind: KindConfirmationRequired}
	ErrConflict             = &Error{Kind: KindConflict}
)

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func notFound(what string) *Error {
	return newError(KindNotFound, what+" not found", nil)
}

func validationFailed(msg string) *Error {
	return newError(KindValidation, msg, nil)
}

// KindOf extracts the kind of err, defaulting to storage failure for untyped errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindStorageUnavailable
}

// storeErr converts a repository error into a typed service error.
func storeErr(what string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(what)
	}
	return newError(KindStorageUnavailable, "storage error", err)
}

// validateInput runs struct tag validation and reports the first failing field.
func validateInput(v interface{}) error {
	errs := validator.ValidateStruct(v)
	if len(errs) == 0 {
		return nil
	}
	first := errs[0]
	return validationFailed(fmt.Sprintf("Validation failed: Field '%s' failed on tag '%s'", first.FailedField, first.Tag))
}
