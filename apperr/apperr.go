// Package apperr defines the error taxonomy shared by the catalog, ledger,
// payment and HTTP layers. Services return (possibly wrapped) sentinels from
// this package and handlers turn them into status codes with KindOf.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindStateConflict
	// KindTrustBoundary covers rejected payment confirmations.
	KindTrustBoundary
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindStateConflict:
		return "state_conflict"
	case KindTrustBoundary:
		return "trust_boundary"
	default:
		return "internal"
	}
}

// Error is a classified failure. Sentinels are compared by identity, so wrap
// them with fmt.Errorf("...: %w", ErrX) to add context.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrUnauthorized = New(KindUnauthorized, "unauthorized")
	ErrForbidden    = New(KindForbidden, "forbidden")

	ErrNotFound     = New(KindNotFound, "not found")
	ErrItemNotFound = New(KindNotFound, "menu item not found")

	ErrInvalidTransition = New(KindStateConflict, "invalid status transition")
	ErrNotCompleted      = New(KindStateConflict, "only completed orders can be deleted")
	ErrVendorMismatch    = New(KindStateConflict, "all items must come from the same vendor")
	ErrDuplicatePayment  = New(KindStateConflict, "payment intent already used for another order")
	ErrEmailTaken        = New(KindStateConflict, "email already registered")

	ErrInvalidSignature = New(KindTrustBoundary, "invalid payment signature")
	ErrPriceMismatch    = New(KindTrustBoundary, "declared total does not match catalog prices")
	ErrChargeMismatch   = New(KindTrustBoundary, "declared total does not match the amount charged")
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Invalid(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

// KindOf classifies err. Anything unrecognised is internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var v ValidationError
	if errors.As(err, &v) {
		return KindValidation
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage is the text safe to show a client. Internal failures never
// leak their cause.
func PublicMessage(err error) string {
	if KindOf(err) == KindInternal {
		return "internal server error"
	}
	var v ValidationError
	if errors.As(err, &v) {
		return v.Error()
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
