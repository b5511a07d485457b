package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// Money errors.
var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrArithmetic    = errors.New("arithmetic error")
)

// Ledger and hierarchy errors.
var (
	ErrUnbalancedEntry     = errors.New("journal entry is not balanced")
	ErrInvalidLine         = errors.New("journal line must have exactly one positive side")
	ErrInvalidAccount      = errors.New("invalid account")
	ErrInvalidParent       = errors.New("invalid parent account")
	ErrAccountInUse        = errors.New("account is in use")
	ErrDuplicateCode       = errors.New("account code already exists")
	ErrInvalidFiscalPeriod = errors.New("invalid fiscal period")
	ErrAlreadyApproved     = errors.New("journal entry already approved")
	ErrImmutableRecord     = errors.New("record is immutable")
)

// Savings and loan errors.
var (
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrDuplicateDeposit     = errors.New("duplicate deposit")
	ErrWithdrawalNotAllowed = errors.New("withdrawal not allowed")
)

// SHU plan lifecycle errors.
var (
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrCalculationInProgress   = errors.New("calculation in progress")
	ErrCalculationTimeout      = errors.New("calculation timed out")
	ErrShuCalculationFailed    = errors.New("shu calculation failed")
)

// ErrCrossTenantAccess is returned when a row read through a tenant handle
// belongs to another tenant.
var ErrCrossTenantAccess = errors.New("cross-tenant access")

// Transient infrastructure errors. Callers may retry these.
var (
	ErrLockTimeout      = errors.New("lock timeout")
	ErrStoreUnavailable = errors.New("store unavailable")
)

var transientKinds = []error{ErrLockTimeout, ErrStoreUnavailable}

// AppError carries an error kind (one of the sentinels above), a message and
// an optional underlying cause. errors.Is matches both the kind and the cause.
type AppError struct {
	Kind    error
	Message string
	Err     error
}

// NewAppError creates a new AppError.
func NewAppError(kind error, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	msg := e.Message
	if e.Kind != nil {
		if msg == "" {
			msg = e.Kind.Error()
		} else {
			msg = e.Kind.Error() + ": " + msg
		}
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewValidationError is a shortcut for a validation AppError.
func NewValidationError(message string) *AppError {
	return NewAppError(ErrValidation, message, nil)
}

// NewNotFoundError is a shortcut for a not found AppError.
func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrNotFound, message, nil)
}

// IsTransient reports whether err is an infrastructure failure that may
// succeed on retry. Domain rule violations are never transient.
func IsTransient(err error) bool {
	for _, kind := range transientKinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
