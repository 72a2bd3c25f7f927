// Package fault defines the error taxonomy shared by the policy lifecycle
// manager, the claim assessment engine and the fund custody vault. Every
// failure carries a Kind for programmatic matching and a human-readable
// reason. Operations abort with no partial state change on any of these.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// KindUnauthorized — caller lacks the required role or identity.
	KindUnauthorized Kind = "UNAUTHORIZED"
	// KindInvalidState — operation attempted from a state that does not permit it.
	KindInvalidState Kind = "INVALID_STATE"
	// KindExceedsCoverage — requested or assessed amount exceeds policy coverage.
	KindExceedsCoverage Kind = "AMOUNT_EXCEEDS_COVERAGE"
	// KindAmountMismatch — paid-in value does not match the expected amount.
	KindAmountMismatch Kind = "AMOUNT_MISMATCH"
	// KindInsufficientFunds — pooled balance too low for the disbursement.
	KindInsufficientFunds Kind = "INSUFFICIENT_FUNDS"
	// KindTransferFailed — external monetary transfer rejected.
	KindTransferFailed Kind = "TRANSFER_FAILED"
	// KindNotVerified — KYC verification check failed.
	KindNotVerified Kind = "NOT_VERIFIED"
	// KindExpired — policy past its end timestamp.
	KindExpired Kind = "EXPIRED"
	// KindNotFound — no record for the given identifier.
	KindNotFound Kind = "UNKNOWN_RECORD"
	// KindZeroIdentity — null recipient or holder.
	KindZeroIdentity Kind = "ZERO_IDENTITY"
)

// Error is a classified failure with a reason string.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Is matches any *Error of the same Kind, so sentinel comparison with
// errors.Is works: errors.Is(err, fault.ErrUnauthorized).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New builds a classified error with a formatted reason.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, or "" if err carries none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Sentinels for errors.Is matching by kind.
var (
	ErrUnauthorized      = &Error{Kind: KindUnauthorized, Reason: "unauthorized"}
	ErrInvalidState      = &Error{Kind: KindInvalidState, Reason: "invalid state"}
	ErrExceedsCoverage   = &Error{Kind: KindExceedsCoverage, Reason: "amount exceeds coverage"}
	ErrAmountMismatch    = &Error{Kind: KindAmountMismatch, Reason: "amount mismatch"}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds, Reason: "insufficient funds"}
	ErrTransferFailed    = &Error{Kind: KindTransferFailed, Reason: "transfer failed"}
	ErrNotVerified       = &Error{Kind: KindNotVerified, Reason: "not verified"}
	ErrExpired           = &Error{Kind: KindExpired, Reason: "expired"}
	ErrNotFound          = &Error{Kind: KindNotFound, Reason: "unknown record"}
	ErrZeroIdentity      = &Error{Kind: KindZeroIdentity, Reason: "zero identity"}
)
