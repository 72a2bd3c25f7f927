// Package policy owns insurance policy records and drives their lifecycle.
// The manager is the sole privileged caller of the ownership registry and the
// sole bridge between claim outcomes and policy state.
package policy

import (
	"context"
	"time"

	"github.com/inzo-ai/core-contracts/pkg/identity"
)

// Status is the lifecycle state of a policy.
type Status string

const (
	// StatusPendingPayment and StatusCancelled have no inbound transitions
	// here. Issuance is atomic, so they exist for ledger compatibility only.
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusActive         Status = "ACTIVE"
	StatusLapsed         Status = "LAPSED"
	StatusClaimActive    Status = "CLAIM_ACTIVE"
	StatusPaidOut        Status = "PAID_OUT"
	StatusExpired        Status = "EXPIRED"
	StatusCancelled      Status = "CANCELLED"
)

// terminalForSweep reports whether sweepStatus must leave the status alone.
func terminalForSweep(s Status) bool {
	return s == StatusPaidOut || s == StatusExpired || s == StatusCancelled
}

// Policy is an insurance agreement, identified 1:1 with its ownership token.
// Records are never deleted; terminal policies remain as history.
type Policy struct {
	ID              string           `json:"id"`
	Holder          identity.Address `json:"holder"`
	DeviceID        string           `json:"device_id"`
	Coverage        int64            `json:"coverage"`
	Premium         int64            `json:"premium"`
	PremiumInterval time.Duration    `json:"premium_interval"`
	LastPremiumAt   time.Time        `json:"last_premium_at"`
	EndsAt          time.Time        `json:"ends_at"`
	Status          Status           `json:"status"`
	MetadataURI     string           `json:"metadata_uri"`
	TermsHash       string           `json:"terms_hash"`
	EvidenceHash    string           `json:"evidence_hash,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Store persists policy records by identifier.
type Store interface {
	Put(ctx context.Context, p *Policy) error
	Get(ctx context.Context, id string) (*Policy, error)
}

// Custodian is the slice of the fund vault the manager needs.
type Custodian interface {
	Deposit(ctx context.Context, payer identity.Address, policyID string, amount, paidIn int64) error
}
