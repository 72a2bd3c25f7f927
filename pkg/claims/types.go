// Package claims implements the tiered claim assessment engine: an AI
// assessor proposes, deterministic rules triage, a human reviewer decides
// the contested middle, and the administrator authorizes the money.
package claims

import (
	"context"
	"time"

	"github.com/inzo-ai/core-contracts/pkg/identity"
	"github.com/inzo-ai/core-contracts/pkg/policy"
)

// Status is the assessment state of a claim.
type Status string

const (
	StatusPendingAssessment        Status = "PENDING_ASSESSMENT"
	StatusAIApprovedLowRisk        Status = "AI_APPROVED_LOW_RISK"
	StatusAIApprovedNeedsReview    Status = "AI_APPROVED_NEEDS_REVIEW"
	StatusAIRejectedNeedsReview    Status = "AI_REJECTED_NEEDS_REVIEW"
	StatusAIClarificationRequested Status = "AI_CLARIFICATION_REQUESTED"
	StatusAINeedsHumanReview       Status = "AI_NEEDS_HUMAN_REVIEW"
	StatusHumanApproved            Status = "HUMAN_APPROVED"
	StatusHumanRejected            Status = "HUMAN_REJECTED"
	StatusPayoutAuthorized         Status = "PAYOUT_AUTHORIZED"
	StatusClosedPaid               Status = "CLOSED_PAID"
	StatusClosedRejectedFinal      Status = "CLOSED_REJECTED_FINAL"
)

// Terminal reports whether a claim can no longer change state.
func (s Status) Terminal() bool {
	return s == StatusClosedPaid || s == StatusClosedRejectedFinal
}

// awaitingHumanReview covers every status a human verdict may follow.
func awaitingHumanReview(s Status) bool {
	switch s {
	case StatusAIApprovedNeedsReview, StatusAIRejectedNeedsReview, StatusAINeedsHumanReview:
		return true
	}
	return false
}

// awaitingAssessment covers every status an AI verdict may follow.
func awaitingAssessment(s Status) bool {
	return s == StatusPendingAssessment || s == StatusAIClarificationRequested
}

// payoutEligible covers every status payout authorization may follow.
func payoutEligible(s Status) bool {
	return s == StatusAIApprovedLowRisk || s == StatusHumanApproved
}

// Assessment is the AI assessor's verdict on a claim.
type Assessment struct {
	Payout     int64  `json:"payout"`
	Confidence int    `json:"confidence"`
	FraudFlag  bool   `json:"fraud_flag"`
	ReportHash string `json:"report_hash"`
}

// Claim is one registered claim against a policy.
type Claim struct {
	ID              string           `json:"id"`
	PolicyID        string           `json:"policy_id"`
	Claimant        identity.Address `json:"claimant"`
	IncidentHash    string           `json:"incident_hash"`
	EvidenceHash    string           `json:"evidence_hash"`
	RequestedAmount int64            `json:"requested_amount"`
	AssessedPayout  int64            `json:"assessed_payout"`
	Confidence      int              `json:"confidence"`
	FraudFlag       bool             `json:"fraud_flag"`
	ReportHash      string           `json:"report_hash"`
	Status          Status           `json:"status"`
	AuthorizedFrom  Status           `json:"authorized_from,omitempty"`
	PayoutFailure   string           `json:"payout_failure,omitempty"`
	FiledAt         time.Time        `json:"filed_at"`
	AssessedAt      time.Time        `json:"assessed_at,omitempty"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Store persists claim records by identifier.
type Store interface {
	Put(ctx context.Context, c *Claim) error
	Get(ctx context.Context, id string) (*Claim, error)
	// OpenByPolicy returns the id of the non-terminal claim held against a
	// policy, or "" when none exists.
	OpenByPolicy(ctx context.Context, policyID string) (string, error)
}

// PolicyBridge is the slice of the lifecycle manager the engine needs.
type PolicyBridge interface {
	CoverageOf(ctx context.Context, policyID string) (int64, error)
	StatusOf(ctx context.Context, policyID string) (policy.Status, error)
	ResolveClaim(ctx context.Context, policyID string, newStatus policy.Status) error
}

// Disburser is the slice of the fund vault the engine needs.
type Disburser interface {
	Disburse(ctx context.Context, recipient identity.Address, amount int64, claimID string) error
}
