package claims

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inzo-ai/core-contracts/pkg/authz"
	"github.com/inzo-ai/core-contracts/pkg/events"
	"github.com/inzo-ai/core-contracts/pkg/fault"
	"github.com/inzo-ai/core-contracts/pkg/identity"
	"github.com/inzo-ai/core-contracts/pkg/policy"
)

// Engine owns claim records and their assessment state machine. Like the
// lifecycle manager it serializes operations under one lock and validates
// before mutating.
type Engine struct {
	mu       sync.Mutex
	addr     identity.Address
	roster   *authz.Roster
	store    Store
	policies PolicyBridge
	vault    Disburser
	sink     events.Sink
	screen   *Screen
	limiter  *authz.SubmissionLimiter
	clock    func() time.Time
}

// NewEngine wires the assessment engine. addr is the engine's own identity
// for its privileged calls into the vault and the lifecycle manager; it must
// match the roster's assessment-engine role.
func NewEngine(addr identity.Address, roster *authz.Roster, store Store, policies PolicyBridge, vault Disburser, sink events.Sink) *Engine {
	if sink == nil {
		sink = events.Discard
	}
	return &Engine{
		addr:     addr,
		roster:   roster,
		store:    store,
		policies: policies,
		vault:    vault,
		sink:     sink,
		clock:    time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// WithScreen installs an expression pre-screen applied before triage.
func (e *Engine) WithScreen(s *Screen) *Engine {
	e.screen = s
	return e
}

// WithSubmissionLimiter throttles assessment submissions per assessor.
func (e *Engine) WithSubmissionLimiter(l *authz.SubmissionLimiter) *Engine {
	e.limiter = l
	return e
}

func (e *Engine) selfCtx(ctx context.Context) context.Context {
	return identity.WithAddress(ctx, e.addr)
}

// Register opens a claim against a policy. AI-assessor side only; the relayer
// calls this with the assessor identity after observing a claim intake. At
// most one non-terminal claim may exist per policy. filedAt is the intake
// timestamp observed off-ledger; a zero value falls back to the clock.
func (e *Engine) Register(ctx context.Context, policyID string, claimant identity.Address, incidentHash, evidenceHash string, requestedAmount int64, filedAt time.Time) (*Claim, error) {
	if err := e.roster.Require(ctx, authz.RoleAIAssessor); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if claimant.IsZero() {
		return nil, fault.New(fault.KindZeroIdentity, "claimant is the null identity")
	}
	if open, err := e.store.OpenByPolicy(ctx, policyID); err != nil {
		return nil, err
	} else if open != "" {
		return nil, fault.New(fault.KindInvalidState, "policy %s already has open claim %s", policyID, open)
	}
	// A policy is CLAIM_ACTIVE iff a non-terminal claim exists against it, so
	// registration requires a prior filing.
	status, err := e.policies.StatusOf(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if status != policy.StatusClaimActive {
		return nil, fault.New(fault.KindInvalidState, "policy %s is %s, registration requires CLAIM_ACTIVE", policyID, status)
	}
	coverage, err := e.policies.CoverageOf(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if requestedAmount <= 0 {
		return nil, fault.New(fault.KindAmountMismatch, "requested amount must be positive")
	}
	if requestedAmount > coverage {
		return nil, fault.New(fault.KindExceedsCoverage, "requested %d exceeds coverage %d", requestedAmount, coverage)
	}

	now := e.clock()
	if filedAt.IsZero() {
		filedAt = now
	}
	c := &Claim{
		ID:              uuid.New().String(),
		PolicyID:        policyID,
		Claimant:        claimant,
		IncidentHash:    incidentHash,
		EvidenceHash:    evidenceHash,
		RequestedAmount: requestedAmount,
		Status:          StatusPendingAssessment,
		FiledAt:         filedAt,
		UpdatedAt:       now,
	}
	if err := e.store.Put(ctx, c); err != nil {
		return nil, err
	}

	if err := e.sink.Emit(ctx, events.ClaimReceived, identity.AddressFrom(ctx), map[string]any{
		"claim_id":         c.ID,
		"policy_id":        c.PolicyID,
		"claimant":         string(c.Claimant),
		"requested_amount": c.RequestedAmount,
		"evidence_hash":    c.EvidenceHash,
	}); err != nil {
		return nil, err
	}
	return c, nil
}

// SubmitAssessment records the AI assessor's verdict and triages the claim.
func (e *Engine) SubmitAssessment(ctx context.Context, claimID string, a Assessment) (Status, error) {
	if err := e.roster.Require(ctx, authz.RoleAIAssessor); err != nil {
		return "", err
	}
	if e.limiter != nil && !e.limiter.Allow(identity.AddressFrom(ctx)) {
		return "", fault.New(fault.KindInvalidState, "assessment submission rate exceeded for %s", identity.AddressFrom(ctx))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.store.Get(ctx, claimID)
	if err != nil {
		return "", err
	}
	if !awaitingAssessment(c.Status) {
		return "", fault.New(fault.KindInvalidState, "claim %s is %s, not awaiting assessment", claimID, c.Status)
	}
	coverage, err := e.policies.CoverageOf(ctx, c.PolicyID)
	if err != nil {
		return "", err
	}
	if a.Payout < 0 || a.Payout > coverage {
		return "", fault.New(fault.KindExceedsCoverage, "assessed payout %d outside [0, %d]", a.Payout, coverage)
	}
	if a.Confidence < 0 || a.Confidence > 100 {
		return "", fault.New(fault.KindAmountMismatch, "confidence %d outside [0, 100]", a.Confidence)
	}

	if e.screen != nil {
		if err := e.screen.Check(c, a, coverage); err != nil {
			return "", err
		}
	}

	next := Triage(a, coverage)
	c.AssessedPayout = a.Payout
	c.Confidence = a.Confidence
	c.FraudFlag = a.FraudFlag
	c.ReportHash = a.ReportHash
	c.Status = next
	c.AssessedAt = e.clock()
	c.UpdatedAt = c.AssessedAt
	if err := e.store.Put(ctx, c); err != nil {
		return "", err
	}

	actor := identity.AddressFrom(ctx)
	if err := e.sink.Emit(ctx, events.ClaimAssessmentSubmitted, actor, map[string]any{
		"claim_id":    c.ID,
		"assessor":    string(actor),
		"status":      string(next),
		"payout":      a.Payout,
		"confidence":  a.Confidence,
		"fraud_flag":  a.FraudFlag,
		"report_hash": a.ReportHash,
	}); err != nil {
		return "", err
	}
	return next, e.emitStatusChanged(ctx, c)
}

// RequestClarification parks a pending claim until the claimant supplies
// more material. The reason hash takes the report-hash slot; the next
// assessment overwrites it.
func (e *Engine) RequestClarification(ctx context.Context, claimID, reasonHash string) error {
	if err := e.roster.Require(ctx, authz.RoleAIAssessor); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.store.Get(ctx, claimID)
	if err != nil {
		return err
	}
	if c.Status != StatusPendingAssessment {
		return fault.New(fault.KindInvalidState, "claim %s is %s, clarification requires PENDING_ASSESSMENT", claimID, c.Status)
	}
	c.Status = StatusAIClarificationRequested
	c.ReportHash = reasonHash
	c.UpdatedAt = e.clock()
	if err := e.store.Put(ctx, c); err != nil {
		return err
	}
	return e.emitStatusChanged(ctx, c)
}

// SubmitHumanReview records the reviewer's verdict. A rejection forces the
// payable amount to zero regardless of the AI assessment.
func (e *Engine) SubmitHumanReview(ctx context.Context, claimID string, approve bool, payout int64, reportHash string) error {
	if err := e.roster.Require(ctx, authz.RoleHumanReviewer); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.store.Get(ctx, claimID)
	if err != nil {
		return err
	}
	if !awaitingHumanReview(c.Status) {
		return fault.New(fault.KindInvalidState, "claim %s is %s, not awaiting review", claimID, c.Status)
	}

	if approve {
		coverage, err := e.policies.CoverageOf(ctx, c.PolicyID)
		if err != nil {
			return err
		}
		if payout <= 0 {
			return fault.New(fault.KindAmountMismatch, "approved payout must be positive")
		}
		if payout > coverage {
			return fault.New(fault.KindExceedsCoverage, "approved payout %d exceeds coverage %d", payout, coverage)
		}
		c.Status = StatusHumanApproved
		c.AssessedPayout = payout
	} else {
		c.Status = StatusHumanRejected
		c.AssessedPayout = 0
	}
	if reportHash != "" {
		c.ReportHash = reportHash
	}
	c.UpdatedAt = e.clock()
	if err := e.store.Put(ctx, c); err != nil {
		return err
	}
	return e.emitStatusChanged(ctx, c)
}

// AuthorizePayout moves an approved claim to PAYOUT_AUTHORIZED and attempts
// the disbursement. A failed disbursement leaves the claim authorized with
// the failure recorded; RetryPayout and RevertAuthorization recover it.
func (e *Engine) AuthorizePayout(ctx context.Context, claimID string) error {
	if err := e.roster.RequireAny(ctx, authz.RoleAdmin, authz.RoleHumanReviewer); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.store.Get(ctx, claimID)
	if err != nil {
		return err
	}
	if !payoutEligible(c.Status) {
		return fault.New(fault.KindInvalidState, "claim %s is %s, authorization requires an approved claim", claimID, c.Status)
	}
	if c.AssessedPayout <= 0 {
		return fault.New(fault.KindAmountMismatch, "claim %s has no payable amount", claimID)
	}

	c.AuthorizedFrom = c.Status
	c.Status = StatusPayoutAuthorized
	c.UpdatedAt = e.clock()
	if err := e.store.Put(ctx, c); err != nil {
		return err
	}
	if err := e.sink.Emit(ctx, events.PayoutAuthorized, identity.AddressFrom(ctx), map[string]any{
		"claim_id":  c.ID,
		"recipient": string(c.Claimant),
		"amount":    c.AssessedPayout,
	}); err != nil {
		return err
	}
	if err := e.emitStatusChanged(ctx, c); err != nil {
		return err
	}
	return e.settle(ctx, c)
}

// RetryPayout re-attempts the disbursement of an authorized claim whose
// previous attempt failed. Administrator only.
func (e *Engine) RetryPayout(ctx context.Context, claimID string) error {
	if err := e.roster.Require(ctx, authz.RoleAdmin); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.store.Get(ctx, claimID)
	if err != nil {
		return err
	}
	if c.Status != StatusPayoutAuthorized {
		return fault.New(fault.KindInvalidState, "claim %s is %s, retry requires PAYOUT_AUTHORIZED", claimID, c.Status)
	}
	return e.settle(ctx, c)
}

// RevertAuthorization returns an authorized claim to the approval state it
// was authorized from, so the decision can be reconsidered. Administrator
// only.
func (e *Engine) RevertAuthorization(ctx context.Context, claimID string) error {
	if err := e.roster.Require(ctx, authz.RoleAdmin); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.store.Get(ctx, claimID)
	if err != nil {
		return err
	}
	if c.Status != StatusPayoutAuthorized {
		return fault.New(fault.KindInvalidState, "claim %s is %s, revert requires PAYOUT_AUTHORIZED", claimID, c.Status)
	}
	c.Status = c.AuthorizedFrom
	c.AuthorizedFrom = ""
	c.PayoutFailure = ""
	c.UpdatedAt = e.clock()
	if err := e.store.Put(ctx, c); err != nil {
		return err
	}
	return e.emitStatusChanged(ctx, c)
}

// FinalizeRejected closes a human-rejected claim and releases the policy
// back to ACTIVE.
func (e *Engine) FinalizeRejected(ctx context.Context, claimID string) error {
	if err := e.roster.RequireAny(ctx, authz.RoleAdmin, authz.RoleHumanReviewer); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.store.Get(ctx, claimID)
	if err != nil {
		return err
	}
	if c.Status != StatusHumanRejected {
		return fault.New(fault.KindInvalidState, "claim %s is %s, finalize requires HUMAN_REJECTED", claimID, c.Status)
	}
	c.Status = StatusClosedRejectedFinal
	c.UpdatedAt = e.clock()
	if err := e.store.Put(ctx, c); err != nil {
		return err
	}
	if err := e.policies.ResolveClaim(e.selfCtx(ctx), c.PolicyID, policy.StatusActive); err != nil {
		return err
	}
	return e.emitStatusChanged(ctx, c)
}

// Get returns a claim record.
func (e *Engine) Get(ctx context.Context, claimID string) (*Claim, error) {
	return e.store.Get(ctx, claimID)
}

// settle disburses an authorized claim. On success the claim closes paid and
// the policy resolves to PAID_OUT; on failure the claim stays authorized and
// the failure is recorded and emitted. Caller holds e.mu.
func (e *Engine) settle(ctx context.Context, c *Claim) error {
	self := e.selfCtx(ctx)
	if err := e.vault.Disburse(self, c.Claimant, c.AssessedPayout, c.ID); err != nil {
		c.PayoutFailure = err.Error()
		c.UpdatedAt = e.clock()
		if putErr := e.store.Put(ctx, c); putErr != nil {
			return putErr
		}
		if emitErr := e.sink.Emit(ctx, events.PayoutFailed, identity.AddressFrom(ctx), map[string]any{
			"claim_id": c.ID,
			"amount":   c.AssessedPayout,
			"reason":   err.Error(),
		}); emitErr != nil {
			return emitErr
		}
		return err
	}

	c.Status = StatusClosedPaid
	c.PayoutFailure = ""
	c.UpdatedAt = e.clock()
	if err := e.store.Put(ctx, c); err != nil {
		return err
	}
	if err := e.policies.ResolveClaim(self, c.PolicyID, policy.StatusPaidOut); err != nil {
		return err
	}
	return e.emitStatusChanged(ctx, c)
}

func (e *Engine) emitStatusChanged(ctx context.Context, c *Claim) error {
	return e.sink.Emit(ctx, events.ClaimStatusChanged, identity.AddressFrom(ctx), map[string]any{
		"claim_id":      c.ID,
		"new_status":    string(c.Status),
		"payout_amount": c.AssessedPayout,
	})
}
