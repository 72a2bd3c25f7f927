package policy

import (
	"context"
	"sync"
	"time"

	"github.com/inzo-ai/core-contracts/pkg/authz"
	"github.com/inzo-ai/core-contracts/pkg/canonical"
	"github.com/inzo-ai/core-contracts/pkg/events"
	"github.com/inzo-ai/core-contracts/pkg/fault"
	"github.com/inzo-ai/core-contracts/pkg/identity"
	"github.com/inzo-ai/core-contracts/pkg/kyc"
	"github.com/inzo-ai/core-contracts/pkg/registry"
)

// Manager drives the policy lifecycle state machine. Every operation runs
// under one exclusive lock and validates fully before mutating, so each call
// either commits all of its effects or none of them.
type Manager struct {
	mu       sync.Mutex
	addr     identity.Address
	roster   *authz.Roster
	registry registry.TokenRegistry
	vault    Custodian
	oracle   kyc.Oracle
	store    Store
	sink     events.Sink
	clock    func() time.Time

	// intake collision fallback counters, keyed by derived id
	intakeSeen map[string]uint64
}

// NewManager wires the lifecycle manager. addr is the manager's own
// on-ledger identity, used for its privileged calls into the registry and
// the vault; it must match the roster's lifecycle-manager role.
func NewManager(addr identity.Address, roster *authz.Roster, reg registry.TokenRegistry, vault Custodian, oracle kyc.Oracle, store Store, sink events.Sink) *Manager {
	if sink == nil {
		sink = events.Discard
	}
	return &Manager{
		addr:       addr,
		roster:     roster,
		registry:   reg,
		vault:      vault,
		oracle:     oracle,
		store:      store,
		sink:       sink,
		clock:      time.Now,
		intakeSeen: make(map[string]uint64),
	}
}

// WithClock overrides the clock for deterministic testing.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

// selfCtx re-issues a context with the manager's own identity for nested
// privileged calls (registry mint, vault deposit).
func (m *Manager) selfCtx(ctx context.Context) context.Context {
	return identity.WithAddress(ctx, m.addr)
}

// IssueRequest carries the parameters of a policy issuance.
type IssueRequest struct {
	Holder      identity.Address
	DeviceID    string
	Coverage    int64
	Premium     int64
	Interval    time.Duration
	Duration    time.Duration
	MetadataURI string
	TermsHash   string
	PaidIn      int64
}

// Issue creates a policy: verifies the holder with the KYC oracle, mints the
// ownership token, deposits the first premium and activates the policy.
func (m *Manager) Issue(ctx context.Context, req IssueRequest) (*Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if req.Holder.IsZero() {
		return nil, fault.New(fault.KindZeroIdentity, "policy holder is the null identity")
	}
	if req.Coverage <= 0 || req.Premium <= 0 || req.Interval <= 0 || req.Duration <= 0 {
		return nil, fault.New(fault.KindAmountMismatch, "coverage, premium, interval and duration must be positive")
	}

	verified, err := m.oracle.IsVerified(ctx, req.Holder)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, fault.New(fault.KindNotVerified, "holder %s is not identity-verified", req.Holder)
	}
	if req.PaidIn != req.Premium {
		return nil, fault.New(fault.KindAmountMismatch, "paid-in value %d does not match premium %d", req.PaidIn, req.Premium)
	}

	self := m.selfCtx(ctx)
	policyID, err := m.registry.Mint(self, req.Holder, req.MetadataURI)
	if err != nil {
		return nil, err
	}
	if err := m.vault.Deposit(self, req.Holder, policyID, req.Premium, req.PaidIn); err != nil {
		// Compensate: the token must not outlive a failed issuance.
		_ = m.registry.Burn(self, policyID)
		return nil, err
	}

	now := m.clock()
	p := &Policy{
		ID:              policyID,
		Holder:          req.Holder,
		DeviceID:        req.DeviceID,
		Coverage:        req.Coverage,
		Premium:         req.Premium,
		PremiumInterval: req.Interval,
		LastPremiumAt:   now,
		EndsAt:          now.Add(req.Duration),
		Status:          StatusActive,
		MetadataURI:     req.MetadataURI,
		TermsHash:       req.TermsHash,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := m.store.Put(ctx, p); err != nil {
		return nil, err
	}

	if err := m.sink.Emit(ctx, events.PolicyCreated, identity.AddressFrom(ctx), map[string]any{
		"policy_id":  p.ID,
		"holder":     string(p.Holder),
		"coverage":   p.Coverage,
		"terms_hash": p.TermsHash,
	}); err != nil {
		return nil, err
	}
	return p, nil
}

// RecordPremium records a premium payment by the current token holder.
// A lapsed policy returns to ACTIVE.
func (m *Manager) RecordPremium(ctx context.Context, policyID string, paidIn int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.store.Get(ctx, policyID)
	if err != nil {
		return err
	}
	owner, err := m.registry.OwnerOf(ctx, policyID)
	if err != nil {
		return err
	}
	if identity.AddressFrom(ctx) != owner {
		return fault.New(fault.KindUnauthorized, "caller is not the holder of policy %s", policyID)
	}
	if p.Status != StatusActive && p.Status != StatusLapsed {
		return fault.New(fault.KindInvalidState, "policy %s is %s, premiums accepted only while ACTIVE or LAPSED", policyID, p.Status)
	}
	now := m.clock()
	if now.After(p.EndsAt) {
		return fault.New(fault.KindExpired, "policy %s ended at %s", policyID, p.EndsAt.Format(time.RFC3339))
	}
	if paidIn != p.Premium {
		return fault.New(fault.KindAmountMismatch, "paid-in value %d does not match premium %d", paidIn, p.Premium)
	}

	if err := m.vault.Deposit(m.selfCtx(ctx), owner, policyID, p.Premium, paidIn); err != nil {
		return err
	}

	statusChanged := p.Status == StatusLapsed
	p.Status = StatusActive
	p.LastPremiumAt = now
	p.UpdatedAt = now
	if err := m.store.Put(ctx, p); err != nil {
		return err
	}

	if statusChanged {
		if err := m.emitStatusChanged(ctx, p); err != nil {
			return err
		}
	}
	return m.sink.Emit(ctx, events.PremiumRecorded, identity.AddressFrom(ctx), map[string]any{
		"policy_id":   p.ID,
		"amount":      p.Premium,
		"next_due_at": p.LastPremiumAt.Add(p.PremiumInterval).UTC(),
	})
}

// SweepStatus advances time-dependent status. Callable by anyone and
// idempotent: when no transition is due it is a no-op, not an error.
func (m *Manager) SweepStatus(ctx context.Context, policyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.store.Get(ctx, policyID)
	if err != nil {
		return err
	}
	now := m.clock()
	changed := false

	if p.Status == StatusActive && now.After(p.LastPremiumAt.Add(p.PremiumInterval)) {
		p.Status = StatusLapsed
		changed = true
		if err := m.emitStatusChanged(ctx, p); err != nil {
			return err
		}
	}
	if now.After(p.EndsAt) && !terminalForSweep(p.Status) {
		p.Status = StatusExpired
		changed = true
		if err := m.emitStatusChanged(ctx, p); err != nil {
			return err
		}
	}

	if !changed {
		return nil
	}
	p.UpdatedAt = now
	return m.store.Put(ctx, p)
}

// FileClaim marks an active policy claim-active and emits the intake event
// the off-chain relayer correlates with claim registration.
func (m *Manager) FileClaim(ctx context.Context, policyID, incidentDescription string, evidenceLinks []string, requestedAmount int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.roster.Configured(authz.RoleAssessmentEngine) {
		return "", fault.New(fault.KindInvalidState, "claim processor not configured")
	}

	p, err := m.store.Get(ctx, policyID)
	if err != nil {
		return "", err
	}
	owner, err := m.registry.OwnerOf(ctx, policyID)
	if err != nil {
		return "", err
	}
	caller := identity.AddressFrom(ctx)
	if caller != owner {
		return "", fault.New(fault.KindUnauthorized, "caller is not the holder of policy %s", policyID)
	}
	if p.Status != StatusActive {
		return "", fault.New(fault.KindInvalidState, "policy %s is %s, claims require ACTIVE", policyID, p.Status)
	}
	if requestedAmount <= 0 {
		return "", fault.New(fault.KindAmountMismatch, "requested amount must be positive")
	}
	if requestedAmount > p.Coverage {
		return "", fault.New(fault.KindExceedsCoverage, "requested %d exceeds coverage %d", requestedAmount, p.Coverage)
	}

	now := m.clock()
	evidenceHash := canonical.EvidenceBundleHash(evidenceLinks)
	intakeID, err := canonical.DeriveIntakeID(policyID, string(caller), now, incidentDescription, evidenceHash)
	if err != nil {
		return "", err
	}
	if n, seen := m.intakeSeen[intakeID]; seen {
		m.intakeSeen[intakeID] = n + 1
		intakeID = canonical.WithCounter(intakeID, n+1)
	} else {
		m.intakeSeen[intakeID] = 0
	}

	p.EvidenceHash = evidenceHash
	p.Status = StatusClaimActive
	p.UpdatedAt = now
	if err := m.store.Put(ctx, p); err != nil {
		return "", err
	}

	if err := m.emitStatusChanged(ctx, p); err != nil {
		return "", err
	}
	if err := m.sink.Emit(ctx, events.ClaimIntake, caller, map[string]any{
		"policy_id":        p.ID,
		"claimant":         string(caller),
		"derived_claim_id": intakeID,
		"evidence_hash":    evidenceHash,
		"requested_amount": requestedAmount,
	}); err != nil {
		return "", err
	}
	return intakeID, nil
}

// ResolveClaim sets policy status from a claim outcome. Assessment engine
// only; expected values are PAID_OUT on approval and ACTIVE on rejection.
func (m *Manager) ResolveClaim(ctx context.Context, policyID string, newStatus Status) error {
	if err := m.roster.Require(ctx, authz.RoleAssessmentEngine); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.store.Get(ctx, policyID)
	if err != nil {
		return err
	}
	p.Status = newStatus
	p.UpdatedAt = m.clock()
	if err := m.store.Put(ctx, p); err != nil {
		return err
	}
	return m.emitStatusChanged(ctx, p)
}

// Get returns a policy record.
func (m *Manager) Get(ctx context.Context, policyID string) (*Policy, error) {
	return m.store.Get(ctx, policyID)
}

// CoverageOf returns the coverage amount of a policy. Used by the
// assessment engine to bound requested and assessed amounts.
func (m *Manager) CoverageOf(ctx context.Context, policyID string) (int64, error) {
	p, err := m.store.Get(ctx, policyID)
	if err != nil {
		return 0, err
	}
	return p.Coverage, nil
}

// StatusOf returns the lifecycle status of a policy. Used by the assessment
// engine to refuse claim registration without a prior filing.
func (m *Manager) StatusOf(ctx context.Context, policyID string) (Status, error) {
	p, err := m.store.Get(ctx, policyID)
	if err != nil {
		return "", err
	}
	return p.Status, nil
}

func (m *Manager) emitStatusChanged(ctx context.Context, p *Policy) error {
	return m.sink.Emit(ctx, events.PolicyStatusChanged, identity.AddressFrom(ctx), map[string]any{
		"policy_id":  p.ID,
		"new_status": string(p.Status),
	})
}
