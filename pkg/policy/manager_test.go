package policy_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/inzo-ai/core-contracts/pkg/authz"
	"github.com/inzo-ai/core-contracts/pkg/custody"
	"github.com/inzo-ai/core-contracts/pkg/events"
	"github.com/inzo-ai/core-contracts/pkg/fault"
	"github.com/inzo-ai/core-contracts/pkg/identity"
	"github.com/inzo-ai/core-contracts/pkg/kyc"
	"github.com/inzo-ai/core-contracts/pkg/policy"
	"github.com/inzo-ai/core-contracts/pkg/registry"
	"github.com/inzo-ai/core-contracts/pkg/store"
)

const (
	admin  = identity.Address("addr-admin")
	mgr    = identity.Address("addr-mgr")
	engine = identity.Address("addr-eng")
	holder = identity.Address("addr-holder")
)

type fixture struct {
	manager  *policy.Manager
	registry *registry.InMemoryRegistry
	vault    *custody.Vault
	log      *events.Log
	now      time.Time
}

func as(addr identity.Address) context.Context {
	return identity.WithAddress(context.Background(), addr)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	roster := authz.NewRoster(admin).
		Set(authz.RoleLifecycleManager, mgr).
		Set(authz.RoleAssessmentEngine, engine)
	reg := registry.NewInMemoryRegistry(roster)
	log := events.NewLog()
	vault := custody.NewVault(roster, custody.NewMemoryAgent(), log)
	oracle := kyc.NewStaticOracle(roster)
	if err := oracle.SetVerified(as(admin), holder, true); err != nil {
		t.Fatalf("verify holder: %v", err)
	}

	f := &fixture{
		registry: reg,
		vault:    vault,
		log:      log,
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.manager = policy.NewManager(mgr, roster, reg, vault, oracle, store.NewMemory(), log).
		WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) issue(t *testing.T) *policy.Policy {
	t.Helper()
	p, err := f.manager.Issue(as(holder), policy.IssueRequest{
		Holder:   holder,
		DeviceID: "device-7",
		Coverage: 100_000,
		Premium:  500,
		Interval: 30 * 24 * time.Hour,
		Duration: 365 * 24 * time.Hour,
		PaidIn:   500,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return p
}

func TestIssue(t *testing.T) {
	f := newFixture(t)
	p := f.issue(t)

	if p.Status != policy.StatusActive {
		t.Errorf("status = %s", p.Status)
	}
	if f.vault.Balance() != 500 {
		t.Errorf("pool balance = %d", f.vault.Balance())
	}
	owner, err := f.registry.OwnerOf(context.Background(), p.ID)
	if err != nil || owner != holder {
		t.Errorf("token owner = %s, %v", owner, err)
	}
	if len(f.log.OfType(events.PolicyCreated)) != 1 {
		t.Error("expected PolicyCreated event")
	}
}

func TestIssue_UnverifiedHolder(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Issue(as(holder), policy.IssueRequest{
		Holder:   "addr-stranger",
		Coverage: 100_000,
		Premium:  500,
		Interval: time.Hour,
		Duration: time.Hour,
		PaidIn:   500,
	})
	if !errors.Is(err, fault.ErrNotVerified) {
		t.Errorf("expected NotVerified, got %v", err)
	}
	if f.vault.Balance() != 0 {
		t.Error("failed issuance must not move funds")
	}
}

func TestIssue_PremiumMismatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Issue(as(holder), policy.IssueRequest{
		Holder:   holder,
		Coverage: 100_000,
		Premium:  500,
		Interval: time.Hour,
		Duration: time.Hour,
		PaidIn:   499,
	})
	if !errors.Is(err, fault.ErrAmountMismatch) {
		t.Errorf("expected AmountMismatch, got %v", err)
	}
}

type failingCustodian struct {
	lastPolicyID string
}

func (c *failingCustodian) Deposit(ctx context.Context, payer identity.Address, policyID string, amount, paidIn int64) error {
	c.lastPolicyID = policyID
	return fault.New(fault.KindTransferFailed, "settlement backend down")
}

func TestIssue_DepositFailureBurnsToken(t *testing.T) {
	roster := authz.NewRoster(admin).Set(authz.RoleLifecycleManager, mgr)
	reg := registry.NewInMemoryRegistry(roster)
	oracle := kyc.NewStaticOracle(roster)
	if err := oracle.SetVerified(as(admin), holder, true); err != nil {
		t.Fatal(err)
	}
	custodian := &failingCustodian{}
	m := policy.NewManager(mgr, roster, reg, custodian, oracle, store.NewMemory(), nil)

	_, err := m.Issue(as(holder), policy.IssueRequest{
		Holder:   holder,
		Coverage: 100_000,
		Premium:  500,
		Interval: time.Hour,
		Duration: time.Hour,
		PaidIn:   500,
	})
	if !errors.Is(err, fault.ErrTransferFailed) {
		t.Fatalf("expected TransferFailed, got %v", err)
	}
	if _, err := reg.OwnerOf(context.Background(), custodian.lastPolicyID); !errors.Is(err, fault.ErrNotFound) {
		t.Error("token must be burned when the opening deposit fails")
	}
}

func TestRecordPremium(t *testing.T) {
	f := newFixture(t)
	p := f.issue(t)

	f.now = f.now.Add(29 * 24 * time.Hour)
	if err := f.manager.RecordPremium(as(holder), p.ID, 500); err != nil {
		t.Fatalf("record premium: %v", err)
	}
	if f.vault.Balance() != 1000 {
		t.Errorf("pool balance = %d", f.vault.Balance())
	}
	if len(f.log.OfType(events.PremiumRecorded)) != 1 {
		t.Error("expected PremiumRecorded event")
	}
}

func TestRecordPremium_NotHolder(t *testing.T) {
	f := newFixture(t)
	p := f.issue(t)
	if err := f.manager.RecordPremium(as("addr-stranger"), p.ID, 500); !errors.Is(err, fault.ErrUnauthorized) {
		t.Errorf("expected Unauthorized, got %v", err)
	}
}

func TestRecordPremium_WrongAmount(t *testing.T) {
	f := newFixture(t)
	p := f.issue(t)
	if err := f.manager.RecordPremium(as(holder), p.ID, 400); !errors.Is(err, fault.ErrAmountMismatch) {
		t.Errorf("expected AmountMismatch, got %v", err)
	}
}

func TestRecordPremium_ReactivatesLapsed(t *testing.T) {
	f := newFixture(t)
	p := f.issue(t)

	f.now = f.now.Add(31 * 24 * time.Hour)
	if err := f.manager.SweepStatus(context.Background(), p.ID); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	got, _ := f.manager.Get(context.Background(), p.ID)
	if got.Status != policy.StatusLapsed {
		t.Fatalf("status after sweep = %s", got.Status)
	}

	if err := f.manager.RecordPremium(as(holder), p.ID, 500); err != nil {
		t.Fatalf("record premium: %v", err)
	}
	got, _ = f.manager.Get(context.Background(), p.ID)
	if got.Status != policy.StatusActive {
		t.Errorf("status after premium = %s", got.Status)
	}
}

func TestRecordPremium_PastEnd(t *testing.T) {
	f := newFixture(t)
	p := f.issue(t)
	f.now = f.now.Add(366 * 24 * time.Hour)
	if err := f.manager.RecordPremium(as(holder), p.ID, 500); !errors.Is(err, fault.ErrExpired) {
		t.Errorf("expected Expired, got %v", err)
	}
}

func TestSweepStatus(t *testing.T) {
	f := newFixture(t)
	p := f.issue(t)

	// Nothing due yet: no state change and no event.
	before := f.log.Len()
	if err := f.manager.SweepStatus(context.Background(), p.ID); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	got, _ := f.manager.Get(context.Background(), p.ID)
	if got.Status != policy.StatusActive {
		t.Errorf("premature transition to %s", got.Status)
	}
	if f.log.Len() != before {
		t.Errorf("idle sweep emitted %d events", f.log.Len()-before)
	}

	// Past the end date every non-terminal policy expires.
	f.now = f.now.Add(366 * 24 * time.Hour)
	if err := f.manager.SweepStatus(context.Background(), p.ID); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	got, _ = f.manager.Get(context.Background(), p.ID)
	if got.Status != policy.StatusExpired {
		t.Errorf("status = %s", got.Status)
	}

	// Terminal states stay put, with no second event.
	before = f.log.Len()
	if err := f.manager.SweepStatus(context.Background(), p.ID); err != nil {
		t.Fatalf("repeat sweep: %v", err)
	}
	got, _ = f.manager.Get(context.Background(), p.ID)
	if got.Status != policy.StatusExpired {
		t.Errorf("repeat sweep moved status to %s", got.Status)
	}
	if f.log.Len() != before {
		t.Errorf("repeat sweep emitted %d events", f.log.Len()-before)
	}
}

func TestSweepStatus_UnknownPolicy(t *testing.T) {
	f := newFixture(t)
	if err := f.manager.SweepStatus(context.Background(), "no-such"); !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestFileClaim(t *testing.T) {
	f := newFixture(t)
	p := f.issue(t)

	intakeID, err := f.manager.FileClaim(as(holder), p.ID, "screen cracked", []string{"ipfs://photo-1"}, 20_000)
	if err != nil {
		t.Fatalf("file claim: %v", err)
	}
	if !strings.HasPrefix(intakeID, "clm_") {
		t.Errorf("intake id = %q", intakeID)
	}
	got, _ := f.manager.Get(context.Background(), p.ID)
	if got.Status != policy.StatusClaimActive {
		t.Errorf("status = %s", got.Status)
	}
	if got.EvidenceHash == "" {
		t.Error("evidence hash not recorded")
	}
	if len(f.log.OfType(events.ClaimIntake)) != 1 {
		t.Error("expected ClaimIntake event")
	}
}

func TestFileClaim_DuplicateIntakeGetsCounter(t *testing.T) {
	f := newFixture(t)
	p := f.issue(t)

	first, err := f.manager.FileClaim(as(holder), p.ID, "screen cracked", nil, 20_000)
	if err != nil {
		t.Fatal(err)
	}
	// Force the policy back to ACTIVE and re-file the identical claim at the
	// same instant.
	if err := f.manager.ResolveClaim(as(engine), p.ID, policy.StatusActive); err != nil {
		t.Fatal(err)
	}
	second, err := f.manager.FileClaim(as(holder), p.ID, "screen cracked", nil, 20_000)
	if err != nil {
		t.Fatal(err)
	}
	if second != first+"-1" {
		t.Errorf("second intake id = %q, first = %q", second, first)
	}
}

func TestFileClaim_ExceedsCoverage(t *testing.T) {
	f := newFixture(t)
	p := f.issue(t)
	if _, err := f.manager.FileClaim(as(holder), p.ID, "total loss", nil, 100_001); !errors.Is(err, fault.ErrExceedsCoverage) {
		t.Errorf("expected ExceedsCoverage, got %v", err)
	}
}

func TestFileClaim_NotActive(t *testing.T) {
	f := newFixture(t)
	p := f.issue(t)
	if _, err := f.manager.FileClaim(as(holder), p.ID, "a", nil, 1000); err != nil {
		t.Fatal(err)
	}
	if _, err := f.manager.FileClaim(as(holder), p.ID, "b", nil, 1000); !errors.Is(err, fault.ErrInvalidState) {
		t.Errorf("expected InvalidState on second claim, got %v", err)
	}
}

func TestFileClaim_ProcessorNotConfigured(t *testing.T) {
	roster := authz.NewRoster(admin).Set(authz.RoleLifecycleManager, mgr)
	reg := registry.NewInMemoryRegistry(roster)
	oracle := kyc.NewStaticOracle(roster)
	if err := oracle.SetVerified(as(admin), holder, true); err != nil {
		t.Fatal(err)
	}
	vault := custody.NewVault(roster, custody.NewMemoryAgent(), nil)
	m := policy.NewManager(mgr, roster, reg, vault, oracle, store.NewMemory(), nil)
	p, err := m.Issue(as(holder), policy.IssueRequest{
		Holder:   holder,
		Coverage: 100_000,
		Premium:  500,
		Interval: time.Hour,
		Duration: time.Hour,
		PaidIn:   500,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.FileClaim(as(holder), p.ID, "a", nil, 1000); !errors.Is(err, fault.ErrInvalidState) {
		t.Errorf("expected InvalidState, got %v", err)
	}
}

func TestResolveClaim(t *testing.T) {
	f := newFixture(t)
	p := f.issue(t)
	if _, err := f.manager.FileClaim(as(holder), p.ID, "a", nil, 1000); err != nil {
		t.Fatal(err)
	}

	if err := f.manager.ResolveClaim(as(holder), p.ID, policy.StatusPaidOut); !errors.Is(err, fault.ErrUnauthorized) {
		t.Errorf("holder must not resolve claims, got %v", err)
	}
	if err := f.manager.ResolveClaim(as(engine), p.ID, policy.StatusPaidOut); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, _ := f.manager.Get(context.Background(), p.ID)
	if got.Status != policy.StatusPaidOut {
		t.Errorf("status = %s", got.Status)
	}
}
