// Package custody implements the pooled fund vault. The vault is a pure
// capability-gated store of value: it knows nothing about policies or claims
// beyond the identifiers it echoes in events. Only the lifecycle manager may
// deposit, only the assessment engine may disburse, and the administrator
// holds an escape valve for pool surplus.
package custody

import (
	"context"
	"sync"

	"github.com/inzo-ai/core-contracts/pkg/authz"
	"github.com/inzo-ai/core-contracts/pkg/events"
	"github.com/inzo-ai/core-contracts/pkg/fault"
	"github.com/inzo-ai/core-contracts/pkg/identity"
)

// TransferAgent performs the external monetary transfer of a disbursement.
// A rejection by the recipient surfaces as TransferFailed.
type TransferAgent interface {
	Transfer(ctx context.Context, to identity.Address, amount int64) error
}

// BalanceStore persists the scalar pooled balance.
type BalanceStore interface {
	SaveBalance(ctx context.Context, balance int64) error
	LoadBalance(ctx context.Context) (int64, error)
}

// Vault holds the pooled monetary value. Per-transaction provenance is
// emitted as events; the pool itself is fungible, no per-policy sub-balances.
type Vault struct {
	mu      sync.Mutex
	roster  *authz.Roster
	agent   TransferAgent
	sink    events.Sink
	store   BalanceStore
	balance int64
}

// NewVault creates an empty vault.
func NewVault(roster *authz.Roster, agent TransferAgent, sink events.Sink) *Vault {
	if sink == nil {
		sink = events.Discard
	}
	return &Vault{roster: roster, agent: agent, sink: sink}
}

// WithStore enables write-through persistence of the pooled balance and
// loads the persisted value.
func (v *Vault) WithStore(ctx context.Context, store BalanceStore) (*Vault, error) {
	balance, err := store.LoadBalance(ctx)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.store = store
	v.balance = balance
	return v, nil
}

// Balance returns the current pooled balance.
func (v *Vault) Balance() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balance
}

// Deposit credits the pool with a premium payment. Lifecycle manager only.
// The transferred value paidIn must exactly equal amount.
func (v *Vault) Deposit(ctx context.Context, payer identity.Address, policyID string, amount, paidIn int64) error {
	if err := v.roster.Require(ctx, authz.RoleLifecycleManager); err != nil {
		return err
	}
	if amount <= 0 || paidIn != amount {
		return fault.New(fault.KindAmountMismatch, "deposit of %d with paid-in value %d", amount, paidIn)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.persist(ctx, v.balance+amount); err != nil {
		return err
	}
	v.balance += amount

	return v.sink.Emit(ctx, events.FundsDeposited, identity.AddressFrom(ctx), map[string]any{
		"from":      string(payer),
		"policy_id": policyID,
		"amount":    amount,
	})
}

// Disburse pays out of the pool to recipient. Assessment engine only.
func (v *Vault) Disburse(ctx context.Context, recipient identity.Address, amount int64, claimID string) error {
	if err := v.roster.Require(ctx, authz.RoleAssessmentEngine); err != nil {
		return err
	}
	return v.payOut(ctx, recipient, amount, claimID)
}

// AdminWithdraw moves pool surplus out. Administrator only.
func (v *Vault) AdminWithdraw(ctx context.Context, recipient identity.Address, amount int64) error {
	if err := v.roster.Require(ctx, authz.RoleAdmin); err != nil {
		return err
	}
	return v.payOut(ctx, recipient, amount, "")
}

func (v *Vault) payOut(ctx context.Context, recipient identity.Address, amount int64, claimID string) error {
	if recipient.IsZero() {
		return fault.New(fault.KindZeroIdentity, "payout to the null identity")
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if amount <= 0 || v.balance < amount {
		return fault.New(fault.KindInsufficientFunds, "pool holds %d, payout of %d requested", v.balance, amount)
	}

	if err := v.agent.Transfer(ctx, recipient, amount); err != nil {
		return fault.New(fault.KindTransferFailed, "transfer of %d to %s: %v", amount, recipient, err)
	}
	if err := v.persist(ctx, v.balance-amount); err != nil {
		return err
	}
	v.balance -= amount

	return v.sink.Emit(ctx, events.PayoutProcessed, identity.AddressFrom(ctx), map[string]any{
		"recipient": string(recipient),
		"amount":    amount,
		"claim_id":  claimID,
	})
}

func (v *Vault) persist(ctx context.Context, balance int64) error {
	if v.store == nil {
		return nil
	}
	return v.store.SaveBalance(ctx, balance)
}
