package custody

import (
	"context"
	"errors"
	"sync"

	"github.com/inzo-ai/core-contracts/pkg/identity"
)

// MemoryAgent settles transfers against in-memory account balances.
// Recipients can be marked as rejecting to exercise TransferFailed paths.
type MemoryAgent struct {
	mu        sync.Mutex
	accounts  map[identity.Address]int64
	rejecting map[identity.Address]bool
}

func NewMemoryAgent() *MemoryAgent {
	return &MemoryAgent{
		accounts:  make(map[identity.Address]int64),
		rejecting: make(map[identity.Address]bool),
	}
}

// Reject makes future transfers to addr fail.
func (a *MemoryAgent) Reject(addr identity.Address, reject bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejecting[addr] = reject
}

// BalanceOf returns the settled balance of addr.
func (a *MemoryAgent) BalanceOf(addr identity.Address) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.accounts[addr]
}

func (a *MemoryAgent) Transfer(ctx context.Context, to identity.Address, amount int64) error {
	_ = ctx
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rejecting[to] {
		return errors.New("recipient rejected transfer")
	}
	a.accounts[to] += amount
	return nil
}
