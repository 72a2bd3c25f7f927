// Package store provides the persistence backends: an in-memory store for
// tests and single-process runs, SQLite for embedded deployments and
// PostgreSQL for shared ones. All three persist policies, claims and the
// pooled balance behind the same interfaces.
package store

import (
	"context"
	"sync"

	"github.com/inzo-ai/core-contracts/pkg/claims"
	"github.com/inzo-ai/core-contracts/pkg/fault"
	"github.com/inzo-ai/core-contracts/pkg/policy"
)

// Memory keeps everything in process. Records are copied on the way in and
// out so callers cannot alias stored state.
type Memory struct {
	mu       sync.RWMutex
	policies map[string]policy.Policy
	claims   map[string]claims.Claim
	balance  int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		policies: make(map[string]policy.Policy),
		claims:   make(map[string]claims.Claim),
	}
}

func (m *Memory) Put(ctx context.Context, p *policy.Policy) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[p.ID] = *p
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*policy.Policy, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[id]
	if !ok {
		return nil, fault.New(fault.KindNotFound, "policy %s", id)
	}
	return &p, nil
}

// Claims returns a claim-store view backed by the same memory.
func (m *Memory) Claims() *MemoryClaims { return &MemoryClaims{m: m} }

// MemoryClaims adapts Memory to the claim store interface.
type MemoryClaims struct{ m *Memory }

func (s *MemoryClaims) Put(ctx context.Context, c *claims.Claim) error {
	_ = ctx
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.claims[c.ID] = *c
	return nil
}

func (s *MemoryClaims) Get(ctx context.Context, id string) (*claims.Claim, error) {
	_ = ctx
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	c, ok := s.m.claims[id]
	if !ok {
		return nil, fault.New(fault.KindNotFound, "claim %s", id)
	}
	return &c, nil
}

func (s *MemoryClaims) OpenByPolicy(ctx context.Context, policyID string) (string, error) {
	_ = ctx
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for id, c := range s.m.claims {
		if c.PolicyID == policyID && !c.Status.Terminal() {
			return id, nil
		}
	}
	return "", nil
}

func (m *Memory) SaveBalance(ctx context.Context, balance int64) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance = balance
	return nil
}

func (m *Memory) LoadBalance(ctx context.Context) (int64, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balance, nil
}
