// Package kyc abstracts the external identity-verification oracle. The core
// only ever asks one question: is this identity verified. How verification
// happened (document checks, liveness, jurisdiction rules) is the provider's
// business.
package kyc

import (
	"context"
	"sync"

	"github.com/inzo-ai/core-contracts/pkg/authz"
	"github.com/inzo-ai/core-contracts/pkg/identity"
)

// Oracle answers verification queries.
type Oracle interface {
	IsVerified(ctx context.Context, addr identity.Address) (bool, error)
}

// StaticOracle is an administrator-managed allowlist.
type StaticOracle struct {
	mu       sync.RWMutex
	roster   *authz.Roster
	verified map[identity.Address]bool
}

// NewStaticOracle creates an empty allowlist gated by the roster.
func NewStaticOracle(roster *authz.Roster) *StaticOracle {
	return &StaticOracle{
		roster:   roster,
		verified: make(map[identity.Address]bool),
	}
}

// SetVerified marks an address verified or not. Administrator only.
func (o *StaticOracle) SetVerified(ctx context.Context, addr identity.Address, ok bool) error {
	if err := o.roster.Require(ctx, authz.RoleAdmin); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verified[addr] = ok
	return nil
}

func (o *StaticOracle) IsVerified(ctx context.Context, addr identity.Address) (bool, error) {
	_ = ctx
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.verified[addr], nil
}
