// Package authz implements the flat capability model of the core contracts:
// each privileged operation checks that the caller is exactly the configured
// address for a role. A small roster of trusted identities per deployment
// suffices; there is no dynamic dispatch.
package authz

import (
	"context"
	"strings"
	"sync"

	"github.com/inzo-ai/core-contracts/pkg/fault"
	"github.com/inzo-ai/core-contracts/pkg/identity"
)

// Role names the trust domains of the platform.
type Role string

const (
	RoleAdmin            Role = "admin"
	RoleLifecycleManager Role = "lifecycle-manager"
	RoleAssessmentEngine Role = "assessment-engine"
	RoleAIAssessor       Role = "ai-assessor"
	RoleHumanReviewer    Role = "human-reviewer"
)

// Roster is the configuration record of trusted identities per role.
type Roster struct {
	mu    sync.RWMutex
	roles map[Role]identity.Address
}

// NewRoster creates a roster with the given administrator.
func NewRoster(admin identity.Address) *Roster {
	return &Roster{
		roles: map[Role]identity.Address{RoleAdmin: admin},
	}
}

// Set assigns an address to a role without authorization checks.
// Used at deployment wiring time; runtime rotation goes through Rotate.
func (r *Roster) Set(role Role, addr identity.Address) *Roster {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[role] = addr
	return r
}

// AddressOf returns the configured address for a role, or Zero.
func (r *Roster) AddressOf(role Role) identity.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roles[role]
}

// Configured reports whether a role has a non-zero address assigned.
func (r *Roster) Configured(role Role) bool {
	return !r.AddressOf(role).IsZero()
}

// Require verifies that the context caller holds the given role.
func (r *Roster) Require(ctx context.Context, role Role) error {
	return r.RequireAny(ctx, role)
}

// RequireAny verifies that the context caller holds at least one of the roles.
func (r *Roster) RequireAny(ctx context.Context, roles ...Role) error {
	caller := identity.AddressFrom(ctx)
	if caller.IsZero() {
		return fault.New(fault.KindUnauthorized, "no caller identity")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, role := range roles {
		if addr, ok := r.roles[role]; ok && !addr.IsZero() && addr == caller {
			return nil
		}
	}
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return fault.New(fault.KindUnauthorized, "caller %s is not %s", caller, strings.Join(names, " or "))
}

// RequireAddress verifies that the context caller is exactly addr.
func (r *Roster) RequireAddress(ctx context.Context, addr identity.Address) error {
	caller := identity.AddressFrom(ctx)
	if caller.IsZero() {
		return fault.New(fault.KindUnauthorized, "no caller identity")
	}
	if caller != addr {
		return fault.New(fault.KindUnauthorized, "caller %s is not %s", caller, addr)
	}
	return nil
}

// Rotate reassigns a role to a new address. Administrator only.
func (r *Roster) Rotate(ctx context.Context, role Role, addr identity.Address) error {
	if err := r.Require(ctx, RoleAdmin); err != nil {
		return err
	}
	if addr.IsZero() {
		return fault.New(fault.KindZeroIdentity, "cannot assign role %s to the null identity", role)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[role] = addr
	return nil
}

// TransferAdmin hands the administrator role to a new address.
func (r *Roster) TransferAdmin(ctx context.Context, addr identity.Address) error {
	return r.Rotate(ctx, RoleAdmin, addr)
}
