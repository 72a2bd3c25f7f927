// Package registry models the external ownership-token service: transferable
// tokens, each an opaque policy identifier bound to one holder at a time. The
// lifecycle manager is the registry's exclusive privileged caller for mint
// and metadata updates; holders transfer their own tokens.
package registry

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/inzo-ai/core-contracts/pkg/authz"
	"github.com/inzo-ai/core-contracts/pkg/fault"
	"github.com/inzo-ai/core-contracts/pkg/identity"
)

// TokenRegistry is the interface the core consumes.
type TokenRegistry interface {
	Mint(ctx context.Context, recipient identity.Address, metadataURI string) (string, error)
	Burn(ctx context.Context, tokenID string) error
	OwnerOf(ctx context.Context, tokenID string) (identity.Address, error)
	UpdateMetadata(ctx context.Context, tokenID, uri string) error
}

type token struct {
	owner       identity.Address
	metadataURI string
}

// InMemoryRegistry is a thread-safe reference implementation.
type InMemoryRegistry struct {
	mu     sync.RWMutex
	roster *authz.Roster
	tokens map[string]*token
}

// NewInMemoryRegistry creates a registry gated by the given roster.
func NewInMemoryRegistry(roster *authz.Roster) *InMemoryRegistry {
	return &InMemoryRegistry{
		roster: roster,
		tokens: make(map[string]*token),
	}
}

// Mint issues a new token to recipient. Lifecycle manager only.
func (r *InMemoryRegistry) Mint(ctx context.Context, recipient identity.Address, metadataURI string) (string, error) {
	if err := r.roster.Require(ctx, authz.RoleLifecycleManager); err != nil {
		return "", err
	}
	if recipient.IsZero() {
		return "", fault.New(fault.KindZeroIdentity, "cannot mint to the null identity")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New().String()
	r.tokens[id] = &token{owner: recipient, metadataURI: metadataURI}
	return id, nil
}

// Burn destroys a token. Lifecycle manager only.
func (r *InMemoryRegistry) Burn(ctx context.Context, tokenID string) error {
	if err := r.roster.Require(ctx, authz.RoleLifecycleManager); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[tokenID]; !ok {
		return fault.New(fault.KindNotFound, "token %s", tokenID)
	}
	delete(r.tokens, tokenID)
	return nil
}

// OwnerOf returns the current holder of a token.
func (r *InMemoryRegistry) OwnerOf(ctx context.Context, tokenID string) (identity.Address, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[tokenID]
	if !ok {
		return identity.Zero, fault.New(fault.KindNotFound, "token %s", tokenID)
	}
	return t.owner, nil
}

// UpdateMetadata rewrites a token's metadata URI. Lifecycle manager only.
func (r *InMemoryRegistry) UpdateMetadata(ctx context.Context, tokenID, uri string) error {
	if err := r.roster.Require(ctx, authz.RoleLifecycleManager); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenID]
	if !ok {
		return fault.New(fault.KindNotFound, "token %s", tokenID)
	}
	t.metadataURI = uri
	return nil
}

// Transfer moves a token to a new holder. Current holder only.
func (r *InMemoryRegistry) Transfer(ctx context.Context, tokenID string, to identity.Address) error {
	if to.IsZero() {
		return fault.New(fault.KindZeroIdentity, "cannot transfer to the null identity")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenID]
	if !ok {
		return fault.New(fault.KindNotFound, "token %s", tokenID)
	}
	if identity.AddressFrom(ctx) != t.owner {
		return fault.New(fault.KindUnauthorized, "caller does not hold token %s", tokenID)
	}
	t.owner = to
	return nil
}
