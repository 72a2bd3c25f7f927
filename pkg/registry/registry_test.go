package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/inzo-ai/core-contracts/pkg/authz"
	"github.com/inzo-ai/core-contracts/pkg/fault"
	"github.com/inzo-ai/core-contracts/pkg/identity"
)

func newTestRegistry() (*InMemoryRegistry, context.Context) {
	roster := authz.NewRoster("addr-admin").Set(authz.RoleLifecycleManager, "addr-mgr")
	return NewInMemoryRegistry(roster), identity.WithAddress(context.Background(), "addr-mgr")
}

func TestMintAndOwnerOf(t *testing.T) {
	r, mgrCtx := newTestRegistry()

	id, err := r.Mint(mgrCtx, "addr-holder", "ipfs://meta")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	owner, err := r.OwnerOf(context.Background(), id)
	if err != nil {
		t.Fatalf("ownerOf: %v", err)
	}
	if owner != "addr-holder" {
		t.Errorf("owner = %s", owner)
	}
}

func TestMint_Unprivileged(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := identity.WithAddress(context.Background(), "addr-anyone")
	if _, err := r.Mint(ctx, "addr-holder", ""); !errors.Is(err, fault.ErrUnauthorized) {
		t.Errorf("expected Unauthorized, got %v", err)
	}
}

func TestMint_ZeroRecipient(t *testing.T) {
	r, mgrCtx := newTestRegistry()
	if _, err := r.Mint(mgrCtx, identity.Zero, ""); !errors.Is(err, fault.ErrZeroIdentity) {
		t.Errorf("expected ZeroIdentity, got %v", err)
	}
}

func TestTransfer(t *testing.T) {
	r, mgrCtx := newTestRegistry()
	id, _ := r.Mint(mgrCtx, "addr-holder", "")

	holderCtx := identity.WithAddress(context.Background(), "addr-holder")
	if err := r.Transfer(holderCtx, id, "addr-next"); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	owner, _ := r.OwnerOf(context.Background(), id)
	if owner != "addr-next" {
		t.Errorf("owner after transfer = %s", owner)
	}

	if err := r.Transfer(holderCtx, id, "addr-third"); !errors.Is(err, fault.ErrUnauthorized) {
		t.Errorf("old holder transfer should fail, got %v", err)
	}
}

func TestBurn(t *testing.T) {
	r, mgrCtx := newTestRegistry()
	id, _ := r.Mint(mgrCtx, "addr-holder", "")
	if err := r.Burn(mgrCtx, id); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if _, err := r.OwnerOf(context.Background(), id); !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("expected NotFound after burn, got %v", err)
	}
}

func TestUpdateMetadata_NotFound(t *testing.T) {
	r, mgrCtx := newTestRegistry()
	if err := r.UpdateMetadata(mgrCtx, "missing", "uri"); !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}
