package kyc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inzo-ai/core-contracts/pkg/authz"
	"github.com/inzo-ai/core-contracts/pkg/fault"
	"github.com/inzo-ai/core-contracts/pkg/identity"
)

func TestStaticOracle(t *testing.T) {
	roster := authz.NewRoster("addr-admin")
	o := NewStaticOracle(roster)
	adminCtx := identity.WithAddress(context.Background(), "addr-admin")

	if err := o.SetVerified(adminCtx, "addr-h", true); err != nil {
		t.Fatalf("SetVerified: %v", err)
	}
	ok, _ := o.IsVerified(context.Background(), "addr-h")
	if !ok {
		t.Error("addr-h should be verified")
	}
	ok, _ = o.IsVerified(context.Background(), "addr-unknown")
	if ok {
		t.Error("unknown address should not be verified")
	}

	otherCtx := identity.WithAddress(context.Background(), "addr-other")
	if err := o.SetVerified(otherCtx, "addr-h", false); !errors.Is(err, fault.ErrUnauthorized) {
		t.Errorf("non-admin SetVerified should fail, got %v", err)
	}
}

func TestAttestationOracle(t *testing.T) {
	key := []byte("test-signing-key")
	o := NewAttestationOracle(key, "kyc.example")

	tok, err := Attest(key, "kyc.example", "addr-h", time.Hour)
	if err != nil {
		t.Fatalf("Attest: %v", err)
	}
	addr, err := o.Present(context.Background(), tok)
	if err != nil {
		t.Fatalf("Present: %v", err)
	}
	if addr != "addr-h" {
		t.Errorf("attested address = %s", addr)
	}
	ok, _ := o.IsVerified(context.Background(), "addr-h")
	if !ok {
		t.Error("presented address should be verified")
	}
}

func TestAttestationOracle_WrongIssuer(t *testing.T) {
	key := []byte("test-signing-key")
	o := NewAttestationOracle(key, "kyc.example")

	tok, _ := Attest(key, "rogue.example", "addr-h", time.Hour)
	if _, err := o.Present(context.Background(), tok); err == nil {
		t.Error("attestation from wrong issuer should be rejected")
	}
}

func TestAttestationOracle_Expiry(t *testing.T) {
	key := []byte("test-signing-key")
	o := NewAttestationOracle(key, "kyc.example")

	tok, _ := Attest(key, "kyc.example", "addr-h", time.Hour)
	if _, err := o.Present(context.Background(), tok); err != nil {
		t.Fatalf("Present: %v", err)
	}

	o.WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	ok, _ := o.IsVerified(context.Background(), "addr-h")
	if ok {
		t.Error("verification should lapse with the attestation")
	}
}
