package kyc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/inzo-ai/core-contracts/pkg/identity"
)

// AttestationClaims is the JWT payload a KYC provider signs for a verified
// identity. The subject is the on-ledger address.
type AttestationClaims struct {
	jwt.RegisteredClaims
	VerificationLevel string `json:"verification_level,omitempty"`
}

// AttestationOracle verifies provider-signed JWT attestations and caches the
// verified addresses until the attestation expires.
type AttestationOracle struct {
	mu       sync.RWMutex
	key      []byte
	issuer   string
	verified map[identity.Address]time.Time
	clock    func() time.Time
}

// NewAttestationOracle expects HS256 attestations from the given issuer.
func NewAttestationOracle(signingKey []byte, issuer string) *AttestationOracle {
	return &AttestationOracle{
		key:      signingKey,
		issuer:   issuer,
		verified: make(map[identity.Address]time.Time),
		clock:    time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (o *AttestationOracle) WithClock(clock func() time.Time) *AttestationOracle {
	o.clock = clock
	return o
}

// Present validates an attestation token and records its subject as verified
// until the token's expiry. Returns the attested address.
func (o *AttestationOracle) Present(ctx context.Context, tokenString string) (identity.Address, error) {
	_ = ctx
	token, err := jwt.ParseWithClaims(tokenString, &AttestationClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return o.key, nil
	}, jwt.WithIssuer(o.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return identity.Zero, fmt.Errorf("kyc: attestation rejected: %w", err)
	}

	claims, ok := token.Claims.(*AttestationClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return identity.Zero, fmt.Errorf("kyc: attestation missing subject")
	}

	addr := identity.Address(claims.Subject)
	o.mu.Lock()
	o.verified[addr] = claims.ExpiresAt.Time
	o.mu.Unlock()
	return addr, nil
}

func (o *AttestationOracle) IsVerified(ctx context.Context, addr identity.Address) (bool, error) {
	_ = ctx
	o.mu.RLock()
	defer o.mu.RUnlock()
	until, ok := o.verified[addr]
	return ok && o.clock().Before(until), nil
}

// Attest signs an attestation for addr. Provider-side helper, used by tests
// and the demo binary.
func Attest(signingKey []byte, issuer string, addr identity.Address, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := AttestationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(addr),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		VerificationLevel: "standard",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
}
