// Package canonical provides deterministic hashing for the core contracts:
// RFC 8785 canonical JSON for structured payloads, evidence-bundle digests,
// and the content-derived claim-intake identifier.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gowebpki/jcs"
	"golang.org/x/text/unicode/norm"
)

// JCS returns the RFC 8785 canonical JSON encoding of v.
func JCS(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonical: transform: %w", err)
	}
	return out, nil
}

// Hash returns the SHA-256 hex digest of the canonical JSON encoding of v.
func Hash(v any) (string, error) {
	b, err := JCS(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes returns the SHA-256 hex digest of raw bytes.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashString returns the SHA-256 hex digest of an NFC-normalized string.
func HashString(s string) string {
	return HashBytes([]byte(norm.NFC.String(s)))
}

// EvidenceBundleHash digests the concatenation of evidence links.
// Links are NFC-normalized and newline-joined so the digest is stable
// across encodings. An empty list yields the empty (null) hash.
func EvidenceBundleHash(links []string) string {
	if len(links) == 0 {
		return ""
	}
	normalized := make([]string, len(links))
	for i, l := range links {
		normalized[i] = norm.NFC.String(l)
	}
	return HashBytes([]byte(strings.Join(normalized, "\n")))
}

// DeriveIntakeID derives the claim-intake correlation identifier from the
// filing facts. It is a content-derived key, not a commitment; callers that
// detect a collision append a monotonic counter via WithCounter.
func DeriveIntakeID(policyID, caller string, filedAt time.Time, description, evidenceHash string) (string, error) {
	h, err := Hash(map[string]any{
		"policy_id":     policyID,
		"caller":        caller,
		"filed_at":      filedAt.UTC().Unix(),
		"description":   norm.NFC.String(description),
		"evidence_hash": evidenceHash,
	})
	if err != nil {
		return "", err
	}
	return "clm_" + h[:32], nil
}

// WithCounter disambiguates a colliding intake identifier.
func WithCounter(intakeID string, n uint64) string {
	return fmt.Sprintf("%s-%d", intakeID, n)
}
