// Package events carries the domain events of the core contracts. Events are
// the external contract consumed by the off-chain relayer: the hash-chained
// log is the auditable record, the redis publisher is the relayer feed.
package events

import (
	"context"
	"time"

	"github.com/inzo-ai/core-contracts/pkg/identity"
)

// Type names an emitted domain event.
type Type string

const (
	PolicyCreated            Type = "PolicyCreated"
	PremiumRecorded          Type = "PremiumRecorded"
	PolicyStatusChanged      Type = "PolicyStatusChanged"
	ClaimIntake              Type = "ClaimIntake"
	ClaimReceived            Type = "ClaimReceived"
	ClaimAssessmentSubmitted Type = "ClaimAssessmentSubmitted"
	ClaimStatusChanged       Type = "ClaimStatusChanged"
	PayoutAuthorized         Type = "PayoutAuthorized"
	FundsDeposited           Type = "FundsDeposited"
	PayoutProcessed          Type = "PayoutProcessed"

	// PayoutFailed flags a disbursement failure after authorization.
	// Administrator-visible: the claim requires manual reconciliation.
	PayoutFailed Type = "PayoutFailed"
)

// Event is a committed domain event.
type Event struct {
	ID          string           `json:"id"`
	Type        Type             `json:"type"`
	Sequence    uint64           `json:"sequence"`
	Actor       identity.Address `json:"actor,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
	ContentHash string           `json:"content_hash"`
	PrevHash    string           `json:"prev_hash"`
	Data        map[string]any   `json:"data"`
}

// Sink receives emitted events.
type Sink interface {
	Emit(ctx context.Context, eventType Type, actor identity.Address, data map[string]any) error
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(context.Context, Type, identity.Address, map[string]any) error {
	return nil
}

// Multi fans an emission out to several sinks; the first error wins.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, eventType Type, actor identity.Address, data map[string]any) error {
	for _, s := range m {
		if err := s.Emit(ctx, eventType, actor, data); err != nil {
			return err
		}
	}
	return nil
}
