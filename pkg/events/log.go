package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inzo-ai/core-contracts/pkg/canonical"
	"github.com/inzo-ai/core-contracts/pkg/identity"
)

// Log is an append-only, hash-chained event log. Each entry commits the
// canonical hash of (sequence, type, data, prev) so the chain can be
// re-verified end to end.
type Log struct {
	mu       sync.RWMutex
	entries  []Event
	headHash string
	clock    func() time.Time
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{headHash: "genesis", clock: time.Now}
}

// WithClock overrides the clock for deterministic testing.
func (l *Log) WithClock(clock func() time.Time) *Log {
	l.clock = clock
	return l
}

func contentHash(seq uint64, eventType Type, data map[string]any, prev string) (string, error) {
	return canonical.Hash(map[string]any{
		"seq":  seq,
		"type": string(eventType),
		"data": data,
		"prev": prev,
	})
}

// Emit appends an event to the chain.
func (l *Log) Emit(ctx context.Context, eventType Type, actor identity.Address, data map[string]any) error {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := uint64(len(l.entries)) + 1
	hash, err := contentHash(seq, eventType, data, l.headHash)
	if err != nil {
		return fmt.Errorf("events: hash entry %d: %w", seq, err)
	}

	l.entries = append(l.entries, Event{
		ID:          uuid.New().String(),
		Type:        eventType,
		Sequence:    seq,
		Actor:       actor,
		Timestamp:   l.clock(),
		ContentHash: hash,
		PrevHash:    l.headHash,
		Data:        data,
	})
	l.headHash = hash
	return nil
}

// All returns a snapshot of the committed events.
func (l *Log) All() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}

// OfType returns committed events of the given type, in order.
func (l *Log) OfType(eventType Type) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for _, e := range l.entries {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of committed events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Head returns the current head hash.
func (l *Log) Head() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.headHash
}

// Verify walks the chain and recomputes every content hash.
func (l *Log) Verify() (bool, string) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	prev := "genesis"
	for i, e := range l.entries {
		if e.PrevHash != prev {
			return false, fmt.Sprintf("chain broken at entry %d", i+1)
		}
		computed, err := contentHash(e.Sequence, e.Type, e.Data, e.PrevHash)
		if err != nil {
			return false, fmt.Sprintf("hash entry %d: %v", i+1, err)
		}
		if computed != e.ContentHash {
			return false, fmt.Sprintf("hash mismatch at entry %d", i+1)
		}
		prev = e.ContentHash
	}
	return true, "chain verified"
}
