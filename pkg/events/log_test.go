package events

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestLog_ChainVerifies(t *testing.T) {
	l := NewLog().WithClock(func() time.Time { return time.Unix(1700000000, 0) })
	ctx := context.Background()

	if err := l.Emit(ctx, PolicyCreated, "addr-mgr", map[string]any{"policy_id": "pol-1"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := l.Emit(ctx, FundsDeposited, "addr-mgr", map[string]any{"amount": 10}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	ok, detail := l.Verify()
	if !ok {
		t.Fatalf("chain should verify: %s", detail)
	}
	if l.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", l.Len())
	}
	if l.All()[1].PrevHash != l.All()[0].ContentHash {
		t.Error("entries not chained")
	}
}

func TestLog_TamperDetected(t *testing.T) {
	l := NewLog()
	_ = l.Emit(context.Background(), PolicyCreated, "a", map[string]any{"k": "v"})
	l.entries[0].Data["k"] = "tampered"
	if ok, _ := l.Verify(); ok {
		t.Error("tampered chain should fail verification")
	}
}

func TestLog_OfType(t *testing.T) {
	l := NewLog()
	ctx := context.Background()
	_ = l.Emit(ctx, PolicyCreated, "a", nil)
	_ = l.Emit(ctx, ClaimIntake, "a", nil)
	_ = l.Emit(ctx, ClaimIntake, "a", nil)

	if got := len(l.OfType(ClaimIntake)); got != 2 {
		t.Errorf("expected 2 ClaimIntake events, got %d", got)
	}
}

func TestAuditWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewAuditWriterTo(&buf)
	if err := w.Emit(context.Background(), PayoutProcessed, "addr-eng", map[string]any{"amount": 40}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	line := buf.String()
	if !strings.HasPrefix(line, "EVENT: ") {
		t.Errorf("missing prefix: %q", line)
	}
	if !strings.Contains(line, "PayoutProcessed") {
		t.Errorf("missing type: %q", line)
	}
}

func TestMulti_StopsOnError(t *testing.T) {
	l := NewLog()
	m := Multi{l, Discard}
	if err := m.Emit(context.Background(), PolicyCreated, "a", nil); err != nil {
		t.Fatalf("multi emit: %v", err)
	}
	if l.Len() != 1 {
		t.Errorf("expected fan-out to log, got %d entries", l.Len())
	}
}
