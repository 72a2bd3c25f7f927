package events

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inzo-ai/core-contracts/pkg/identity"
)

// AuditWriter is a Sink writing one JSON object per event to a Writer,
// prefixed for easy log filtering.
type AuditWriter struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewAuditWriter writes to os.Stdout.
func NewAuditWriter() *AuditWriter {
	return NewAuditWriterTo(os.Stdout)
}

// NewAuditWriterTo writes to the given writer. Injection point for tests
// and custom sinks.
func NewAuditWriterTo(w io.Writer) *AuditWriter {
	if w == nil {
		w = os.Stdout
	}
	return &AuditWriter{writer: w}
}

func (a *AuditWriter) Emit(ctx context.Context, eventType Type, actor identity.Address, data map[string]any) error {
	_ = ctx
	record := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = a.writer.Write(append(append([]byte("EVENT: "), raw...), '\n'))
	return err
}
