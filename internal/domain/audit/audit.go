// Package audit keeps an append-only record of fulfillment events.
package audit

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Event names recorded by the order and return flows.
const (
	EventOrderBlocked     = "order_blocked"
	EventOrderReview      = "order_review"
	EventPaymentFailed    = "payment_failed"
	EventOrderFulfilled   = "order_fulfilled"
	EventOrderCompensated = "order_compensated"
	EventReturnProcessed  = "return_processed"
)

// Entry is a single immutable audit record. SKU is empty when the event is
// not tied to a product.
type Entry struct {
	Event     string
	AccountID string
	SKU       string
	Details   string
	At        time.Time
}

// Encode writes e as a JSON object.
func (e Entry) Encode(enc *jx.Encoder) {
	enc.ObjStart()
	enc.FieldStart("event")
	enc.Str(e.Event)
	enc.FieldStart("account_id")
	enc.Str(e.AccountID)
	enc.FieldStart("sku")
	if e.SKU == "" {
		enc.Null()
	} else {
		enc.Str(e.SKU)
	}
	enc.FieldStart("details")
	enc.Str(e.Details)
	enc.FieldStart("at")
	enc.Str(e.At.Format(time.RFC3339Nano))
	enc.ObjEnd()
}

// Sink receives every entry after it is appended. Sink failures are logged
// and never fail the caller.
type Sink interface {
	Publish(ctx context.Context, e Entry) error
}

// Log is an append-only, concurrency-safe event log.
type Log struct {
	mu      sync.RWMutex
	entries []Entry

	sinks []Sink
	now   func() time.Time
}

// NewLog returns an empty Log that forwards entries to sinks.
func NewLog(sinks ...Sink) *Log {
	return &Log{
		sinks: sinks,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Record appends an entry stamped with the current time and returns it.
func (l *Log) Record(ctx context.Context, event, accountID, sku, details string) Entry {
	e := Entry{
		Event:     event,
		AccountID: accountID,
		SKU:       sku,
		Details:   details,
		At:        l.now(),
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()

	for _, s := range l.sinks {
		if err := s.Publish(ctx, e); err != nil {
			zctx.From(ctx).Warn("Audit sink publish failed",
				zap.String("event", e.Event),
				zap.Error(err),
			)
		}
	}

	return e
}

// Entries returns a snapshot of all entries in insertion order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.entries)
}

// Export writes all entries to w as JSON lines.
func (l *Log) Export(w io.Writer) error {
	var enc jx.Encoder
	for _, e := range l.Entries() {
		enc.Reset()
		e.Encode(&enc)
		if _, err := w.Write(append(enc.Bytes(), '\n')); err != nil {
			return errors.Wrap(err, "write entry")
		}
	}
	return nil
}
