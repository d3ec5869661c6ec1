package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (s *recordingSink) Publish(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return s.err
}

func fixedClock() func() time.Time {
	at := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		at = at.Add(time.Second)
		return at
	}
}

func TestLog_RecordAndEntries(t *testing.T) {
	l := NewLog()
	l.now = fixedClock()
	ctx := context.Background()

	l.Record(ctx, EventOrderFulfilled, "A1", "widget-basic", "charged=32.1, points_awarded=32")
	l.Record(ctx, EventOrderReview, "A2", "", "high_amount")

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, EventOrderFulfilled, entries[0].Event)
	assert.Equal(t, "A1", entries[0].AccountID)
	assert.Equal(t, "widget-basic", entries[0].SKU)
	assert.Equal(t, EventOrderReview, entries[1].Event)
	assert.Empty(t, entries[1].SKU)
	assert.True(t, entries[0].At.Before(entries[1].At))
}

func TestLog_EntriesIsSnapshot(t *testing.T) {
	l := NewLog()
	l.Record(context.Background(), EventOrderBlocked, "A1", "sku", "blocked")

	snap := l.Entries()
	snap[0].Event = "tampered"

	assert.Equal(t, EventOrderBlocked, l.Entries()[0].Event)
}

func TestLog_SinksReceiveEntries(t *testing.T) {
	ok := &recordingSink{}
	broken := &recordingSink{err: errors.New("broker down")}
	l := NewLog(broken, ok)

	l.Record(context.Background(), EventReturnProcessed, "A1", "sku", "ok")

	assert.Equal(t, 1, l.Len())
	require.Len(t, ok.entries, 1)
	require.Len(t, broken.entries, 1)
	assert.Equal(t, EventReturnProcessed, ok.entries[0].Event)
}

func TestLog_Export(t *testing.T) {
	l := NewLog()
	l.now = fixedClock()
	ctx := context.Background()

	l.Record(ctx, EventOrderFulfilled, "A1", "widget-basic", `charged="32.10"`)
	l.Record(ctx, EventPaymentFailed, "A2", "", "declined")

	var buf bytes.Buffer
	require.NoError(t, l.Export(&buf))

	type line struct {
		Event     string  `json:"event"`
		AccountID string  `json:"account_id"`
		SKU       *string `json:"sku"`
		Details   string  `json:"details"`
		At        string  `json:"at"`
	}

	var lines []line
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var ln line
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ln))
		lines = append(lines, ln)
	}
	require.Len(t, lines, 2)

	require.NotNil(t, lines[0].SKU)
	assert.Equal(t, "widget-basic", *lines[0].SKU)
	assert.Equal(t, `charged="32.10"`, lines[0].Details)
	assert.Equal(t, "2025-06-15T12:00:01Z", lines[0].At)
	assert.Nil(t, lines[1].SKU)
	assert.Equal(t, EventPaymentFailed, lines[1].Event)
}

func TestLog_ConcurrentRecord(t *testing.T) {
	l := NewLog()
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Record(ctx, EventOrderFulfilled, "A1", "sku", "")
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, l.Len())
}
