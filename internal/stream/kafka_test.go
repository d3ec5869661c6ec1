package stream

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/oolio-fulfillment/internal/domain/audit"
)

type fakeWriter struct {
	err    error
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaSink_Publish(t *testing.T) {
	w := &fakeWriter{}
	sink := NewKafkaSink(w)
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	err := sink.Publish(context.Background(), audit.Entry{
		Event:     audit.EventOrderFulfilled,
		AccountID: "A1",
		SKU:       "widget-basic",
		Details:   "charged=32.1, points_awarded=32",
		At:        at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "A1", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, HeaderEvent, msg.Headers[0].Key)
	assert.Equal(t, audit.EventOrderFulfilled, string(msg.Headers[0].Value))

	fields := map[string]string{}
	require.NoError(t, jx.DecodeBytes(msg.Value).ObjBytes(func(d *jx.Decoder, key []byte) error {
		v, err := d.Str()
		if err != nil {
			return err
		}
		fields[string(key)] = v
		return nil
	}))
	assert.Equal(t, map[string]string{
		"event":      audit.EventOrderFulfilled,
		"account_id": "A1",
		"sku":        "widget-basic",
		"details":    "charged=32.1, points_awarded=32",
		"at":         "2025-01-02T03:04:05Z",
	}, fields)
}

func TestKafkaSink_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	sink := NewKafkaSink(w)

	err := sink.Publish(context.Background(), audit.Entry{Event: audit.EventOrderBlocked, AccountID: "A1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write order_blocked")
	assert.Contains(t, err.Error(), "broker down")
}

func TestKafkaSink_WithAuditLog(t *testing.T) {
	w := &fakeWriter{}
	sink := NewKafkaSink(w)
	log := audit.NewLog(sink)

	log.Record(context.Background(), audit.EventReturnProcessed, "B7", "bolt-pack", "Return o1 for 2x bolt-pack approved")
	log.Record(context.Background(), audit.EventOrderBlocked, "C9", "widget-pro", "unsupported_region")

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "B7", string(w.msgs[0].Key))
	assert.Equal(t, "C9", string(w.msgs[1].Key))

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}
