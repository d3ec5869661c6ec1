// Package stream publishes audit entries to Kafka.
package stream

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"

	"github.com/xenking/oolio-fulfillment/internal/domain/audit"
)

// HeaderEvent carries the audit event name so consumers can filter without
// decoding the payload.
const HeaderEvent = "fulfillment-event"

// MessageWriter is the subset of *kafka.Writer used by KafkaSink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ audit.Sink = (*KafkaSink)(nil)

// KafkaSink forwards audit entries to a topic keyed by account id, so all
// events of one account land on the same partition in order.
type KafkaSink struct {
	w MessageWriter
}

// NewKafkaWriter returns a writer for topic on the given brokers.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

// NewKafkaSink wraps w.
func NewKafkaSink(w MessageWriter) *KafkaSink {
	return &KafkaSink{w: w}
}

// Publish implements audit.Sink.
func (s *KafkaSink) Publish(ctx context.Context, e audit.Entry) error {
	enc := jx.GetEncoder()
	defer jx.PutEncoder(enc)
	e.Encode(enc)

	// The encoder buffer is reused after return.
	value := append([]byte(nil), enc.Bytes()...)

	msg := kafka.Message{
		Key:     []byte(e.AccountID),
		Value:   value,
		Time:    e.At,
		Headers: []kafka.Header{{Key: HeaderEvent, Value: []byte(e.Event)}},
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "write %s", e.Event)
	}
	return nil
}

// Close flushes pending messages and releases the writer.
func (s *KafkaSink) Close() error {
	return s.w.Close()
}
