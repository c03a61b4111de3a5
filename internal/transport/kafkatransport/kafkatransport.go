// Package kafkatransport implements transport.Transport over Kafka via
// segmentio/kafka-go, grounded in the teacher's internal/kafka/consumer.go
// (kafka.Reader with GroupID/CommitInterval, prometheus consume counters)
// and the shared-entity DLQ producer pattern: a message that cannot be
// decoded is republished to a dead-letter topic instead of being dropped
// silently.
package kafkatransport

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	kafka "github.com/segmentio/kafka-go"

	"github.com/deltasync/peersync/internal/model"
	"github.com/deltasync/peersync/internal/transport"
)

var (
	envelopesConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peersync_kafka_envelopes_consumed_total",
		Help: "Total sync envelopes consumed from Kafka",
	}, []string{"topic"})
	envelopesProduced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peersync_kafka_envelopes_produced_total",
		Help: "Total sync envelopes produced to Kafka",
	}, []string{"topic"})
	dlqWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peersync_kafka_dlq_writes_total",
		Help: "Total envelopes routed to the dead-letter topic",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(envelopesConsumed, envelopesProduced, dlqWrites)
}

// wireEnvelope is the JSON frame carried on the wire: the kafka message key
// is also set to InboxAddress so consumer groups can partition by
// destination, but the value is self-describing in case a consumer reads
// across partitions.
type wireEnvelope struct {
	InboxAddress model.InboxAddress `json:"inboxAddress"`
	Payload      json.RawMessage    `json:"payload"`
}

// Transport is a transport.Transport backed by one Kafka topic for sync
// traffic and one dead-letter topic for envelopes that fail to decode.
type Transport struct {
	writer    *kafka.Writer
	dlqWriter *kafka.Writer
	reader    *kafka.Reader

	received chan transport.Envelope
}

// Config names the topics and broker addresses.
type Config struct {
	Brokers  []string
	Topic    string
	DLQTopic string
	GroupID  string
}

// New starts a consumer goroutine against cfg.Topic and returns a ready
// Transport. Close stops the consumer and flushes the writers.
func New(cfg Config) *Transport {
	t := &Transport{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		dlqWriter: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.DLQTopic,
			Balancer: &kafka.Hash{},
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			Topic:          cfg.Topic,
			GroupID:        cfg.GroupID,
			MinBytes:       10e3,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
		}),
		received: make(chan transport.Envelope, 256),
	}
	go t.consume()
	return t
}

func (t *Transport) consume() {
	ctx := context.Background()
	for {
		msg, err := t.reader.FetchMessage(ctx)
		if err != nil {
			return
		}
		envelopesConsumed.WithLabelValues(msg.Topic).Inc()

		var env wireEnvelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			dlqWrites.WithLabelValues("decode_error").Inc()
			t.dlqWriter.WriteMessages(ctx, kafka.Message{Key: msg.Key, Value: msg.Value})
			t.reader.CommitMessages(ctx, msg)
			continue
		}

		t.received <- transport.Envelope{InboxAddress: env.InboxAddress, Payload: env.Payload}
		t.reader.CommitMessages(ctx, msg)
	}
}

// Send publishes an envelope keyed by its destination inbox, so every
// control payload for a given peer lands on the same partition and
// preserves per-inbox ordering.
func (t *Transport) Send(ctx context.Context, env transport.Envelope) error {
	wire, err := json.Marshal(wireEnvelope{InboxAddress: env.InboxAddress, Payload: env.Payload})
	if err != nil {
		return err
	}
	if err := t.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.InboxAddress),
		Value: wire,
	}); err != nil {
		return err
	}
	envelopesProduced.WithLabelValues(t.writer.Topic).Inc()
	return nil
}

// Receive returns the channel of envelopes consumed from the sync topic.
func (t *Transport) Receive() <-chan transport.Envelope {
	return t.received
}

// Close stops the consumer and closes both writers.
func (t *Transport) Close() error {
	if err := t.reader.Close(); err != nil {
		return err
	}
	if err := t.writer.Close(); err != nil {
		return err
	}
	return t.dlqWriter.Close()
}

var _ transport.Transport = (*Transport)(nil)
