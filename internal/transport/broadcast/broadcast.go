// Package broadcast implements transport.Transport over NATS core pub/sub,
// grounded in adred-codev-ws_poc's pkg/nats/client.go: connection event
// handlers (connect/disconnect/reconnect/error), a per-subject subscription
// map guarded by a mutex, and JSON-over-subject publish/subscribe. Each
// inbox address maps to its own subject so peers only receive traffic
// addressed to them.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/deltasync/peersync/internal/model"
	"github.com/deltasync/peersync/internal/transport"
)

// Config mirrors the teacher's nats.Config: reconnect tuning the caller can
// override, defaulted if left zero.
type Config struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectJitter time.Duration
	MaxPingsOut     int
	PingInterval    time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxReconnects == 0 {
		c.MaxReconnects = -1 // retry forever
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = 2 * time.Second
	}
	if c.MaxPingsOut == 0 {
		c.MaxPingsOut = 2
	}
	if c.PingInterval == 0 {
		c.PingInterval = 2 * time.Minute
	}
	return c
}

type wireEnvelope struct {
	InboxAddress model.InboxAddress `json:"inboxAddress"`
	Payload      json.RawMessage    `json:"payload"`
}

// Transport publishes sync envelopes to a NATS subject named after their
// destination inbox and subscribes to our own.
type Transport struct {
	conn *nats.Conn
	log  *log.Logger

	mu   sync.RWMutex
	subs map[model.InboxAddress]*nats.Subscription

	received chan transport.Envelope
}

func subjectFor(inbox model.InboxAddress) string {
	return fmt.Sprintf("peersync.inbox.%s", inbox)
}

// Connect dials NATS and returns a ready Transport. ourInboxes is the set
// of inbox addresses this process owns and should subscribe to; more can be
// added later via Subscribe.
func Connect(cfg Config, logger *log.Logger, ourInboxes []model.InboxAddress) (*Transport, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.Default()
	}

	t := &Transport{
		log:      logger,
		subs:     make(map[model.InboxAddress]*nats.Subscription),
		received: make(chan transport.Envelope, 256),
	}

	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(cfg.ReconnectJitter, cfg.ReconnectJitter),
		nats.MaxPingsOutstanding(cfg.MaxPingsOut),
		nats.PingInterval(cfg.PingInterval),
		nats.ConnectHandler(func(c *nats.Conn) {
			logger.Printf("broadcast: connected to %s", c.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			logger.Printf("broadcast: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Printf("broadcast: reconnected to %s", c.ConnectedUrl())
		}),
		nats.ErrorHandler(func(c *nats.Conn, sub *nats.Subscription, err error) {
			logger.Printf("broadcast: nats error: %v", err)
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("broadcast: connect: %w", err)
	}
	t.conn = conn

	for _, inbox := range ourInboxes {
		if err := t.Subscribe(inbox); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return t, nil
}

// Subscribe starts listening for envelopes addressed to inbox.
func (t *Transport) Subscribe(inbox model.InboxAddress) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.subs[inbox]; ok {
		return nil
	}

	sub, err := t.conn.Subscribe(subjectFor(inbox), func(msg *nats.Msg) {
		var env wireEnvelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			t.log.Printf("broadcast: malformed envelope on %s: %v", msg.Subject, err)
			return
		}
		t.received <- transport.Envelope{InboxAddress: env.InboxAddress, Payload: env.Payload}
	})
	if err != nil {
		return fmt.Errorf("broadcast: subscribe %s: %w", inbox, err)
	}
	t.subs[inbox] = sub
	return nil
}

// Send publishes an envelope to its destination inbox's subject.
func (t *Transport) Send(ctx context.Context, env transport.Envelope) error {
	wire, err := json.Marshal(wireEnvelope{InboxAddress: env.InboxAddress, Payload: env.Payload})
	if err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return t.conn.Publish(subjectFor(env.InboxAddress), wire)
}

// Receive returns the channel of envelopes delivered to any subscribed inbox.
func (t *Transport) Receive() <-chan transport.Envelope {
	return t.received
}

// Close unsubscribes everything and closes the connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for inbox, sub := range t.subs {
		if err := sub.Unsubscribe(); err != nil {
			t.log.Printf("broadcast: unsubscribe %s: %v", inbox, err)
		}
	}
	t.subs = make(map[model.InboxAddress]*nats.Subscription)
	t.conn.Close()
	return nil
}

var _ transport.Transport = (*Transport)(nil)
