// Package transport declares the wire-level surface the sync core's host
// uses to exchange control payloads: send a SyncDelta/SyncRequest/etc. to a
// named inbox, and receive whatever arrives addressed to ours. Concrete
// adapters (wstransport, kafkatransport, broadcast) implement Transport
// against a specific wire; the protocol orchestrator never imports any of
// them directly.
package transport

import (
	"context"

	"github.com/deltasync/peersync/internal/model"
)

// Envelope is the generic wire frame every adapter marshals/unmarshals: a
// destination inbox plus one of the five tagged sync-* payloads, carried as
// already-serialized JSON so adapters never need to know payload internals.
type Envelope struct {
	InboxAddress model.InboxAddress
	Payload      []byte
}

// Transport is the consumed surface: deliver a payload to an inbox, and
// receive a channel of inbound envelopes addressed to inboxes this process
// owns. Close stops delivery and releases underlying connections.
type Transport interface {
	Send(ctx context.Context, env Envelope) error
	Receive() <-chan Envelope
	Close() error
}
