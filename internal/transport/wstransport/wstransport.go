// Package wstransport implements transport.Transport over WebSocket
// connections, grounded in the teacher's internal/websocket/{hub,client,
// metrics}.go: a Hub with mutex-guarded register/unregister methods over a
// per-inbox client map, Client read/write pumps with ping/pong keepalive, and
// prometheus gauges/counters for connection and message volume.
package wstransport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/deltasync/peersync/internal/model"
	"github.com/deltasync/peersync/internal/transport"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	writeWait      = 10 * time.Second
	maxPayloadSize = 6 * 1024 * 1024 // above delta.DefaultMaxChunkSize, leaves room for envelope overhead
)

var (
	connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "peersync_ws_connections",
		Help: "Current number of active sync-transport WebSocket connections",
	})
	envelopesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "peersync_ws_envelopes_sent_total",
		Help: "Total envelopes sent via the WebSocket transport",
	})
	envelopesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "peersync_ws_envelopes_received_total",
		Help: "Total envelopes received via the WebSocket transport",
	})
)

func init() {
	prometheus.MustRegister(connections, envelopesSent, envelopesReceived)
}

// client is one WebSocket connection registered under an inbox address.
type client struct {
	inbox model.InboxAddress
	conn  *websocket.Conn
	send  chan []byte
}

// Hub is a transport.Transport that fans envelopes out over registered
// WebSocket connections, one per inbox address.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[model.InboxAddress]*client

	received chan transport.Envelope
	closeOnce sync.Once
	closed    chan struct{}
}

// NewHub returns a ready Hub. checkOrigin, if nil, accepts every origin
// (the host is expected to sit behind its own auth/TLS boundary).
func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		clients:  make(map[model.InboxAddress]*client),
		received: make(chan transport.Envelope, 256),
		closed:   make(chan struct{}),
	}
}

// ServeHTTP upgrades an incoming request to a WebSocket and registers it
// under inbox, replacing any prior connection for the same inbox.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, inbox model.InboxAddress) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{inbox: inbox, conn: conn, send: make(chan []byte, 64)}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	if old, ok := h.clients[c.inbox]; ok {
		close(old.send)
		old.conn.Close()
	}
	h.clients[c.inbox] = c
	h.mu.Unlock()
	connections.Inc()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.inbox]; ok && cur == c {
		delete(h.clients, c.inbox)
		close(c.send)
	}
	h.mu.Unlock()
	connections.Dec()
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxPayloadSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		envelopesReceived.Inc()
		select {
		case h.received <- transport.Envelope{InboxAddress: c.inbox, Payload: payload}:
		case <-h.closed:
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
			envelopesSent.Inc()
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-h.closed:
			return
		}
	}
}

// Send queues payload for delivery to inbox's registered connection, if
// any. A missing inbox is not an error: the remote simply isn't connected
// right now, which is routine for an offline peer.
func (h *Hub) Send(ctx context.Context, env transport.Envelope) error {
	h.mu.RLock()
	c, ok := h.clients[env.InboxAddress]
	h.mu.RUnlock()
	if !ok {
		return nil
	}

	select {
	case c.send <- env.Payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.closed:
		return errors.New("wstransport: hub closed")
	}
}

// Receive returns the channel of envelopes arriving from any registered
// connection.
func (h *Hub) Receive() <-chan transport.Envelope {
	return h.received
}

// Close stops accepting new work and disconnects every registered client.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() {
		close(h.closed)
		h.mu.Lock()
		for _, c := range h.clients {
			close(c.send)
			c.conn.Close()
		}
		h.clients = make(map[model.InboxAddress]*client)
		h.mu.Unlock()
	})
	return nil
}

var _ transport.Transport = (*Hub)(nil)
