package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"authflow/internal/logging"
	"authflow/internal/session"
	"authflow/internal/types"
)

// envelope is a payload meant for a single connection.
type envelope struct {
	client  *Client
	payload []byte
}

// Hub fans session snapshots out to every connected UI shell. Only Run touches the clients map
// and the Send channels.
type Hub struct {
	flow   *session.Flow
	logger *slog.Logger
	now    func() time.Time

	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan []byte
	direct     chan envelope
	Quit       chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

type Option func(*Hub)

func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// NewHub subscribes to flow; every transition is broadcast as a snapshot message.
func NewHub(flow *session.Flow, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		flow:       flow,
		logger:     logging.Discard(),
		now:        time.Now,
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan []byte, 256),
		direct:     make(chan envelope, 64),
		Quit:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "bridge")
	flow.Subscribe(h.publish)
	return h
}

// StateMessage renders a snapshot for the wire. The token never leaves the process.
func StateMessage(snap session.Snapshot, now time.Time) types.StateMessage {
	return types.StateMessage{
		Type:          types.TypeSnapshot,
		State:         snap.State.String(),
		Authenticated: snap.Authenticated(),
		Profile:       snap.Profile,
		Greeting:      snap.Greeting(now),
		Error:         snap.Err,
		Seq:           snap.Seq,
		Timestamp:     now.Unix(),
	}
}

func errorMessage(msg string, now time.Time) types.StateMessage {
	return types.StateMessage{
		Type:      types.TypeError,
		Error:     msg,
		Timestamp: now.Unix(),
	}
}

// publish is the flow observer. It runs under the flow lock, so it must never block.
func (h *Hub) publish(snap session.Snapshot) {
	payload, err := json.Marshal(StateMessage(snap, h.now()))
	if err != nil {
		h.logger.Error("encode snapshot", "error", err)
		return
	}
	select {
	case h.Broadcast <- payload:
	default:
		h.logger.Warn("broadcast channel full, dropping snapshot", "seq", snap.Seq)
	}
}

// sendTo queues a reply for one client. It gives up once the hub is shutting down.
func (h *Hub) sendTo(c *Client, msg types.StateMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encode reply", "error", err)
		return
	}
	select {
	case h.direct <- envelope{client: c, payload: payload}:
	case <-h.Quit:
	}
}

func (h *Hub) snapshotFor(c *Client) {
	h.sendTo(c, StateMessage(h.flow.Snapshot(), h.now()))
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.Quit:
	}
}

func (h *Hub) cleanupClient(c *Client) {
	c.once.Do(func() {
		if current, ok := h.clients[c.ID]; ok && current == c {
			delete(h.clients, c.ID)
		}
		close(c.Send)
		h.logger.Info("connection closed", "conn_id", c.ID, "active", len(h.clients))
	})
}

func (h *Hub) deliver(c *Client, payload []byte) {
	select {
	case c.Send <- payload:
	default:
		h.logger.Warn("client buffer full, evicting slow consumer", "conn_id", c.ID)
		h.cleanupClient(c)
	}
}

// Close stops Run, cancels running commands and disconnects every client.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.cancel()
		close(h.Quit)
	})
}

func (h *Hub) Run() {
	h.logger.Info("hub started")
	for {
		select {
		case <-h.Quit:
			h.logger.Info("hub stopping", "clients", len(h.clients))
			for _, c := range h.clients {
				h.cleanupClient(c)
			}
			return

		case c := <-h.Register:
			h.clients[c.ID] = c
			h.logger.Info("connection registered", "conn_id", c.ID, "active", len(h.clients))
			payload, err := json.Marshal(StateMessage(h.flow.Snapshot(), h.now()))
			if err == nil {
				h.deliver(c, payload)
			}

		case c := <-h.Unregister:
			if _, ok := h.clients[c.ID]; ok {
				h.cleanupClient(c)
			}

		case env := <-h.direct:
			if current, ok := h.clients[env.client.ID]; ok && current == env.client {
				h.deliver(env.client, env.payload)
			}

		case payload := <-h.Broadcast:
			for _, c := range h.clients {
				h.deliver(c, payload)
			}
		}
	}
}
