package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/presence-relay/internal/presence"
	"github.com/gorilla/websocket"
)

// Hub manages every WebSocket session and is the relay's only dispatcher:
// registrations, unregistrations and inbound events are consumed by Run one at
// a time and handed to the presence Router. It also implements
// presence.Transport, keeping the per-group routing sets the Router relies on.
type Hub struct {
	cfg        Config
	log        *slog.Logger
	metrics    *Metrics
	router     *presence.Router
	upgrader   websocket.Upgrader
	clients    map[string]*Client
	groups     map[string]map[string]struct{}
	inbound    chan inboundEvent
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a hub ready to Run. The hub owns its presence Router.
func NewHub(cfg Config, log *slog.Logger, metrics *Metrics) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	origins := NewOriginPolicy(cfg.Origins(), log)

	h := &Hub{
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.Check,
		},
		clients:    make(map[string]*Client),
		groups:     make(map[string]map[string]struct{}),
		inbound:    make(chan inboundEvent),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	h.router = presence.NewRouter(h, log)
	return h
}

// Router exposes the presence state for read-only queries.
func (h *Hub) Router() *presence.Router {
	return h.router
}

// ActiveSessions returns the number of connected sessions.
func (h *Hub) ActiveSessions() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.clients)
}

// Run starts the hub's event loop. It returns once Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("Received nil client registration; skipping")
				continue
			}
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case in := <-h.inbound:
			h.dispatch(in)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()

	h.metrics.setSessions(clientCount)
	client.log.Info("Client registered", "clients", clientCount)

	h.router.Connect(client.id)
	h.Send(client.id, presence.Outbound{Event: EventSession, Data: SessionInfo{UserID: client.id}})

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client.id)
	for name, members := range h.groups {
		delete(members, client.id)
		if len(members) == 0 {
			delete(h.groups, name)
		}
	}
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)
	h.metrics.setSessions(clientCount)
	client.log.Info("Client unregistered", "clients", clientCount)

	h.router.Disconnect(client.id)
}

// dispatch runs one inbound event through the router. A panicking handler
// costs only that event.
func (h *Hub) dispatch(in inboundEvent) {
	kind := in.event.Kind()
	defer func() {
		if r := recover(); r != nil {
			in.client.log.Error("Recovered from panic in event handler", "event", kind, "panic", r)
			h.metrics.inbound(kind, outcomePanic)
		}
	}()

	err := h.router.Dispatch(in.client.id, in.event)
	switch {
	case err == nil:
		h.metrics.inbound(kind, outcomeOK)
	case errors.Is(err, presence.ErrUnknownEvent):
		in.client.log.Warn("Event dropped", "event", kind, "error", err)
		h.metrics.inbound(kind, outcomeUnknown)
	default:
		in.client.log.Info("Event dropped", "event", kind, "error", err)
		h.metrics.inbound(kind, outcomeRejected)
	}
}

// Send queues event for one session. Unknown sessions are ignored.
func (h *Hub) Send(sessionID string, event presence.Outbound) {
	payload, ok := h.encode(event)
	if !ok {
		return
	}

	h.mutex.RLock()
	client, exists := h.clients[sessionID]
	h.mutex.RUnlock()
	if !exists {
		return
	}
	h.deliver(client, event.Event, payload)
}

// SendToGroup queues event for every live member of the group.
func (h *Hub) SendToGroup(group string, event presence.Outbound) {
	payload, ok := h.encode(event)
	if !ok {
		return
	}

	h.mutex.RLock()
	targets := make([]*Client, 0, len(h.groups[group]))
	for id := range h.groups[group] {
		if client, exists := h.clients[id]; exists {
			targets = append(targets, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range targets {
		h.deliver(client, event.Event, payload)
	}
}

// JoinGroup adds a live session to the group's routing set.
func (h *Hub) JoinGroup(sessionID, group string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, exists := h.clients[sessionID]; !exists {
		return
	}
	members, ok := h.groups[group]
	if !ok {
		members = make(map[string]struct{})
		h.groups[group] = members
	}
	members[sessionID] = struct{}{}
}

func (h *Hub) encode(event presence.Outbound) ([]byte, bool) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("Error encoding outbound event", "event", event.Event, "error", err)
		return nil, false
	}
	return payload, true
}

// deliver queues payload without blocking. A client whose buffer is full
// misses the event and has its connection closed; its read pump then
// unregisters it through the normal path.
func (h *Hub) deliver(client *Client, event string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("Recovered from panic in deliver", "panic", r)
		}
	}()

	// Hold the lock during the send so removeClient cannot close the channel underneath us
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, exists := h.clients[client.id]; !exists || client.closed {
		return
	}

	select {
	case client.send <- payload:
		h.metrics.outbound(event)
	default:
		h.metrics.dropped()
		client.log.Warn("Send buffer full; closing slow client", "event", event)
		if client.conn != nil {
			go client.closeConnection()
		}
	}
}

// shutdownClients closes every active connection.
func (h *Hub) shutdownClients() {
	h.log.Info("Shutting down all client connections...")

	h.mutex.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()

	for _, client := range clients {
		if client.conn != nil {
			client.closeConnection()
		}
	}

	h.log.Info("Closed client connections", "count", len(clients))
}

// Shutdown stops Run and waits for every client goroutine to finish, or for
// the timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		h.log.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
