package ws

import (
	"context"
	"sync"

	"github.com/sailchat/internal/logger"
	"github.com/sailchat/internal/presence"
)

// Hub owns every live WebSocket connection and mirrors its lifecycle into the
// presence registry. Delivery targeting (which user, which connection) is
// decided by the chat engine; the hub only moves frames.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*Client]struct{}
	byConn   map[string]*Client
	total    int
	maxConns int

	registry *presence.Registry

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(registry *presence.Registry, maxConns int) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		byConn:     make(map[string]*Client),
		maxConns:   maxConns,
		registry:   registry,
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	// Collect all clients under the lock, do NOT perform I/O under mutex.
	h.mu.Lock()
	allClients := make([]*Client, 0, h.total)
	for _, clients := range h.clients {
		for c := range clients {
			allClients = append(allClients, c)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.byConn = make(map[string]*Client)
	h.total = 0
	h.mu.Unlock()

	// Close connections outside the lock (network I/O).
	for _, c := range allClients {
		h.registry.Disconnect(c.userID, c.connID)
		c.Close()
	}
	for _, c := range allClients {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if h.total >= h.maxConns {
		h.mu.Unlock()
		logger.Errorf("ws connection limit reached (%d), rejecting user=%s", h.maxConns, c.userID)
		c.Close()
		return
	}
	if _, ok := h.clients[c.userID]; !ok {
		h.clients[c.userID] = make(map[*Client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.byConn[c.connID] = c
	h.total++
	h.mu.Unlock()

	h.registry.Connect(c.userID, c.connID)
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	clients, ok := h.clients[c.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := clients[c]; !exists {
		h.mu.Unlock()
		return
	}
	delete(clients, c)
	delete(h.byConn, c.connID)
	h.total--
	if len(clients) == 0 {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()

	// Registry cleanup and network I/O outside the lock.
	h.registry.Disconnect(c.userID, c.connID)
	c.Close()
}

// HandleEvent dispatches incoming screen-tracking events into the registry.
func (h *Hub) HandleEvent(c *Client, ev Incoming) {
	switch ev.Type {
	case EventInChatScreen:
		h.registry.EnterChatList(c.userID, c.connID)
	case EventOpenChat:
		if ev.ChatID == "" {
			h.sendToClient(c, Outgoing{Type: EventError, Payload: "chat_id required"})
			return
		}
		h.registry.OpenChat(c.userID, c.connID, ev.ChatID)
	case EventLeaveChatScreen:
		h.registry.LeaveChatList(c.userID, c.connID)
	case EventCloseChat:
		h.registry.CloseChat(c.userID, c.connID)
	default:
		h.sendToClient(c, Outgoing{Type: EventError, Payload: "unknown event type"})
	}
}

// Push delivers one frame to one specific connection of the user. A stale
// connection id (raced with a disconnect) is a silent no-op.
func (h *Hub) Push(userID, connID string, msg Outgoing) {
	h.mu.RLock()
	c, ok := h.byConn[connID]
	h.mu.RUnlock()
	if !ok || c.userID != userID {
		return
	}
	h.sendToClient(c, msg)
}

// PushToUser delivers one frame to every live connection of the user.
func (h *Hub) PushToUser(userID string, msg Outgoing) {
	h.mu.RLock()
	clients, ok := h.clients[userID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]*Client, 0, len(clients))
	for c := range clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, msg)
	}
}

func (h *Hub) sendToClient(c *Client, msg Outgoing) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		// Backpressure: send buffer full, close slow client.
		logger.Errorf("ws send buffer full, closing slow client user=%s conn=%s", c.userID, c.connID)
		c.Close()
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
