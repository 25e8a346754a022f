package sse

import (
	"context"
	"sync"

	"notifyd/internal/model"
)

type Client struct {
	Ch chan model.Snapshot
}

func NewClient() *Client {
	return &Client{Ch: make(chan model.Snapshot, 1)}
}

// Hub fans store snapshots out to UI subscribers. Only the newest snapshot
// matters, so slow clients lose intermediate ones.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan model.Snapshot
	clients    map[*Client]struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan model.Snapshot, 64),
		clients:    make(map[*Client]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast never blocks the caller; the store calls it from the socket loop.
// When the queue is full the oldest pending snapshot is discarded, so the
// newest one is always delivered.
func (h *Hub) Broadcast(snapshot model.Snapshot) {
	for {
		select {
		case h.broadcast <- snapshot:
			return
		default:
		}
		select {
		case <-h.broadcast:
		default:
		}
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case snapshot := <-h.broadcast:
			h.broadcastToClients(snapshot)
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

func (h *Hub) broadcastToClients(snapshot model.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.Ch <- snapshot:
			continue
		default:
		}
		// Replace the stale snapshot still sitting in the buffer.
		select {
		case <-client.Ch:
		default:
		}
		select {
		case client.Ch <- snapshot:
		default:
		}
	}
}
