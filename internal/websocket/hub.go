package websocket

import (
	"context"
	"sync"

	"github.com/dom/faceoff/internal/domain"
	"go.uber.org/zap"
)

// Hub owns the set of live browser connections. The set is only touched by
// the Run goroutine; everything else talks to it over channels.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopOnce   sync.Once
	logger     *zap.Logger

	// count mirrors len(clients) for readers outside Run
	mu    sync.RWMutex
	count int
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			for client := range h.clients {
				client.Close()
			}
			h.clients = make(map[*Client]bool)
			h.setCount()
			return

		case client := <-h.register:
			h.clients[client] = true
			if !client.trySend(connectedMessage) {
				h.remove(client)
			}
			h.setCount()

		case client := <-h.unregister:
			h.remove(client)
			h.setCount()

		case data := <-h.broadcast:
			h.deliver(data)
		}
	}
}

// deliver writes data to every client. Clients that cannot take the frame
// are collected and dropped once the walk is finished.
func (h *Hub) deliver(data []byte) {
	var dead []*Client
	for client := range h.clients {
		if !client.trySend(data) {
			dead = append(dead, client)
		}
	}

	for _, client := range dead {
		h.remove(client)
	}
	if len(dead) > 0 {
		h.logger.Warn("dropped unresponsive websocket clients",
			zap.Int("dropped", len(dead)),
			zap.Int("remaining", len(h.clients)),
		)
		h.setCount()
	}
}

func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.Close()
	}
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
}

// Stop closes every client and blocks until Run has returned.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues an already encoded frame for every client.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// Publish sends a match event to every connected browser on this instance.
func (h *Hub) Publish(_ context.Context, event domain.MatchEvent, match *domain.Match) {
	data, err := NewMatchMessage(event, match)
	if err != nil {
		h.logger.Error("failed to encode match event", zap.String("event", string(event)), zap.Error(err))
		return
	}
	h.Broadcast(data)
}

// ClientCount reports how many connections the hub currently holds.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}
