package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub tracks the live connections of every signed-in submitter and pushes
// envelopes to all connections of one user.
type Hub struct {
	userClients map[uint64]map[*Client]struct{}
	register    chan *Client
	unregister  chan *Client
	done        chan struct{}
	mu          sync.RWMutex
	logger      *zap.Logger
	now         func() time.Time
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		userClients: make(map[uint64]map[*Client]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		logger:      logger,
		now:         time.Now,
	}
}

// Run owns registration until ctx is cancelled, then closes every connection's send queue.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.userClients[client.UserID]
			if !ok {
				set = make(map[*Client]struct{})
				h.userClients[client.UserID] = set
			}
			set[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("live client registered", zap.Uint64("userID", client.UserID))
		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()
		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.userClients {
				for client := range set {
					h.drop(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// drop must be called with mu held.
func (h *Hub) drop(client *Client) {
	set, ok := h.userClients[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.userClients, client.UserID)
	}
	h.logger.Debug("live client dropped", zap.Uint64("userID", client.UserID))
}

// Register hands the client to Run. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Connections reports how many live connections userID has.
func (h *Hub) Connections(userID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID])
}

// SendToUser queues one envelope on every connection of userID and returns how many received it.
// A connection whose queue is full is dropped.
func (h *Hub) SendToUser(userID uint64, messageType string, payload interface{}) (int, error) {
	message, err := json.Marshal(Envelope{
		Type:      messageType,
		Payload:   payload,
		Timestamp: h.now().UTC(),
	})
	if err != nil {
		return 0, err
	}

	var (
		delivered int
		slow      []*Client
	)
	h.mu.RLock()
	for client := range h.userClients[userID] {
		select {
		case client.Send <- message:
			delivered++
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("live client too slow, dropping", zap.Uint64("userID", userID))
		go h.Unregister(client)
	}
	return delivered, nil
}
