package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quocanhngo/firechat/internal/model"
)

// Channel carries targeted events between gateway instances
const Channel = "firechat:events"

// Hub tracks every WebSocket connection on this instance. Targeted events
// go through Redis Pub/Sub so a user connected to another instance still
// receives them.
type Hub struct {
	// uid -> open connections (one user can have several tabs/devices)
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	rdb *redis.Client
	log zerolog.Logger

	// called when a user's first connection opens or the last one closes
	onStatusChange func(uid string, online bool)
}

func NewHub(rdb *redis.Client, onStatusChange func(uid string, online bool), logger zerolog.Logger) *Hub {
	return &Hub{
		clients:        make(map[string]map[*Client]bool),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		done:           make(chan struct{}),
		rdb:            rdb,
		log:            logger.With().Str("component", "hub").Logger(),
		onStatusChange: onStatusChange,
	}
}

// Run starts the Hub's main event loop
func (h *Hub) Run(ctx context.Context) {
	go h.subscribeRedis(ctx)
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// Register queues a client for registration with the hub. It reports
// false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister queues a client for removal
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.UID]; !ok {
		h.clients[client.UID] = make(map[*Client]bool)
		if h.onStatusChange != nil {
			go h.onStatusChange(client.UID, true)
		}
	}
	h.clients[client.UID][client] = true
	h.log.Info().Str("uid", client.UID).Int("connections", len(h.clients[client.UID])).Msg("✅ Client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.UID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	client.closeSend()

	if len(clients) == 0 {
		delete(h.clients, client.UID)
		if h.onStatusChange != nil {
			go h.onStatusChange(client.UID, false)
		}
	}
	h.log.Info().Str("uid", client.UID).Msg("❌ Client disconnected")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for uid, clients := range h.clients {
		for client := range clients {
			client.closeSend()
		}
		delete(h.clients, uid)
	}
}

// SendToUser delivers an event to every connection of uid on any instance
func (h *Hub) SendToUser(uid string, event *model.WSEvent) {
	h.publishToRedis(&TargetedEvent{TargetUID: uid, Event: event})
}

// sendToLocalUser delivers to connections on this instance only.
// A signed_out event closes the connections once it is queued.
func (h *Hub) sendToLocalUser(uid string, event *model.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("type", event.Type).Msg("Error marshaling event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[uid] {
		client.enqueue(data)
		if event.Type == model.WSEventSignedOut {
			client.closeSend()
		}
	}
}

// IsUserOnline checks if a user has any active connections on this instance
func (h *Hub) IsUserOnline(uid string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[uid]
	return ok
}

// ========== Redis Pub/Sub for Horizontal Scaling ==========

// TargetedEvent wraps an event with the user it is addressed to
type TargetedEvent struct {
	TargetUID string         `json:"target_uid"`
	Event     *model.WSEvent `json:"event"`
}

func (h *Hub) publishToRedis(data *TargetedEvent) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.log.Error().Err(err).Msg("Error marshaling for Redis")
		return
	}
	if err := h.rdb.Publish(context.Background(), Channel, payload).Err(); err != nil {
		h.log.Error().Err(err).Msg("Error publishing to Redis")
	}
}

func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, Channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	h.log.Info().Str("channel", Channel).Msg("📡 Redis Pub/Sub subscriber started")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var targeted TargetedEvent
			if err := json.Unmarshal([]byte(msg.Payload), &targeted); err != nil {
				h.log.Warn().Err(err).Msg("Error unmarshaling Redis message")
				continue
			}
			if targeted.TargetUID == "" || targeted.Event == nil {
				continue
			}
			h.sendToLocalUser(targeted.TargetUID, targeted.Event)
		}
	}
}
