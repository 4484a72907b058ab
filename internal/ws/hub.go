package ws

import (
	"context"
	"encoding/json"
	"sync"

	pkglogger "github.com/alumnihub/alumni-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisPubSubChannel = "ws:events"

// Event types pushed to clients
const (
	EventNotification  = "notification"
	EventConversations = "conversations"
	EventMessage       = "message"
	EventError         = "error"
)

var connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ws_connections_active",
	Help: "Open WebSocket connections on this instance",
})

// Event represents a real-time event sent via WebSocket
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub manages WebSocket clients and routes events to users.
// Events are fanned out to other instances over Redis pub/sub when a client is configured.
type Hub struct {
	// Registered clients grouped by user ID
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *targetedEvent

	mu          sync.RWMutex
	redisClient *redis.Client
	instanceID  string
	log         zerolog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

type targetedEvent struct {
	UserID string
	Event  *Event
}

// NewHub creates a new Hub; redisClient may be nil for a single instance
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *targetedEvent, 256),
		redisClient: redisClient,
		instanceID:  uuid.New().String(),
		log:         pkglogger.WithComponent("ws.hub"),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		client.close()
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Connected returns the number of open connections for userID
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	if h.redisClient != nil {
		go h.subscribeRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*Client]bool)
			}
			h.clients[client.userID][client] = true
			h.mu.Unlock()
			connectionsActive.Inc()

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.deliver(msg)

		case <-h.ctx.Done():
			h.mu.Lock()
			for _, clients := range h.clients {
				for client := range clients {
					client.close()
					connectionsActive.Dec()
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[client.userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			client.close()
			connectionsActive.Dec()
			if len(clients) == 0 {
				delete(h.clients, client.userID)
			}
		}
	}
}

func (h *Hub) deliver(msg *targetedEvent) {
	data, err := json.Marshal(msg.Event)
	if err != nil {
		h.log.Error().Err(err).Str("type", msg.Event.Type).Msg("marshal ws event")
		return
	}

	var slow []*Client
	h.mu.RLock()
	for client := range h.clients[msg.UserID] {
		if !client.enqueue(data) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// drop clients whose buffer is full
	for _, client := range slow {
		h.remove(client)
	}
}

// SendToUser sends an event to every connection of userID (local + Redis publish)
func (h *Hub) SendToUser(userID string, event *Event) {
	select {
	case h.broadcast <- &targetedEvent{UserID: userID, Event: event}:
	case <-h.ctx.Done():
		return
	}

	if h.redisClient != nil {
		msg := &redisMessage{Origin: h.instanceID, UserID: userID, Event: event}
		data, err := json.Marshal(msg)
		if err == nil {
			if err := h.redisClient.Publish(h.ctx, redisPubSubChannel, data).Err(); err != nil {
				h.log.Debug().Err(err).Msg("ws event publish failed")
			}
		}
	}
}

type redisMessage struct {
	Origin string `json:"origin"`
	UserID string `json:"user_id"`
	Event  *Event `json:"event"`
}

// subscribeRedis relays events published by other instances
func (h *Hub) subscribeRedis() {
	pubsub := h.redisClient.Subscribe(h.ctx, redisPubSubChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var rm redisMessage
			if err := json.Unmarshal([]byte(msg.Payload), &rm); err != nil || rm.Origin == h.instanceID {
				continue
			}
			select {
			case h.broadcast <- &targetedEvent{UserID: rm.UserID, Event: rm.Event}:
			case <-h.ctx.Done():
				return
			}
		case <-h.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.cancel()
}
