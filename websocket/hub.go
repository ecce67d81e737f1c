package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a connected WebSocket client
type Client struct {
	Hub        *Hub
	ID         uint
	UserType   string // "customer", "worker" or "station"
	WorkerRole string // set for workers; used for targeted dispatch
	Conn       *websocket.Conn
	Send       chan []byte
}

// Hub manages all WebSocket connections
type Hub struct {
	// Registered clients by user ID
	Clients map[uint]*Client

	// Broadcast channel for messages to all clients
	Broadcast chan *Message

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Message handlers
	MessageHandlers map[string]MessageHandler

	// LocationSink receives location_update payloads from worker clients
	LocationSink func(workerUserID uint, lat, lng float64, at time.Time)

	mu sync.RWMutex
}

// Message is the wire envelope for all WebSocket traffic
type Message struct {
	Type       string      `json:"type"`
	SenderID   uint        `json:"sender_id,omitempty"`
	SenderType string      `json:"sender_type,omitempty"`
	Latitude   float64     `json:"latitude,omitempty"`
	Longitude  float64     `json:"longitude,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       interface{} `json:"data,omitempty"`
}

// MessageHandler handles different types of messages
type MessageHandler func(*Client, *Message) error

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	hub := &Hub{
		Clients:         make(map[uint]*Client),
		Broadcast:       make(chan *Message),
		Register:        make(chan *Client),
		Unregister:      make(chan *Client),
		MessageHandlers: make(map[string]MessageHandler),
	}

	hub.registerDefaultHandlers()

	return hub
}

func (h *Hub) registerDefaultHandlers() {
	h.MessageHandlers["ping"] = h.handlePing
	h.MessageHandlers["location_update"] = h.handleLocationUpdate
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.Clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("🔌 Client registered: ID=%d, Type=%s", client.ID, client.UserType)

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.Clients[client.ID]; ok {
				delete(h.Clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			log.Printf("🔌 Client unregistered: ID=%d, Type=%s", client.ID, client.UserType)

		case message := <-h.Broadcast:
			h.broadcastMessage(message)
		}
	}
}

// broadcastMessage sends a message to all connected clients
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Error marshaling message: %v", err)
		return
	}

	for _, client := range h.Clients {
		select {
		case client.Send <- data:
		default:
			close(client.Send)
			delete(h.Clients, client.ID)
		}
	}
}

// SendToUser sends a message to a specific user
func (h *Hub) SendToUser(userID uint, message *Message) {
	h.mu.RLock()
	client, exists := h.Clients[userID]
	h.mu.RUnlock()

	if !exists {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Error marshaling message: %v", err)
		return
	}

	select {
	case client.Send <- data:
	default:
		log.Printf("⚠️ User %d's send buffer is full", userID)
	}
}

// BroadcastToRole sends a message to every connected worker with the given
// role, used to announce new pending requests to the workers who can take
// them.
func (h *Hub) BroadcastToRole(workerRole string, message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Error marshaling message: %v", err)
		return
	}

	sent := 0
	for _, client := range h.Clients {
		if client.UserType != "worker" || client.WorkerRole != workerRole {
			continue
		}
		select {
		case client.Send <- data:
			sent++
		default:
			log.Printf("⚠️ Worker %d's send buffer is full", client.ID)
		}
	}
	log.Printf("📡 Broadcast %s to %d %s workers", message.Type, sent, workerRole)
}

// BroadcastNewServiceRequest notifies role-matched workers about a new
// pending request.
func (h *Hub) BroadcastNewServiceRequest(workerRole string, payload interface{}) {
	h.BroadcastToRole(workerRole, &Message{
		Type:      "new_service_request",
		Timestamp: time.Now().UTC(),
		Data:      payload,
	})
}

// GetConnectedUsers returns a list of currently connected user IDs
func (h *Hub) GetConnectedUsers() []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]uint, 0, len(h.Clients))
	for userID := range h.Clients {
		users = append(users, userID)
	}
	return users
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.Clients[userID]
	return exists
}

// handlePing responds to keep-alive pings
func (h *Hub) handlePing(client *Client, message *Message) error {
	h.SendToUser(client.ID, &Message{
		Type:      "pong",
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// handleLocationUpdate forwards worker position reports to the sink
func (h *Hub) handleLocationUpdate(client *Client, message *Message) error {
	if client.UserType != "worker" {
		return nil
	}
	if message.Latitude == 0 && message.Longitude == 0 {
		return nil
	}
	if h.LocationSink != nil {
		h.LocationSink(client.ID, message.Latitude, message.Longitude, message.Timestamp)
	}
	return nil
}
