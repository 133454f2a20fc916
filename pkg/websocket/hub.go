package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Hub fans live updates (position samples, safety-check prompts, escalation
// notices) out to connected UI clients. Slow clients are dropped rather than
// allowed to back-pressure the engine.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
}

type Message struct {
	Type      string                 `json:"type"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

const (
	MessagePosition    = "position"
	MessageSafetyCheck = "safety_check"
	MessageEscalation  = "escalation"
	MessageVoiceStatus = "voice_status"
)

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			h.sendToAll(message)
		}
	}
}

// Publish broadcasts a typed message to every connected client.
func (h *Hub) Publish(msgType string, data map[string]interface{}) {
	message := Message{
		Type:      msgType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}

	raw, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling hub message: %v", err)
		return
	}

	select {
	case h.broadcast <- raw:
	default:
		// Hub backlog full: drop rather than stall the caller.
	}
}

func (h *Hub) sendToAll(data []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}
