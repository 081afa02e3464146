package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"chatsev-backend/db"
	"chatsev-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser origins are filtered by the CORS layer
	CheckOrigin: func(r *http.Request) bool { return true },
}

// subscribeRequest is the only inbound frame clients send: attach or
// detach from a conversation's change feed.
type subscribeRequest struct {
	Action         string `json:"action"` // subscribe | unsubscribe
	ConversationID string `json:"conversationId"`
}

type client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	userID        string
	conversations map[string]bool
}

// Hub fans the redis change feed out to connected websocket clients.
// Each client is attached to its own user channel plus the
// conversation channels it subscribed to.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
}

var DefaultHub = NewHub()

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
	}
}

// Run bridges the redis pub/sub feed into the hub. It blocks and is
// meant to run in its own goroutine for the process lifetime.
func (h *Hub) Run(ctx context.Context) {
	if db.Redis == nil {
		utils.LogError(nil, "Realtime hub started without redis, no events will be delivered")
		return
	}

	sub := db.Redis.PSubscribe(ctx, "conv:*", "user:*")
	defer sub.Close()

	for msg := range sub.Channel() {
		h.dispatch(msg.Channel, []byte(msg.Payload))
	}
}

func (h *Hub) dispatch(channel string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch {
	case strings.HasPrefix(channel, "conv:"):
		conversationID := strings.TrimPrefix(channel, "conv:")
		for c := range h.clients {
			if c.conversations[conversationID] {
				c.trySend(payload)
			}
		}
	case strings.HasPrefix(channel, "user:"):
		userID := strings.TrimPrefix(channel, "user:")
		for c := range h.clients {
			if c.userID == userID {
				c.trySend(payload)
			}
		}
	}
}

func (c *client) trySend(payload []byte) {
	select {
	case c.send <- payload:
	default:
		// Slow consumer, drop the frame rather than block the feed
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ServeWS upgrades the request and attaches the authenticated user to
// the hub.
func (h *Hub) ServeWS(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error upgrading websocket connection")
		return
	}

	cl := &client{
		hub:           h,
		conn:          conn,
		send:          make(chan []byte, sendBufferSize),
		userID:        userID.(string),
		conversations: make(map[string]bool),
	}
	h.register(cl)

	go cl.writePump()
	go cl.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var req subscribeRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			continue
		}
		if req.ConversationID == "" {
			continue
		}

		c.hub.mu.Lock()
		switch req.Action {
		case "subscribe":
			c.conversations[req.ConversationID] = true
		case "unsubscribe":
			delete(c.conversations, req.ConversationID)
		}
		c.hub.mu.Unlock()
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
