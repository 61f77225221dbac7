package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub keeps one live connection per user and fans events out to them.
// A user with no connection simply misses the push; the durable notification
// record is what they fall back on.
type Hub struct {
	log        *slog.Logger
	clients    map[string]*client
	register   chan *client
	unregister chan *client
	lock       sync.RWMutex
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[string]*client),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.lock.Lock()
			for _, c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[string]*client)
			h.lock.Unlock()
			return
		case c := <-h.register:
			h.lock.Lock()
			if old, ok := h.clients[c.userID]; ok {
				close(old.send)
			}
			h.clients[c.userID] = c
			h.lock.Unlock()
			h.log.Info("realtime client connected", "user_id", c.userID)
		case c := <-h.unregister:
			h.lock.Lock()
			if cur, ok := h.clients[c.userID]; ok && cur == c {
				delete(h.clients, c.userID)
				close(c.send)
			}
			h.lock.Unlock()
			h.log.Info("realtime client disconnected", "user_id", c.userID)
		}
	}
}

// Publish sends the event to the user's connection if one is live. Absence
// of a connection is not an error.
func (h *Hub) Publish(channel string, event any) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.lock.RLock()
	c, ok := h.clients[channel]
	h.lock.RUnlock()
	if !ok {
		return nil
	}

	select {
	case c.send <- raw:
	default:
		// Slow consumer; drop rather than block the caller.
		h.log.Warn("realtime send buffer full, dropping event", "user_id", channel)
	}
	return nil
}

// ServeWS upgrades the request to a websocket keyed by the userId query
// parameter.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "err", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, 256), userID: userID}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		// Clients only send heartbeats; payloads are discarded.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
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
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
