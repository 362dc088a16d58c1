package realtime

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/charlesng35/tripmate/internal/models"
	"github.com/charlesng35/tripmate/pkg/logger"
	"github.com/charlesng35/tripmate/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 10

	defaultBufferSize = 32
)

// Event names pushed to inbox subscribers.
const (
	EventNotificationCreated = "notification.created"
	EventPong                = "pong"
)

// Message is the JSON frame written to subscribers.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type controlMessage struct {
	Action string `json:"action"`
}

// HubOption customises a Hub.
type HubOption func(*Hub)

// WithAllowedOrigins accepts websocket upgrades from these origins in addition to
// same-host and loopback origins.
func WithAllowedOrigins(origins []string) HubOption {
	return func(h *Hub) {
		for _, origin := range origins {
			if host := hostWithoutPort(origin); host != "" {
				h.origins[strings.ToLower(host)] = struct{}{}
			}
		}
	}
}

// Hub fans inbox events out to the websocket connections of each user.
type Hub struct {
	mu       sync.RWMutex
	clients  map[uint]map[*connection]struct{}
	origins  map[string]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHub constructs an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients: make(map[uint]map[*connection]struct{}),
		origins: make(map[string]struct{}),
		log:     logger.WithModule("realtime"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve upgrades the request and streams the user's inbox events until the socket closes.
func (h *Hub) Serve(userID uint, w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Uint("user_id", userID), zap.Error(err))
		return
	}

	client := &connection{
		hub:    h,
		socket: socket,
		userID: userID,
		send:   make(chan Message, defaultBufferSize),
	}
	h.register(client)

	go client.writeLoop()
	client.readLoop()
}

// SendToUser queues msg for every connection of userID. Slow consumers are dropped.
func (h *Hub) SendToUser(userID uint, msg Message) {
	h.mu.RLock()
	targets := make([]*connection, 0, len(h.clients[userID]))
	for client := range h.clients[userID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		client.enqueue(msg)
	}
}

// PublishNotification pushes n to its owner's connections in this process.
func (h *Hub) PublishNotification(_ context.Context, n models.Notification) error {
	h.SendToUser(n.UserID, Message{Event: EventNotificationCreated, Data: n})
	return nil
}

// Subscribers reports how many connections userID holds.
func (h *Hub) Subscribers(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) register(client *connection) {
	h.mu.Lock()
	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*connection]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
	h.mu.Unlock()
	metrics.RealtimeSubscribers.Inc()
}

func (h *Hub) unregister(client *connection) {
	h.mu.Lock()
	if clients, ok := h.clients[client.userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			metrics.RealtimeSubscribers.Dec()
		}
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originHost := strings.ToLower(hostWithoutPort(origin))
	if originHost == strings.ToLower(hostWithoutPort(r.Host)) || isLoopback(originHost) {
		return true
	}
	_, ok := h.origins[originHost]
	return ok
}

type connection struct {
	hub    *Hub
	socket *websocket.Conn
	userID uint

	mu     sync.Mutex
	closed bool
	send   chan Message
}

func (c *connection) enqueue(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		c.hub.log.Warn("dropping slow realtime subscriber", zap.Uint("user_id", c.userID))
		c.closeLocked()
	}
}

func (c *connection) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("realtime socket closed", zap.Uint("user_id", c.userID), zap.Error(err))
			}
			return
		}

		var ctrl controlMessage
		if err := json.Unmarshal(payload, &ctrl); err != nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(ctrl.Action), "ping") {
			c.enqueue(Message{Event: EventPong})
		}
	}
}

func (c *connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.socket.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) close() {
	c.mu.Lock()
	c.closeLocked()
	c.mu.Unlock()
}

func (c *connection) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	c.hub.unregister(c)
	close(c.send)
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	if strings.Contains(host, "://") {
		if parsed, err := url.Parse(host); err == nil {
			return parsed.Hostname()
		}
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
