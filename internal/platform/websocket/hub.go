// Package websocket delivers live CareHub events over WebSockets. Clients
// subscribe to topics such as a hospital's bed board and receive every
// event broadcast to those topics, including bed allocations, releases,
// and admission queue changes.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	// sendBuffer is the per-client outbound queue. Clients that fall this
	// far behind start losing events.
	sendBuffer = 256

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 4096
)

const (
	actionSubscribe   = "subscribe"
	actionUnsubscribe = "unsubscribe"
)

// BedBoardTopic names the per-hospital topic that carries bed allocation,
// bed release, and admission queue events.
func BedBoardTopic(hospitalID string) string {
	return "hospitals/" + hospitalID + "/beds"
}

// Event is a single real-time notification pushed to subscribed clients.
type Event struct {
	Type       string          `json:"type"`
	Topic      string          `json:"topic"`
	Resource   string          `json:"resource"`
	ResourceID string          `json:"resource_id,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// ClientMessage is an inbound frame from a connected client, used to
// change its topic subscriptions.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// EventPublisher is implemented by the Hub and consumed by domain
// services that emit live events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Client is one connected WebSocket peer. Its subscription set is owned
// by the Hub; mu only guards reads racing with Hub mutations.
type Client struct {
	ID   string
	Send chan []byte

	mu     sync.RWMutex
	topics map[string]struct{}
}

// NewClient builds a client with the given initial subscriptions.
func NewClient(id string, topics ...string) *Client {
	c := &Client{
		ID:     id,
		Send:   make(chan []byte, sendBuffer),
		topics: make(map[string]struct{}, len(topics)),
	}
	for _, topic := range topics {
		c.topics[topic] = struct{}{}
	}
	return c
}

// add reports whether the topic was newly added.
func (c *Client) add(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.topics[topic]; ok {
		return false
	}
	c.topics[topic] = struct{}{}
	return true
}

// remove reports whether the topic was present.
func (c *Client) remove(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.topics[topic]; !ok {
		return false
	}
	delete(c.topics, topic)
	return true
}

// Topics returns a sorted snapshot of the client's subscriptions.
func (c *Client) Topics() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.topics))
	for topic := range c.topics {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}

// Hub fans events out to connected clients by topic. All state is guarded
// by mu; client locks are only ever taken while holding it.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Client]struct{}
	conns       map[*Client]struct{}
	logger      zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Client]struct{}),
		conns:       make(map[*Client]struct{}),
		logger:      logger,
	}
}

// attach requires mu to be held.
func (h *Hub) attach(topic string, client *Client) {
	set, ok := h.subscribers[topic]
	if !ok {
		set = make(map[*Client]struct{})
		h.subscribers[topic] = set
	}
	set[client] = struct{}{}
}

// detach requires mu to be held.
func (h *Hub) detach(topic string, client *Client) {
	set, ok := h.subscribers[topic]
	if !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.subscribers, topic)
	}
}

// Register adds the client and its initial subscriptions to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[client] = struct{}{}
	for _, topic := range client.Topics() {
		h.attach(topic, client)
	}
}

// Unregister detaches the client from every topic and closes its Send
// channel. Calling it twice for the same client is a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[client]; !ok {
		return
	}
	for _, topic := range client.Topics() {
		h.detach(topic, client)
	}
	delete(h.conns, client)
	close(client.Send)
}

// Subscribe adds topics to a registered client. Already-held topics are
// ignored.
func (h *Hub) Subscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, topic := range topics {
		if client.add(topic) {
			h.attach(topic, client)
		}
	}
}

// Unsubscribe removes topics from a registered client.
func (h *Hub) Unsubscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, topic := range topics {
		if client.remove(topic) {
			h.detach(topic, client)
		}
	}
}

// ProcessMessage applies a client's subscription change. Unknown actions
// are ignored.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	switch msg.Action {
	case actionSubscribe:
		h.Subscribe(client, msg.Topics)
	case actionUnsubscribe:
		h.Unsubscribe(client, msg.Topics)
	}
}

// Broadcast sends the event to every client subscribed to topic.
func (h *Hub) Broadcast(topic string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", topic).Msg("failed to marshal websocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	h.deliver(h.subscribers[topic], data)
}

// BroadcastAll sends the event to every connected client.
func (h *Hub) BroadcastAll(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal websocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	h.deliver(h.conns, data)
}

// deliver requires mu to be held. A client with a full Send buffer is
// skipped rather than blocking every other subscriber.
func (h *Hub) deliver(targets map[*Client]struct{}, data []byte) {
	for client := range targets {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// Publish routes the event to subscribers of its own topic.
func (h *Hub) Publish(_ context.Context, event Event) error {
	h.Broadcast(event.Topic, event)
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// TopicCount returns the number of clients subscribed to topic.
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browser origin enforcement is left to the deployment's edge proxy.
		return true
	},
}

// WebSocketHandler upgrades HTTP requests and runs the per-connection
// read and write pumps.
type WebSocketHandler struct {
	hub *Hub
}

// NewWebSocketHandler binds a handler to the hub.
func NewWebSocketHandler(hub *Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// RegisterRoutes mounts the WebSocket endpoint on the group.
func (wsh *WebSocketHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", wsh.HandleConnect)
}

// HandleConnect upgrades the connection and registers the client. Initial
// subscriptions may be passed as a comma-separated topics query parameter;
// further changes arrive as subscribe/unsubscribe frames.
func (wsh *WebSocketHandler) HandleConnect(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	var topics []string
	if raw := c.QueryParam("topics"); raw != "" {
		topics = strings.Split(raw, ",")
	}

	client := NewClient(uuid.New().String(), topics...)
	wsh.hub.Register(client)

	go wsh.writePump(client, conn)
	go wsh.readPump(client, conn)

	return nil
}

// readPump consumes subscription frames until the peer goes away, then
// unregisters the client. Malformed frames are ignored.
func (wsh *WebSocketHandler) readPump(client *Client, conn *gorillawebsocket.Conn) {
	defer func() {
		wsh.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxInboundSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		wsh.hub.ProcessMessage(client, msg)
	}
}

// writePump drains the client's Send channel onto the wire and keeps the
// connection alive with periodic pings. It exits when the hub closes the
// channel or a write fails.
func (wsh *WebSocketHandler) writePump(client *Client, conn *gorillawebsocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(gorillawebsocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
