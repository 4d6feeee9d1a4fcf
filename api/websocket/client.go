package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10 // must stay below pongWait
	maxMessageSize = 4096
	sendBufferSize = 512
)

// ChannelAll subscribes to every event type
const ChannelAll = "all"

// Client actions
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionReplay      = "replay"
	ActionPing        = "ping"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ClientMessage is a control frame sent by a subscriber
type ClientMessage struct {
	Action  string `json:"action"`
	Channel string `json:"channel,omitempty"` // event type or "all"
	Since   uint64 `json:"since,omitempty"`   // replay cursor
}

// Client is one websocket subscriber. The hub loop owns lastSeq and resume.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   string
	ip   string

	send   chan []byte
	sendMu sync.Mutex
	closed bool

	subMu         sync.RWMutex
	subscriptions map[string]struct{}

	limiter *rate.Limiter

	lastSeq uint64
	resume  bool

	connectedAt time.Time
}

// NewClient creates a client subscribed to channels, or to everything when
// channels is empty
func NewClient(hub *Hub, conn *websocket.Conn, id, ip string, channels []string) *Client {
	if len(channels) == 0 {
		channels = []string{ChannelAll}
	}
	perSecond := hub.config.MessageRateLimit
	if perSecond <= 0 {
		perSecond = 1
	}
	c := &Client{
		hub:           hub,
		conn:          conn,
		id:            id,
		ip:            ip,
		send:          make(chan []byte, sendBufferSize),
		subscriptions: make(map[string]struct{}, len(channels)),
		limiter:       rate.NewLimiter(rate.Limit(perSecond), perSecond),
		connectedAt:   time.Now(),
	}
	for _, ch := range channels {
		c.subscriptions[ch] = struct{}{}
	}
	return c
}

// readPump decodes control frames until the connection fails, then
// unregisters the client
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	extend := func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) }
	_ = extend("")
	c.conn.SetPongHandler(extend)

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read failed", "client", c.id, "error", err)
			}
			return
		}
		if !c.limiter.Allow() {
			c.sendError("rate_limit_exceeded", "too many messages")
			continue
		}
		var msg ClientMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			c.sendError("invalid_message", "malformed JSON")
			continue
		}
		c.handleMessage(msg)
	}
}

// writePump writes queued documents, one per frame, and keeps the
// connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				_ = write(websocket.CloseMessage, nil)
				return
			}
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg ClientMessage) {
	switch msg.Action {
	case ActionSubscribe:
		if !validChannel(msg.Channel) {
			c.sendError("invalid_channel", "unknown channel: "+msg.Channel)
			return
		}
		if !c.subscribe(msg.Channel) {
			c.sendError("subscription_limit", "subscription limit reached")
			return
		}
		c.sendMessage(&WSMessage{Type: "subscribed", Channel: msg.Channel})
	case ActionUnsubscribe:
		c.subMu.Lock()
		delete(c.subscriptions, msg.Channel)
		c.subMu.Unlock()
		c.sendMessage(&WSMessage{Type: "unsubscribed", Channel: msg.Channel})
	case ActionReplay:
		select {
		case c.hub.replay <- &ReplayRequest{Client: c, Since: msg.Since}:
		default:
			c.sendError("busy", "replay queue full")
		}
	case ActionPing:
		c.sendMessage(&WSMessage{Type: "pong", Data: map[string]int64{"timestamp": time.Now().UnixMilli()}})
	default:
		c.sendError("unknown_action", "unknown action: "+msg.Action)
	}
}

// validChannel accepts "all" and vault or simulation event types
func validChannel(channel string) bool {
	return channel == ChannelAll || strings.HasPrefix(channel, "vault_") || strings.HasPrefix(channel, "sim_")
}

// subscribe adds channel unless the client is at its subscription limit
func (c *Client) subscribe(channel string) bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if _, ok := c.subscriptions[channel]; ok {
		return true
	}
	if len(c.subscriptions) >= c.hub.config.MaxSubscriptions {
		return false
	}
	c.subscriptions[channel] = struct{}{}
	return true
}

// wants reports whether the client subscribed to eventType
func (c *Client) wants(eventType string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, all := c.subscriptions[ChannelAll]
	_, one := c.subscriptions[eventType]
	return all || one
}

// Subscriptions lists the client's channels
func (c *Client) Subscriptions() []string {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	subs := make([]string, 0, len(c.subscriptions))
	for ch := range c.subscriptions {
		subs = append(subs, ch)
	}
	return subs
}

// trySend queues data without blocking. It fails once the client is closed
// or its buffer is full.
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close closes the send channel once
func (c *Client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) sendMessage(msg *WSMessage) {
	if data, err := json.Marshal(msg); err == nil {
		c.trySend(data)
	}
}

func (c *Client) sendError(code, message string) {
	c.sendMessage(&WSMessage{Type: "error", Data: map[string]string{"code": code, "message": message}})
}
