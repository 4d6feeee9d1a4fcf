package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"cosmossdk.io/log"

	"github.com/openalpha/yield-vault/api/engine"
	"github.com/openalpha/yield-vault/metrics"
)

// Hub maintains the set of active clients and fans journal entries out to them
type Hub struct {
	// Registered clients
	clients    map[*Client]bool
	connsPerIP map[string]int

	// Register/unregister requests
	register   chan *Client
	unregister chan *Client

	// Replay requests from clients
	replay chan *ReplayRequest

	// Entries published by the engine
	broadcast chan []engine.Entry

	journal *engine.Journal
	metrics *metrics.Collector
	logger  log.Logger

	// Mutex for thread-safe reads from outside the run loop
	mu sync.RWMutex

	done chan struct{}

	// Configuration
	config *HubConfig
}

// HubConfig contains hub configuration
type HubConfig struct {
	// Connection limits
	MaxClientsPerIP  int `yaml:"max_clients_per_ip"`
	MaxSubscriptions int `yaml:"max_subscriptions"`

	// Rate limiting
	MessageRateLimit int `yaml:"message_rate_limit"` // Messages per second per client

	// Most entries sent for one replay request
	ReplayLimit int `yaml:"replay_limit"`
}

// DefaultHubConfig returns default hub configuration
func DefaultHubConfig() *HubConfig {
	return &HubConfig{
		MaxClientsPerIP:  10,
		MaxSubscriptions: 50,
		MessageRateLimit: 20,
		ReplayLimit:      1000,
	}
}

// ReplayRequest asks the hub to resend journal entries after Since
type ReplayRequest struct {
	Client *Client
	Since  uint64
}

// NewHub creates a new Hub reading history from journal. collector may be nil.
func NewHub(journal *engine.Journal, config *HubConfig, logger log.Logger, collector *metrics.Collector) *Hub {
	if config == nil {
		config = DefaultHubConfig()
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		connsPerIP: make(map[string]int),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		replay:     make(chan *ReplayRequest, 64),
		broadcast:  make(chan []engine.Entry, 256),
		journal:    journal,
		metrics:    collector,
		logger:     logger.With("module", "websocket"),
		done:       make(chan struct{}),
		config:     config,
	}
}

// Run starts the hub's main loop and returns once ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.removeClient(client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeClient(client)
			h.mu.Unlock()

		case req := <-h.replay:
			h.handleReplay(req)

		case entries := <-h.broadcast:
			h.broadcastEntries(entries)
		}
	}
}

// Publish queues entries for every interested client. It never blocks the
// caller; when the queue is full the entries stay available for replay.
func (h *Hub) Publish(entries []engine.Entry) {
	if len(entries) == 0 {
		return
	}
	select {
	case h.broadcast <- entries:
	default:
		h.logger.Error("broadcast queue full, clients must replay", "from_seq", entries[0].Seq)
	}
}

// registerClient adds a new client and replays what it missed
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.connsPerIP[client.ip]++
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.RecordWSConnection(1)
	}

	latest := h.journal.Latest()
	if !client.resume {
		client.lastSeq = latest
	}

	client.sendMessage(&WSMessage{
		Type: "connected",
		Seq:  latest,
		Data: map[string]interface{}{
			"client_id":     client.id,
			"subscriptions": client.Subscriptions(),
		},
	})

	if client.resume {
		h.handleReplay(&ReplayRequest{Client: client, Since: client.lastSeq})
	}
}

// removeClient drops a client. Callers hold h.mu.
func (h *Hub) removeClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	h.connsPerIP[client.ip]--
	if h.connsPerIP[client.ip] <= 0 {
		delete(h.connsPerIP, client.ip)
	}
	client.close()
	h.logger.Debug("websocket client left", "client", client.id, "connected_for", time.Since(client.connectedAt))

	if h.metrics != nil {
		h.metrics.RecordWSConnection(-1)
	}
}

// handleReplay resends journal entries after req.Since
func (h *Hub) handleReplay(req *ReplayRequest) {
	client := req.Client
	h.mu.RLock()
	_, ok := h.clients[client]
	h.mu.RUnlock()
	if !ok {
		return
	}

	if oldest := h.journal.Oldest(); oldest > req.Since+1 {
		client.sendMessage(&WSMessage{
			Type: "gap",
			Seq:  oldest,
			Data: map[string]uint64{"requested": req.Since + 1, "oldest": oldest},
		})
	}

	client.lastSeq = req.Since
	entries := h.journal.Since(req.Since, h.config.ReplayLimit)
	for _, entry := range entries {
		if !h.deliver(client, entry) {
			return
		}
	}
	if h.config.ReplayLimit > 0 && len(entries) == h.config.ReplayLimit {
		client.sendMessage(&WSMessage{Type: "replay_truncated", Seq: client.lastSeq})
	}
}

// broadcastEntries sends entries to every subscribed client
func (h *Hub) broadcastEntries(entries []engine.Entry) {
	h.mu.RLock()
	clientList := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	for _, client := range clientList {
		for _, entry := range entries {
			if !h.deliver(client, entry) {
				break
			}
		}
	}
}

// deliver sends entry to client when subscribed and not yet seen. A client
// whose buffer is full is disconnected and has to resume with a replay.
func (h *Hub) deliver(client *Client, entry engine.Entry) bool {
	if entry.Seq <= client.lastSeq {
		return true
	}
	client.lastSeq = entry.Seq
	if !client.wants(entry.Type) {
		return true
	}

	data, err := json.Marshal(&WSMessage{
		Type:    "event",
		Channel: entry.Type,
		Seq:     entry.Seq,
		Data:    entry,
	})
	if err != nil {
		return true
	}

	if client.trySend(data) {
		if h.metrics != nil {
			h.metrics.RecordWSMessage(entry.Type)
		}
		return true
	}

	h.logger.Info("dropping slow client", "client", client.id, "seq", entry.Seq)
	h.mu.Lock()
	h.removeClient(client)
	h.mu.Unlock()
	return false
}

// ============ Message Types ============

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel,omitempty"`
	Seq     uint64      `json:"seq,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// clientsFrom returns the number of clients connected from ip
func (h *Hub) clientsFrom(ip string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.connsPerIP[ip]
}
