package websocket

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/openalpha/yield-vault/api/middleware"
)

// ServeWS upgrades the request and attaches the connection to the hub.
//
// Query parameters:
//
//	since    resume after this sequence number; missed entries are replayed
//	channels comma separated event types, defaults to "all"
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ip := middleware.ClientIP(r)
	if h.clientsFrom(ip) >= h.config.MaxClientsPerIP {
		http.Error(w, "Too many connections from this IP", http.StatusTooManyRequests)
		return
	}

	var (
		since  uint64
		resume bool
	)
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid since: "+raw, http.StatusBadRequest)
			return
		}
		since, resume = v, true
	}

	var channels []string
	if raw := r.URL.Query().Get("channels"); raw != "" {
		for _, ch := range strings.Split(raw, ",") {
			ch = strings.TrimSpace(ch)
			if !validChannel(ch) {
				http.Error(w, "unknown channel: "+ch, http.StatusBadRequest)
				return
			}
			channels = append(channels, ch)
		}
		if len(channels) > h.config.MaxSubscriptions {
			http.Error(w, "too many channels", http.StatusBadRequest)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "ip", ip, "error", err)
		return
	}

	client := NewClient(h, conn, uuid.NewString(), ip, channels)
	client.lastSeq = since
	client.resume = resume

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
