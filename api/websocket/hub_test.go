package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cosmossdk.io/log"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/yield-vault/api/engine"
)

var testTime = time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)

func events(types ...string) sdk.Events {
	out := make(sdk.Events, 0, len(types))
	for _, t := range types {
		out = append(out, sdk.NewEvent(t, sdk.NewAttribute("amount", "1")))
	}
	return out
}

func startHub(t *testing.T, journal *engine.Journal) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(journal, nil, log.NewNopLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

type received struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel"`
	Seq     uint64          `json:"seq"`
	Data    json.RawMessage `json:"data"`
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubResumeReplaysMissedEntries(t *testing.T) {
	journal := engine.NewJournal(10)
	journal.Append(1, testTime, events("vault_deposit_created", "vault_invested", "sim_yield"))
	_, srv := startHub(t, journal)

	conn := dial(t, srv, "?since=1")
	require.Equal(t, "connected", read(t, conn).Type)

	first := read(t, conn)
	require.Equal(t, "event", first.Type)
	require.Equal(t, uint64(2), first.Seq)
	require.Equal(t, "vault_invested", first.Channel)
	require.Equal(t, uint64(3), read(t, conn).Seq)
}

func TestHubBroadcastFiltersChannels(t *testing.T) {
	journal := engine.NewJournal(10)
	hub, srv := startHub(t, journal)

	conn := dial(t, srv, "?channels=vault_yield_claimed")
	hello := read(t, conn)
	require.Equal(t, "connected", hello.Type)
	require.Zero(t, hello.Seq)

	hub.Publish(journal.Append(2, testTime, events("vault_deposit_created", "vault_yield_claimed")))

	msg := read(t, conn)
	require.Equal(t, "vault_yield_claimed", msg.Channel)
	require.Equal(t, uint64(2), msg.Seq)

	var entry engine.Entry
	require.NoError(t, json.Unmarshal(msg.Data, &entry))
	require.Equal(t, "1", entry.Attributes["amount"])
}

func TestHubReportsGap(t *testing.T) {
	journal := engine.NewJournal(2)
	journal.Append(1, testTime, events("vault_invested", "vault_invested", "vault_invested"))
	_, srv := startHub(t, journal)

	conn := dial(t, srv, "?since=0")
	require.Equal(t, "connected", read(t, conn).Type)

	gap := read(t, conn)
	require.Equal(t, "gap", gap.Type)
	require.Equal(t, uint64(2), gap.Seq)
	require.Equal(t, uint64(2), read(t, conn).Seq)
	require.Equal(t, uint64(3), read(t, conn).Seq)
}

func TestHubClientActions(t *testing.T) {
	journal := engine.NewJournal(10)
	_, srv := startHub(t, journal)
	conn := dial(t, srv, "")
	require.Equal(t, "connected", read(t, conn).Type)

	tests := []struct {
		name     string
		msg      ClientMessage
		expected string
	}{
		{"ping", ClientMessage{Action: "ping"}, "pong"},
		{"subscribe", ClientMessage{Action: "subscribe", Channel: "vault_sponsored"}, "subscribed"},
		{"bad channel", ClientMessage{Action: "subscribe", Channel: "orders"}, "error"},
		{"unsubscribe", ClientMessage{Action: "unsubscribe", Channel: "vault_sponsored"}, "unsubscribed"},
		{"unknown", ClientMessage{Action: "dance"}, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteJSON(tt.msg))
			require.Equal(t, tt.expected, read(t, conn).Type)
		})
	}
}

func TestServeWSRejectsBadQuery(t *testing.T) {
	_, srv := startHub(t, engine.NewJournal(10))

	for _, query := range []string{"?since=abc", "?channels=orders"} {
		resp, err := http.Get(srv.URL + "/ws" + query)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}
}
