package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cosmossdk.io/log"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/yield-vault/api/handlers"
	"github.com/openalpha/yield-vault/x/vault/types"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Vault.Admin = testAddr("admin")
	cfg.Vault.Params.Treasury = testAddr("treasury")
	cfg.Keeper.Enabled = false
	cfg.Server.DisableRateLimit = true

	s, err := NewServer(cfg, log.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go s.hub.Run(ctx)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		require.NoError(t, s.Stop(context.Background()))
	})
	return s, srv
}

func post(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	resp, err := http.Post(url, "application/json", &buf)
	require.NoError(t, err)
	return resp
}

func TestServerRoutes(t *testing.T) {
	_, srv := newTestServer(t)
	alice := testAddr("alice")

	resp := post(t, srv.URL+"/v1/sim/faucet", handlers.FaucetRequest{Address: alice, Amount: "1000"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, srv.URL+"/v1/vault/deposit", types.MsgDeposit{
		Depositor: alice,
		Amount:    "1000",
		Claims:    []types.ClaimSplit{{Beneficiary: alice, Pct: types.BasisPoints}},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	require.Equal(t, "healthy", health["status"])
	require.Equal(t, float64(3), health["height"])

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Contains(t, string(body), `vault_pool_amount{component="held"} 1000`)
	require.Contains(t, string(body), `vault_events_total{type="vault_deposit_created"}`)
	require.Contains(t, string(body), `path="/v1/vault/deposit"`)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/v1/vault/deposit", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServerStreamsEvents(t *testing.T) {
	_, srv := newTestServer(t)
	alice := testAddr("alice")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?channels=sim_faucet"
	conn, resp, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()

	var msg struct {
		Type    string `json:"type"`
		Channel string `json:"channel"`
		Seq     uint64 `json:"seq"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "connected", msg.Type)

	resp = post(t, srv.URL+"/v1/sim/faucet", handlers.FaucetRequest{Address: alice, Amount: "5"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "event", msg.Type)
	require.Equal(t, "sim_faucet", msg.Channel)
	require.Equal(t, uint64(1), msg.Seq)
}

func TestServerWithoutSimulation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Simulation.Enabled = false
	cfg.Keeper.Enabled = false
	s, err := NewServer(cfg, log.NewNopLogger())
	require.NoError(t, err)
	defer s.Stop(context.Background())

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/sim/faucet", strings.NewReader("{}")))
	require.Equal(t, http.StatusNotFound, w.Code)
}
