package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cosmossdk.io/log"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/yield-vault/api/engine"
	"github.com/openalpha/yield-vault/x/vault/strategy"
	"github.com/openalpha/yield-vault/x/vault/types"
)

func testAddr(name string) string {
	bz := make([]byte, 20)
	copy(bz, name)
	return sdk.AccAddress(bz).String()
}

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	params := types.DefaultParams()
	params.Treasury = testAddr("treasury")

	e, err := engine.New(engine.Config{
		Admin:          testAddr("admin"),
		Params:         params,
		Strategies:     []strategy.Config{{Name: "alpha", Kind: strategy.KindSynchronous}},
		ActiveStrategy: "alpha",
	}, log.NewNopLogger())
	require.NoError(t, err)

	r := mux.NewRouter()
	NewVaultHandler(e).Register(r.PathPrefix("/v1/vault").Subrouter())
	NewSimulationHandler(e).Register(r.PathPrefix("/v1/sim").Subrouter())
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestVaultHandlerFlow(t *testing.T) {
	r := newTestRouter(t)
	alice := testAddr("alice")

	w := do(t, r, http.MethodPost, "/v1/sim/faucet", FaucetRequest{Address: alice, Amount: "1000"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/v1/vault/deposit", types.MsgDeposit{
		Depositor: alice,
		Amount:    "1000",
		Claims:    []types.ClaimSplit{{Beneficiary: alice, Pct: types.BasisPoints}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tx struct {
		Height int64                    `json:"height"`
		Result types.MsgDepositResponse `json:"result"`
	}
	decode(t, w, &tx)
	require.Len(t, tx.Result.DepositIDs, 1)
	require.Positive(t, tx.Height)

	var pool types.PoolInfo
	w = do(t, r, http.MethodGet, "/v1/vault/pool", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &pool)
	require.Equal(t, "1000", pool.Held.String())
	require.Equal(t, "1000", pool.TotalPrincipal.String())

	w = do(t, r, http.MethodPost, "/v1/sim/yield", InjectRequest{Target: engine.TargetStrategy, Amount: "100"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var info types.YieldInfo
	w = do(t, r, http.MethodGet, "/v1/vault/claimers/"+alice+"/yield", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &info)
	require.Equal(t, "98", info.ClaimableYield.String())
	require.Equal(t, "2", info.PerfFee.String())

	w = do(t, r, http.MethodPost, "/v1/vault/claim", types.MsgClaimYield{Claimer: alice, Destination: alice})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var balance map[string]string
	w = do(t, r, http.MethodGet, "/v1/sim/balances/"+alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &balance)
	require.Equal(t, "98", balance["amount"])

	var events EventsResponse
	w = do(t, r, http.MethodGet, "/v1/vault/events?since=0&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &events)
	require.Len(t, events.Events, 2)
	require.Equal(t, engine.EventTypeSimFaucet, events.Events[0].Type)
	require.Greater(t, events.Latest, uint64(2))
}

func TestVaultHandlerErrors(t *testing.T) {
	r := newTestRouter(t)
	alice := testAddr("alice")

	w := do(t, r, http.MethodPost, "/v1/sim/faucet", FaucetRequest{Address: alice, Amount: "500"})
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, http.MethodPost, "/v1/vault/deposit", types.MsgDeposit{
		Depositor: alice,
		Amount:    "500",
		Claims:    []types.ClaimSplit{{Beneficiary: alice, Pct: types.BasisPoints}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	tests := []struct {
		name     string
		method   string
		path     string
		body     interface{}
		expected int
		code     uint32
	}{
		{
			name: "locked withdraw", method: http.MethodPost, path: "/v1/vault/withdraw",
			body:     types.MsgWithdraw{Owner: alice, Destination: alice, DepositIDs: []uint64{1}},
			expected: http.StatusBadRequest, code: types.ErrAmountLocked.ABCICode(),
		},
		{
			name: "role change by non admin", method: http.MethodPost, path: "/v1/vault/admin/role",
			body:     types.MsgSetRole{Authority: alice, Account: alice, Role: types.RoleKeeper, Grant: true},
			expected: http.StatusForbidden, code: types.ErrUnauthorized.ABCICode(),
		},
		{
			name: "unknown deposit", method: http.MethodGet, path: "/v1/vault/deposits/99",
			expected: http.StatusNotFound, code: types.ErrDepositNotFound.ABCICode(),
		},
		{
			name: "unknown claimer", method: http.MethodGet, path: "/v1/vault/claimers/" + testAddr("bob"),
			expected: http.StatusNotFound, code: types.ErrClaimerNotFound.ABCICode(),
		},
		{
			name: "unknown field", method: http.MethodPost, path: "/v1/vault/claim",
			body:     map[string]string{"claimer": alice, "recipient": alice},
			expected: http.StatusBadRequest,
		},
		{
			name: "loss from missing target", method: http.MethodPost, path: "/v1/sim/loss",
			body:     InjectRequest{Target: "moon", Amount: "1"},
			expected: http.StatusBadRequest,
		},
		{
			name: "bad duration", method: http.MethodPost, path: "/v1/sim/advance",
			body:     AdvanceRequest{Duration: "-1h"},
			expected: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, tt.method, tt.path, tt.body)
			if w.Code != tt.expected {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.expected, w.Body.String())
			}
			if tt.code != 0 {
				var body struct {
					Codespace string `json:"codespace"`
					Code      uint32 `json:"code"`
				}
				decode(t, w, &body)
				require.Equal(t, types.ModuleName, body.Codespace)
				require.Equal(t, tt.code, body.Code)
			}
		})
	}
}
