package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/gorilla/mux"

	"github.com/openalpha/yield-vault/api/engine"
	"github.com/openalpha/yield-vault/x/vault/types"
)

const maxEventsPage = 1000

// VaultHandler serves vault transactions and queries
type VaultHandler struct {
	engine *engine.Engine
}

// NewVaultHandler creates a new vault handler
func NewVaultHandler(e *engine.Engine) *VaultHandler {
	return &VaultHandler{engine: e}
}

// Register mounts the vault routes on r
func (h *VaultHandler) Register(r *mux.Router) {
	q := r.Methods(http.MethodGet).Subrouter()
	q.HandleFunc("/params", h.GetParams)
	q.HandleFunc("/pool", h.GetPool)
	q.HandleFunc("/deposits/{id:[0-9]+}", h.GetDeposit)
	q.HandleFunc("/owners/{address}/deposits", h.GetOwnerDeposits)
	q.HandleFunc("/claimers/{address}", h.GetClaimer)
	q.HandleFunc("/claimers/{address}/deposits", h.GetClaimerDeposits)
	q.HandleFunc("/claimers/{address}/yield", h.GetYield)
	q.HandleFunc("/groups/{id:[0-9]+}", h.GetGroup)
	q.HandleFunc("/events", h.GetEvents)

	tx := r.Methods(http.MethodPost).Subrouter()
	tx.HandleFunc("/deposit", handleMsg(h.engine, h.engine.MsgServer().Deposit))
	tx.HandleFunc("/deposit/group", handleMsg(h.engine, h.engine.MsgServer().DepositForGroup))
	tx.HandleFunc("/sponsor", handleMsg(h.engine, h.engine.MsgServer().Sponsor))
	tx.HandleFunc("/unsponsor", handleMsg(h.engine, h.engine.MsgServer().Unsponsor))
	tx.HandleFunc("/withdraw", handleMsg(h.engine, h.engine.MsgServer().Withdraw))
	tx.HandleFunc("/claim", handleMsg(h.engine, h.engine.MsgServer().ClaimYield))
	tx.HandleFunc("/keeper", handleMsg(h.engine, h.engine.MsgServer().KeeperAction))
	tx.HandleFunc("/admin/params", handleMsg(h.engine, h.engine.MsgServer().UpdateParams))
	tx.HandleFunc("/admin/strategy", handleMsg(h.engine, h.engine.MsgServer().SetStrategy))
	tx.HandleFunc("/admin/role", handleMsg(h.engine, h.engine.MsgServer().SetRole))
}

// TxResponse wraps the result of a transaction with the block it landed in
type TxResponse struct {
	Height int64       `json:"height"`
	Result interface{} `json:"result"`
}

// handleMsg decodes a message of type M, executes it in a new block and
// writes the response
func handleMsg[M any, R any](e *engine.Engine, fn func(ctx context.Context, msg *M) (R, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msg := new(M)
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(msg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}

		var (
			resp   R
			height int64
		)
		err := e.Exec(func(ctx sdk.Context) error {
			var err error
			resp, err = fn(ctx, msg)
			height = ctx.BlockHeight()
			return err
		})
		if err != nil {
			writeTxError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, &TxResponse{Height: height, Result: resp})
	}
}

// query runs fn against the last block and writes its result
func query[R any](w http.ResponseWriter, e *engine.Engine, fn func(ctx sdk.Context) (R, error)) {
	var resp R
	err := e.Query(func(ctx sdk.Context) error {
		var err error
		resp, err = fn(ctx)
		return err
	})
	if err != nil {
		writeTxError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetParams handles GET /v1/vault/params
func (h *VaultHandler) GetParams(w http.ResponseWriter, r *http.Request) {
	query(w, h.engine, func(ctx sdk.Context) (types.Params, error) {
		return h.engine.QueryServer().Params(ctx)
	})
}

// GetPool handles GET /v1/vault/pool
func (h *VaultHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	query(w, h.engine, func(ctx sdk.Context) (*types.PoolInfo, error) {
		return h.engine.QueryServer().Pool(ctx)
	})
}

// GetDeposit handles GET /v1/vault/deposits/{id}
func (h *VaultHandler) GetDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}
	query(w, h.engine, func(ctx sdk.Context) (*types.Deposit, error) {
		return h.engine.QueryServer().Deposit(ctx, id)
	})
}

// GetOwnerDeposits handles GET /v1/vault/owners/{address}/deposits
func (h *VaultHandler) GetOwnerDeposits(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	query(w, h.engine, func(ctx sdk.Context) ([]*types.Deposit, error) {
		return h.engine.QueryServer().DepositsByOwner(ctx, address)
	})
}

// GetClaimer handles GET /v1/vault/claimers/{address}
func (h *VaultHandler) GetClaimer(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	query(w, h.engine, func(ctx sdk.Context) (*types.Claimer, error) {
		return h.engine.QueryServer().Claimer(ctx, address)
	})
}

// GetClaimerDeposits handles GET /v1/vault/claimers/{address}/deposits
func (h *VaultHandler) GetClaimerDeposits(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	query(w, h.engine, func(ctx sdk.Context) ([]*types.Deposit, error) {
		return h.engine.QueryServer().DepositsByClaimer(ctx, address)
	})
}

// GetYield handles GET /v1/vault/claimers/{address}/yield
func (h *VaultHandler) GetYield(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	query(w, h.engine, func(ctx sdk.Context) (types.YieldInfo, error) {
		return h.engine.QueryServer().YieldFor(ctx, address)
	})
}

// GroupResponse is a deposit group with its deposits
type GroupResponse struct {
	*types.Group
	Deposits []*types.Deposit `json:"deposits"`
}

// GetGroup handles GET /v1/vault/groups/{id}
func (h *VaultHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}
	query(w, h.engine, func(ctx sdk.Context) (*GroupResponse, error) {
		group, deposits, err := h.engine.QueryServer().Group(ctx, id)
		if err != nil {
			return nil, err
		}
		return &GroupResponse{Group: group, Deposits: deposits}, nil
	})
}

// EventsResponse is a page of journaled events
type EventsResponse struct {
	Events []engine.Entry `json:"events"`
	Oldest uint64         `json:"oldest"`
	Latest uint64         `json:"latest"`
}

// GetEvents handles GET /v1/vault/events?since=&limit=
func (h *VaultHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_since", err.Error())
			return
		}
		since = v
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(v, maxEventsPage)
	}

	journal := h.engine.Journal()
	events := journal.Since(since, limit)
	if events == nil {
		events = []engine.Entry{}
	}
	writeJSON(w, http.StatusOK, &EventsResponse{
		Events: events,
		Oldest: journal.Oldest(),
		Latest: journal.Latest(),
	})
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// writeTxError maps a vault error onto an HTTP status and writes it with its
// registered code
func writeTxError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.IsOf(err, types.ErrUnauthorized, types.ErrNotOwnerOfDeposit, types.ErrSenderNotOwnerOfGroup):
		status = http.StatusForbidden
	case errors.IsOf(err, types.ErrDepositNotFound, types.ErrClaimerNotFound, types.ErrGroupNotFound):
		status = http.StatusNotFound
	case errors.IsOf(err, types.ErrArithmetic, types.ErrInvariantBroken):
		status = http.StatusInternalServerError
	}

	codespace, code, _ := errors.ABCIInfo(err, false)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":     "tx_failed",
		"message":   err.Error(),
		"codespace": codespace,
		"code":      code,
	})
}
