package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/gorilla/mux"

	"github.com/openalpha/yield-vault/api/engine"
	"github.com/openalpha/yield-vault/x/vault/types"
)

// SimulationHandler exposes devnet controls: minting test funds, moving the
// strategy's value and running the clock forward
type SimulationHandler struct {
	engine *engine.Engine
}

// NewSimulationHandler creates a new simulation handler
func NewSimulationHandler(e *engine.Engine) *SimulationHandler {
	return &SimulationHandler{engine: e}
}

// Register mounts the simulation routes on r
func (h *SimulationHandler) Register(r *mux.Router) {
	r.HandleFunc("/faucet", h.Faucet).Methods(http.MethodPost)
	r.HandleFunc("/yield", h.Yield).Methods(http.MethodPost)
	r.HandleFunc("/loss", h.Loss).Methods(http.MethodPost)
	r.HandleFunc("/advance", h.Advance).Methods(http.MethodPost)
	r.HandleFunc("/balances/{address}", h.Balance).Methods(http.MethodGet)
}

// FaucetRequest mints funds to an account
type FaucetRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// InjectRequest moves value in or out of the vault or its strategy
type InjectRequest struct {
	Target string `json:"target"` // "vault" or "strategy"
	Amount string `json:"amount"`
}

// AdvanceRequest moves the block clock forward
type AdvanceRequest struct {
	Duration string `json:"duration"` // time.ParseDuration format, e.g. "336h"
}

// SimResponse reports the block after a simulation step
type SimResponse struct {
	Height    int64     `json:"height"`
	BlockTime time.Time `json:"block_time"`
}

func (h *SimulationHandler) done(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, &SimResponse{
		Height:    h.engine.Height(),
		BlockTime: h.engine.BlockTime(),
	})
}

func parseAmount(raw string) (math.Int, error) {
	amount, ok := math.NewIntFromString(raw)
	if !ok || !amount.IsPositive() {
		return math.Int{}, types.ErrInvalidAmount.Wrapf("%q", raw)
	}
	return amount, nil
}

// Faucet handles POST /v1/sim/faucet
func (h *SimulationHandler) Faucet(w http.ResponseWriter, r *http.Request) {
	var req FaucetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}
	addr, err := sdk.AccAddressFromBech32(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_address", err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeTxError(w, err)
		return
	}

	if err := h.engine.Faucet(addr, amount); err != nil {
		writeTxError(w, err)
		return
	}
	h.done(w)
}

// Yield handles POST /v1/sim/yield
func (h *SimulationHandler) Yield(w http.ResponseWriter, r *http.Request) {
	h.inject(w, r, h.engine.InjectYield)
}

// Loss handles POST /v1/sim/loss
func (h *SimulationHandler) Loss(w http.ResponseWriter, r *http.Request) {
	h.inject(w, r, h.engine.InjectLoss)
}

func (h *SimulationHandler) inject(w http.ResponseWriter, r *http.Request, fn func(string, math.Int) error) {
	var req InjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}
	if req.Target == "" {
		req.Target = engine.TargetStrategy
	}
	if req.Target != engine.TargetStrategy && req.Target != engine.TargetVault {
		writeError(w, http.StatusBadRequest, "invalid_target", "target must be vault or strategy")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeTxError(w, err)
		return
	}

	if err := fn(req.Target, amount); err != nil {
		writeTxError(w, err)
		return
	}
	h.done(w)
}

// Advance handles POST /v1/sim/advance
func (h *SimulationHandler) Advance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}
	d, err := time.ParseDuration(req.Duration)
	if err != nil || d <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_duration", "duration must be positive, e.g. \"336h\"")
		return
	}

	if err := h.engine.Advance(d); err != nil {
		writeTxError(w, err)
		return
	}
	h.done(w)
}

// Balance handles GET /v1/sim/balances/{address}
func (h *SimulationHandler) Balance(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	addr, err := sdk.AccAddressFromBech32(address)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_address", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"address": address,
		"amount":  h.engine.Balance(addr).String(),
	})
}
