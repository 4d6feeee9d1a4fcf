// Package engine runs a vault keeper in process over an in-memory store.
// The API service uses it as a single-node devnet: every call is executed
// as its own block and the events it emits are recorded in a journal.
package engine

import (
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/yield-vault/x/vault/keeper"
	"github.com/openalpha/yield-vault/x/vault/strategy"
	"github.com/openalpha/yield-vault/x/vault/testutil"
	"github.com/openalpha/yield-vault/x/vault/types"
)

// Simulation targets for InjectYield and InjectLoss
const (
	TargetVault    = "vault"
	TargetStrategy = "strategy"
)

// Config describes the vault the engine hosts
type Config struct {
	Admin          string
	Keepers        []string
	Params         types.Params
	Strategies     []strategy.Config
	ActiveStrategy string
	JournalSize    int
}

// Listener receives the entries produced by each successful call
type Listener func(entries []Entry)

// Engine hosts the keeper and serializes block production
type Engine struct {
	mu     sync.Mutex
	ctx    sdk.Context
	bank   *testutil.Bank
	keeper *keeper.Keeper

	msgServer   *keeper.MsgServer
	queryServer *keeper.QueryServer

	journal   *Journal
	listeners []Listener
	listenMu  sync.RWMutex

	clock  func() time.Time
	offset time.Duration
	logger log.Logger
}

// New builds the store, bank, strategies and keeper described by cfg
func New(cfg Config, logger log.Logger) (*Engine, error) {
	return newEngine(cfg, logger, time.Now)
}

func newEngine(cfg Config, logger log.Logger, clock func() time.Time) (*Engine, error) {
	if _, err := sdk.AccAddressFromBech32(cfg.Admin); err != nil {
		return nil, types.ErrInvalidAddress.Wrapf("admin: %s", err)
	}

	ctx, _ := testutil.NewContext(clock().UTC(), testutil.VaultStoreKey, testutil.StrategyStoreKey, testutil.BankStoreKey)
	bank := testutil.NewBank(testutil.BankStoreKey)
	cdc := codec.NewProtoCodec(codectypes.NewInterfaceRegistry())
	k := keeper.NewKeeper(cdc, testutil.VaultStoreKey, bank, cfg.Admin, logger)

	if err := k.InitGenesis(ctx, cfg.Params); err != nil {
		return nil, fmt.Errorf("init genesis: %w", err)
	}

	for _, sc := range cfg.Strategies {
		s, err := strategy.New(sc, cfg.Params.Denom, types.ModuleAddress(), bank, testutil.StrategyStoreKey)
		if err != nil {
			return nil, fmt.Errorf("strategy %q: %w", sc.Name, err)
		}
		k.RegisterStrategy(s)
	}
	if cfg.ActiveStrategy != "" {
		if err := k.SetStrategy(ctx, cfg.Admin, cfg.ActiveStrategy); err != nil {
			return nil, fmt.Errorf("activate strategy: %w", err)
		}
	}
	for _, account := range cfg.Keepers {
		if account == cfg.Admin {
			continue
		}
		if err := k.SetRole(ctx, cfg.Admin, account, types.RoleKeeper, true); err != nil {
			return nil, fmt.Errorf("grant keeper role: %w", err)
		}
	}

	return &Engine{
		ctx:         ctx.WithEventManager(sdk.NewEventManager()),
		bank:        bank,
		keeper:      k,
		msgServer:   keeper.NewMsgServerImpl(k),
		queryServer: keeper.NewQueryServerImpl(k),
		journal:     NewJournal(cfg.JournalSize),
		clock:       clock,
		logger:      logger.With("module", "engine"),
	}, nil
}

// Keeper returns the hosted keeper
func (e *Engine) Keeper() *keeper.Keeper { return e.keeper }

// MsgServer returns the vault MsgServer
func (e *Engine) MsgServer() *keeper.MsgServer { return e.msgServer }

// QueryServer returns the vault QueryServer
func (e *Engine) QueryServer() *keeper.QueryServer { return e.queryServer }

// Journal returns the event journal
func (e *Engine) Journal() *Journal { return e.journal }

// Subscribe registers l for every future batch of entries
func (e *Engine) Subscribe(l Listener) {
	e.listenMu.Lock()
	defer e.listenMu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Height returns the height of the last produced block
func (e *Engine) Height() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx.BlockHeight()
}

// BlockTime returns the time of the last produced block
func (e *Engine) BlockTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx.BlockTime()
}

// nextBlock advances height and time. Block time never goes backwards.
func (e *Engine) nextBlock() sdk.Context {
	now := e.clock().UTC().Add(e.offset)
	if now.Before(e.ctx.BlockTime()) {
		now = e.ctx.BlockTime()
	}
	e.ctx = e.ctx.
		WithBlockHeight(e.ctx.BlockHeight() + 1).
		WithBlockTime(now).
		WithEventManager(sdk.NewEventManager())
	return e.ctx
}

// Exec runs fn in a new block. Events emitted by a successful fn are
// journaled and handed to listeners.
func (e *Engine) Exec(fn func(ctx sdk.Context) error) error {
	e.mu.Lock()
	ctx := e.nextBlock()
	if err := fn(ctx); err != nil {
		e.mu.Unlock()
		return err
	}
	if err := e.keeper.EndBlocker(ctx); err != nil {
		e.logger.Error("end block", "height", ctx.BlockHeight(), "error", err)
	}
	entries := e.journal.Append(ctx.BlockHeight(), ctx.BlockTime(), ctx.EventManager().Events())
	e.mu.Unlock()

	e.notify(entries)
	return nil
}

// Query runs fn against the last block without producing a new one
func (e *Engine) Query(fn func(ctx sdk.Context) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.ctx.WithEventManager(sdk.NewEventManager()))
}

func (e *Engine) notify(entries []Entry) {
	if len(entries) == 0 {
		return
	}
	e.listenMu.RLock()
	listeners := append([]Listener(nil), e.listeners...)
	e.listenMu.RUnlock()

	for _, l := range listeners {
		l(entries)
	}
}

// Pool returns the pool view at the last block
func (e *Engine) Pool() (*types.PoolInfo, error) {
	var info *types.PoolInfo
	err := e.Query(func(ctx sdk.Context) error {
		var err error
		info, err = e.queryServer.Pool(ctx)
		return err
	})
	return info, err
}

// ============ Simulation ============

func (e *Engine) coins(ctx sdk.Context, amount math.Int) sdk.Coins {
	return sdk.NewCoins(sdk.NewCoin(e.keeper.GetParams(ctx).Denom, amount))
}

// Balance returns the balance of addr in the vault denom
func (e *Engine) Balance(addr sdk.AccAddress) math.Int {
	var balance math.Int
	_ = e.Query(func(ctx sdk.Context) error {
		balance = e.bank.GetBalance(ctx, addr, e.keeper.GetParams(ctx).Denom).Amount
		return nil
	})
	return balance
}

// Faucet mints amount of the vault denom to addr
func (e *Engine) Faucet(addr sdk.AccAddress, amount math.Int) error {
	if !amount.IsPositive() {
		return types.ErrInvalidAmount
	}
	return e.Exec(func(ctx sdk.Context) error {
		if err := e.bank.MintCoins(ctx, addr, e.coins(ctx, amount)); err != nil {
			return err
		}
		emitSim(ctx, EventTypeSimFaucet, addr.String(), amount)
		return nil
	})
}

func (e *Engine) targetAddress(ctx sdk.Context, target string) (sdk.AccAddress, error) {
	switch target {
	case TargetVault, "":
		return types.ModuleAddress(), nil
	case TargetStrategy:
		s, err := e.keeper.GetStrategy(ctx)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, types.ErrStrategyNotSet
		}
		return s.Address(), nil
	}
	return nil, fmt.Errorf("unknown target %q", target)
}

// InjectYield credits amount to the vault or its active strategy
func (e *Engine) InjectYield(target string, amount math.Int) error {
	if !amount.IsPositive() {
		return types.ErrInvalidAmount
	}
	return e.Exec(func(ctx sdk.Context) error {
		addr, err := e.targetAddress(ctx, target)
		if err != nil {
			return err
		}
		if err := e.bank.MintCoins(ctx, addr, e.coins(ctx, amount)); err != nil {
			return err
		}
		emitSim(ctx, EventTypeSimYield, addr.String(), amount)
		return nil
	})
}

// InjectLoss debits amount from the vault or its active strategy
func (e *Engine) InjectLoss(target string, amount math.Int) error {
	if !amount.IsPositive() {
		return types.ErrInvalidAmount
	}
	return e.Exec(func(ctx sdk.Context) error {
		addr, err := e.targetAddress(ctx, target)
		if err != nil {
			return err
		}
		if err := e.bank.BurnCoins(ctx, addr, e.coins(ctx, amount)); err != nil {
			return err
		}
		emitSim(ctx, EventTypeSimLoss, addr.String(), amount)
		return nil
	})
}

// Advance moves the clock forward by d, so locks can be run out
func (e *Engine) Advance(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("advance must be positive, got %s", d)
	}
	e.mu.Lock()
	e.offset += d
	e.mu.Unlock()

	return e.Exec(func(ctx sdk.Context) error {
		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				EventTypeSimAdvance,
				sdk.NewAttribute(AttributeKeyBy, d.String()),
				sdk.NewAttribute(AttributeKeyBlockTime, ctx.BlockTime().Format(time.RFC3339)),
			),
		)
		return nil
	})
}

// Simulation events
const (
	EventTypeSimFaucet  = "sim_faucet"
	EventTypeSimYield   = "sim_yield"
	EventTypeSimLoss    = "sim_loss"
	EventTypeSimAdvance = "sim_advance"

	AttributeKeyAddress   = "address"
	AttributeKeyBy        = "by"
	AttributeKeyBlockTime = "block_time"
)

func emitSim(ctx sdk.Context, eventType, addr string, amount math.Int) {
	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			eventType,
			sdk.NewAttribute(AttributeKeyAddress, addr),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
		),
	)
}
