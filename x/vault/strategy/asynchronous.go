package strategy

import (
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/yield-vault/x/vault/types"
)

// PendingKeyPrefix prefixes the queued withdrawal of each asynchronous strategy
var PendingKeyPrefix = []byte{0x01}

var (
	_ types.Strategy = (*Asynchronous)(nil)
	_ types.Settler  = (*Asynchronous)(nil)
)

// Asynchronous only keeps liquidPct of its capital liquid. A withdrawal is
// paid from that buffer and whatever is left is queued until Settle.
type Asynchronous struct {
	base
	storeKey  storetypes.StoreKey
	liquidPct uint32
}

// NewAsynchronous creates an asynchronous strategy
func NewAsynchronous(name, denom string, vault sdk.AccAddress, bank BankKeeper, storeKey storetypes.StoreKey, liquidPct uint32) *Asynchronous {
	return &Asynchronous{
		base:      newBase(name, denom, vault, bank),
		storeKey:  storeKey,
		liquidPct: liquidPct,
	}
}

func (a *Asynchronous) pendingKey() []byte {
	return append(append([]byte{}, PendingKeyPrefix...), []byte(a.name)...)
}

// Pending is the amount requested but not yet delivered
func (a *Asynchronous) Pending(ctx sdk.Context) math.Int {
	bz := ctx.KVStore(a.storeKey).Get(a.pendingKey())
	if bz == nil {
		return math.ZeroInt()
	}
	var pending math.Int
	if err := pending.Unmarshal(bz); err != nil {
		return math.ZeroInt()
	}
	return pending
}

func (a *Asynchronous) setPending(ctx sdk.Context, pending math.Int) {
	store := ctx.KVStore(a.storeKey)
	if pending.IsZero() {
		store.Delete(a.pendingKey())
		return
	}
	bz, _ := pending.Marshal()
	store.Set(a.pendingKey(), bz)
}

// WithdrawToVault pays what the liquid buffer allows and queues the rest
func (a *Asynchronous) WithdrawToVault(ctx sdk.Context, amount math.Int) (math.Int, error) {
	if !amount.IsPositive() {
		return math.ZeroInt(), nil
	}
	balance := a.balance(ctx)
	paid := math.MinInt(amount, types.MulBasisPoints(balance, a.liquidPct))
	if err := a.send(ctx, a.vault, paid); err != nil {
		return math.ZeroInt(), err
	}

	queued := a.Pending(ctx).Add(amount.Sub(paid))
	a.setPending(ctx, math.MinInt(queued, balance.Sub(paid)))
	return paid, nil
}

// Settle delivers the queued withdrawal
func (a *Asynchronous) Settle(ctx sdk.Context) (math.Int, error) {
	paid := math.MinInt(a.Pending(ctx), a.balance(ctx))
	if err := a.send(ctx, a.vault, paid); err != nil {
		return math.ZeroInt(), err
	}
	a.setPending(ctx, math.ZeroInt())
	return paid, nil
}

// HasOutstandingAssets reports deployed capital or an undelivered withdrawal
func (a *Asynchronous) HasOutstandingAssets(ctx sdk.Context) bool {
	return a.balance(ctx).IsPositive() || a.Pending(ctx).IsPositive()
}

func (a *Asynchronous) IsSynchronous() bool { return false }

func (a *Asynchronous) MaxUnwindFeePct() uint32 { return 0 }
