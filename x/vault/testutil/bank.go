package testutil

import (
	"context"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
)

// BalanceKeyPrefix prefixes every balance record
var BalanceKeyPrefix = []byte{0x01}

// Bank is a minimal bank keeper over its own KV store. Balances live in the
// multistore, so a discarded cache context also discards transfers.
type Bank struct {
	storeKey storetypes.StoreKey
}

// NewBank creates a bank over storeKey
func NewBank(storeKey storetypes.StoreKey) *Bank {
	return &Bank{storeKey: storeKey}
}

func balanceKey(addr sdk.AccAddress, denom string) []byte {
	key := append([]byte{}, BalanceKeyPrefix...)
	key = append(key, byte(len(addr)))
	key = append(key, addr...)
	return append(key, []byte(denom)...)
}

func (b *Bank) store(ctx context.Context) storetypes.KVStore {
	return sdk.UnwrapSDKContext(ctx).KVStore(b.storeKey)
}

// GetBalance returns the balance of addr in denom
func (b *Bank) GetBalance(ctx context.Context, addr sdk.AccAddress, denom string) sdk.Coin {
	bz := b.store(ctx).Get(balanceKey(addr, denom))
	if bz == nil {
		return sdk.NewCoin(denom, math.ZeroInt())
	}
	var amount math.Int
	if err := amount.Unmarshal(bz); err != nil {
		panic(err)
	}
	return sdk.NewCoin(denom, amount)
}

func (b *Bank) setBalance(ctx context.Context, addr sdk.AccAddress, coin sdk.Coin) {
	key := balanceKey(addr, coin.Denom)
	if coin.Amount.IsZero() {
		b.store(ctx).Delete(key)
		return
	}
	bz, err := coin.Amount.Marshal()
	if err != nil {
		panic(err)
	}
	b.store(ctx).Set(key, bz)
}

// SendCoins moves amt from fromAddr to toAddr
func (b *Bank) SendCoins(ctx context.Context, fromAddr, toAddr sdk.AccAddress, amt sdk.Coins) error {
	if !amt.IsValid() {
		return errors.Wrap(sdkerrors.ErrInvalidCoins, amt.String())
	}
	for _, coin := range amt {
		balance := b.GetBalance(ctx, fromAddr, coin.Denom)
		if balance.Amount.LT(coin.Amount) {
			return errors.Wrapf(sdkerrors.ErrInsufficientFunds, "%s has %s, needs %s", fromAddr, balance, coin)
		}
		b.setBalance(ctx, fromAddr, balance.Sub(coin))
		b.setBalance(ctx, toAddr, b.GetBalance(ctx, toAddr, coin.Denom).Add(coin))
	}
	return nil
}

// MintCoins credits amt to addr out of thin air
func (b *Bank) MintCoins(ctx context.Context, addr sdk.AccAddress, amt sdk.Coins) error {
	if !amt.IsValid() {
		return errors.Wrap(sdkerrors.ErrInvalidCoins, amt.String())
	}
	for _, coin := range amt {
		b.setBalance(ctx, addr, b.GetBalance(ctx, addr, coin.Denom).Add(coin))
	}
	return nil
}

// BurnCoins destroys amt held by addr
func (b *Bank) BurnCoins(ctx context.Context, addr sdk.AccAddress, amt sdk.Coins) error {
	if !amt.IsValid() {
		return errors.Wrap(sdkerrors.ErrInvalidCoins, amt.String())
	}
	for _, coin := range amt {
		balance := b.GetBalance(ctx, addr, coin.Denom)
		if balance.Amount.LT(coin.Amount) {
			return errors.Wrapf(sdkerrors.ErrInsufficientFunds, "%s has %s, burning %s", addr, balance, coin)
		}
		b.setBalance(ctx, addr, balance.Sub(coin))
	}
	return nil
}
