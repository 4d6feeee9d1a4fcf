// Package strategy holds the Strategy adapters the vault can invest through.
// Both keep their capital in a dedicated account and report the balance of
// that account as their invested value, so yield and loss show up by
// crediting or debiting the account.
package strategy

import (
	"context"

	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"

	"github.com/openalpha/yield-vault/x/vault/types"
)

// Kinds accepted by New
const (
	KindSynchronous  = "sync"
	KindAsynchronous = "async"
)

// StoreKey is the store asynchronous strategies keep their queue in
const StoreKey = "strategies"

// BankKeeper is the subset of the bank a strategy needs
type BankKeeper interface {
	GetBalance(ctx context.Context, addr sdk.AccAddress, denom string) sdk.Coin
	SendCoins(ctx context.Context, fromAddr, toAddr sdk.AccAddress, amt sdk.Coins) error
}

// AddressFor derives the account a named strategy keeps its capital in
func AddressFor(name string) sdk.AccAddress {
	return authtypes.NewModuleAddress(types.ModuleName + "/strategy/" + name)
}

// base carries what both adapters share
type base struct {
	name  string
	denom string
	vault sdk.AccAddress
	addr  sdk.AccAddress
	bank  BankKeeper
}

func newBase(name, denom string, vault sdk.AccAddress, bank BankKeeper) base {
	return base{
		name:  name,
		denom: denom,
		vault: vault,
		addr:  AddressFor(name),
		bank:  bank,
	}
}

func (b base) Name() string            { return b.name }
func (b base) Vault() sdk.AccAddress   { return b.vault }
func (b base) Address() sdk.AccAddress { return b.addr }

func (b base) balance(ctx sdk.Context) math.Int {
	return b.bank.GetBalance(ctx, b.addr, b.denom).Amount
}

func (b base) send(ctx sdk.Context, to sdk.AccAddress, amount math.Int) error {
	if !amount.IsPositive() {
		return nil
	}
	return b.bank.SendCoins(ctx, b.addr, to, sdk.NewCoins(sdk.NewCoin(b.denom, amount)))
}

// InvestedValue is the balance of the strategy account
func (b base) InvestedValue(ctx sdk.Context) math.Int {
	return b.balance(ctx)
}

// Invest accepts coins already moved to the strategy account
func (b base) Invest(ctx sdk.Context, amount math.Int) (math.Int, error) {
	if amount.IsNegative() {
		return math.ZeroInt(), types.ErrInvalidAmount
	}
	return amount, nil
}

// Config describes one strategy to build
type Config struct {
	Name         string `yaml:"name" json:"name"`
	Kind         string `yaml:"kind" json:"kind"`
	UnwindFeePct uint32 `yaml:"unwind_fee_pct" json:"unwind_fee_pct"`
	LiquidPct    uint32 `yaml:"liquid_pct" json:"liquid_pct"`
	FeeCollector string `yaml:"fee_collector" json:"fee_collector"`
}

// New builds the strategy described by cfg for the vault at vault
func New(cfg Config, denom string, vault sdk.AccAddress, bank BankKeeper, storeKey storetypes.StoreKey) (types.Strategy, error) {
	if err := types.ValidatePct(cfg.UnwindFeePct); err != nil {
		return nil, err
	}
	if err := types.ValidatePct(cfg.LiquidPct); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case KindSynchronous, "":
		var collector sdk.AccAddress
		if cfg.FeeCollector != "" {
			addr, err := sdk.AccAddressFromBech32(cfg.FeeCollector)
			if err != nil {
				return nil, types.ErrInvalidAddress.Wrapf("fee collector: %s", err)
			}
			collector = addr
		}
		return NewSynchronous(cfg.Name, denom, vault, bank, cfg.UnwindFeePct, collector), nil
	case KindAsynchronous:
		return NewAsynchronous(cfg.Name, denom, vault, bank, storeKey, cfg.LiquidPct), nil
	}
	return nil, types.ErrUnknownStrategy.Wrapf("kind %q", cfg.Kind)
}
