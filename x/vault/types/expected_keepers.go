package types

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// BankKeeper defines the expected interface for the bank module
type BankKeeper interface {
	GetBalance(ctx context.Context, addr sdk.AccAddress, denom string) sdk.Coin
	SendCoins(ctx context.Context, fromAddr, toAddr sdk.AccAddress, amt sdk.Coins) error
}

// Strategy is the capability the vault delegates invested capital to.
// Coins are moved to Address before Invest is called; WithdrawToVault moves
// coins back to the vault itself and reports what it actually sent.
type Strategy interface {
	// Name is the registry key stored in PoolState.StrategyRef
	Name() string
	// Vault is the account the strategy pays out to
	Vault() sdk.AccAddress
	// Address holds the coins under management
	Address() sdk.AccAddress

	InvestedValue(ctx sdk.Context) math.Int
	Invest(ctx sdk.Context, amount math.Int) (math.Int, error)
	WithdrawToVault(ctx sdk.Context, amount math.Int) (math.Int, error)
	HasOutstandingAssets(ctx sdk.Context) bool
	IsSynchronous() bool

	// MaxUnwindFeePct is the worst-case exit cost in basis points. Deposits
	// are accepted while the pool loss stays within it.
	MaxUnwindFeePct() uint32
}

// Settler is implemented by asynchronous strategies that queue withdrawals
type Settler interface {
	Settle(ctx sdk.Context) (math.Int, error)
	Pending(ctx sdk.Context) math.Int
}
