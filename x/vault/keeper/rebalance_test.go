package keeper

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/yield-vault/x/vault/strategy"
	"github.com/openalpha/yield-vault/x/vault/testutil"
	"github.com/openalpha/yield-vault/x/vault/types"
)

// registerSync registers a synchronous strategy and points the vault at it
func registerSync(t *testing.T, f *fixture, name string, unwindFeePct uint32) *strategy.Synchronous {
	t.Helper()
	s := strategy.NewSynchronous(name, types.DefaultDenom, types.ModuleAddress(), f.bank, unwindFeePct, nil)
	f.keeper.RegisterStrategy(s)
	require.NoError(t, f.keeper.SetStrategy(f.ctx, f.admin, name))
	return s
}

func registerAsync(t *testing.T, f *fixture, name string, liquidPct uint32) *strategy.Asynchronous {
	t.Helper()
	s := strategy.NewAsynchronous(name, types.DefaultDenom, types.ModuleAddress(), f.bank, testutil.StrategyStoreKey, liquidPct)
	f.keeper.RegisterStrategy(s)
	require.NoError(t, f.keeper.SetStrategy(f.ctx, f.admin, name))
	return s
}

func TestInvestTarget(t *testing.T) {
	params := types.DefaultParams()

	tests := []struct {
		name        string
		held        int64
		invested    int64
		expectedMax int64
		expectedD   int64
	}{
		{"empty", 0, 0, 0, 0},
		{"under invested", 1000, 0, 900, 900},
		{"on target", 1000, 900, 900, 0},
		{"over invested", 1000, 950, 900, -50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maxInvestable, delta := investTarget(params, math.NewInt(tt.held), math.NewInt(tt.invested))
			if maxInvestable.Int64() != tt.expectedMax {
				t.Errorf("max investable = %s, expected %d", maxInvestable, tt.expectedMax)
			}
			if delta.Int64() != tt.expectedD {
				t.Errorf("delta = %s, expected %d", delta, tt.expectedD)
			}
		})
	}
}

func TestDepositInvestsImmediately(t *testing.T) {
	f := setupKeeper(t)
	alice := testAddr("alice")
	alpha := registerSync(t, f, "alpha", 0)

	f.deposit(t, alice, 1000, claim(alice, 10000))
	require.Equal(t, math.NewInt(100), f.keeper.LocalBalance(f.ctx))
	require.Equal(t, math.NewInt(900), alpha.InvestedValue(f.ctx))

	// already above the immediate invest limit, the next deposit stays local
	f.deposit(t, alice, 100, claim(alice, 10000))
	require.Equal(t, math.NewInt(200), f.keeper.LocalBalance(f.ctx))
	require.Equal(t, math.NewInt(900), alpha.InvestedValue(f.ctx))
	require.NoError(t, f.keeper.CheckInvariants(f.ctx))
}

func TestUpdateInvested(t *testing.T) {
	f := setupKeeper(t)
	alice, bot := testAddr("alice"), testAddr("bot")

	_, err := f.keeper.UpdateInvested(f.ctx, f.admin)
	require.ErrorIs(t, err, types.ErrStrategyNotSet)

	alpha := registerSync(t, f, "alpha", 0)
	f.deposit(t, alice, 1000, claim(alice, 10000))

	_, err = f.keeper.UpdateInvested(f.ctx, bot.String())
	require.ErrorIs(t, err, types.ErrUnauthorized)
	require.NoError(t, f.keeper.SetRole(f.ctx, f.admin, bot.String(), types.RoleKeeper, true))

	_, err = f.keeper.UpdateInvested(f.ctx, bot.String())
	require.ErrorIs(t, err, types.ErrNothingToDo)

	// strategy earns 100, target moves to 990 of 1100
	f.fund(t, alpha.Address(), 100)
	moved, err := f.keeper.UpdateInvested(f.ctx, bot.String())
	require.NoError(t, err)
	require.Equal(t, math.NewInt(10), moved)
	require.Equal(t, math.NewInt(990), alpha.InvestedValue(f.ctx))
	require.Equal(t, math.NewInt(110), f.keeper.LocalBalance(f.ctx))

	ev, ok := findEvent(f.ctx, types.EventTypeDisinvested)
	require.True(t, ok)
	require.Equal(t, "10", attribute(ev, types.AttributeKeyAmount))

	f.fund(t, types.ModuleAddress(), 5)
	_, err = f.keeper.UpdateInvested(f.ctx, bot.String())
	require.ErrorIs(t, err, types.ErrNotEnoughToRebalance)
}

func TestWithdrawDisinvestsShortfall(t *testing.T) {
	f := setupKeeper(t)
	alice := testAddr("alice")
	alpha := registerSync(t, f, "alpha", 0)
	created := f.deposit(t, alice, 1000, claim(alice, 10000))
	f.advance(pastLock)

	result, err := f.keeper.Withdraw(f.ctx, alice.String(), alice.String(), []uint64{created[0].DepositID}, nil, types.WithdrawModeNormal)
	require.NoError(t, err)
	require.Equal(t, math.NewInt(1000), result.AmountPaid)
	require.True(t, alpha.InvestedValue(f.ctx).IsZero())
	require.Equal(t, math.NewInt(1000), f.balance(alice))
}

func TestWithdrawGrossesUpUnwindFee(t *testing.T) {
	f := setupKeeper(t)
	alice := testAddr("alice")
	alpha := registerSync(t, f, "alpha", 100)
	created := f.deposit(t, alice, 1000, claim(alice, 10000))
	f.advance(pastLock)

	// 400 short, 405 is requested so 401 arrives after the 1% fee
	result, err := f.keeper.Withdraw(f.ctx, alice.String(), alice.String(), []uint64{created[0].DepositID}, []math.Int{math.NewInt(500)}, types.WithdrawModePartial)
	require.NoError(t, err)
	require.Equal(t, math.NewInt(500), result.AmountPaid)
	require.Equal(t, math.NewInt(495), alpha.InvestedValue(f.ctx))
	require.Equal(t, math.NewInt(1), f.keeper.LocalBalance(f.ctx))
	require.Equal(t, math.NewInt(4), f.balance(strategy.AddressFor("alpha/fees")))
}

func TestAsynchronousSettlement(t *testing.T) {
	f := setupKeeper(t)
	alice := testAddr("alice")
	beta := registerAsync(t, f, "beta", 5000)
	f.deposit(t, alice, 1000, claim(alice, 10000))
	require.Equal(t, math.NewInt(900), beta.InvestedValue(f.ctx))

	_, err := f.keeper.SettleStrategy(f.ctx, f.admin)
	require.ErrorIs(t, err, types.ErrNothingToDo)

	params := f.keeper.GetParams(f.ctx)
	params.InvestPct = 0
	require.NoError(t, f.keeper.UpdateParams(f.ctx, f.admin, params))

	// half the buffer arrives now, the rest is queued
	moved, err := f.keeper.UpdateInvested(f.ctx, f.admin)
	require.NoError(t, err)
	require.Equal(t, math.NewInt(450), moved)
	require.Equal(t, math.NewInt(450), f.keeper.PendingSettlement(f.ctx))

	info, err := NewQueryServerImpl(f.keeper).Pool(f.ctx)
	require.NoError(t, err)
	require.Equal(t, math.NewInt(1000), info.Held)
	require.Equal(t, math.NewInt(450), info.PendingSettlement)

	settled, err := f.keeper.SettleStrategy(f.ctx, f.admin)
	require.NoError(t, err)
	require.Equal(t, math.NewInt(450), settled)
	require.Equal(t, math.NewInt(1000), f.keeper.LocalBalance(f.ctx))
	require.True(t, f.keeper.PendingSettlement(f.ctx).IsZero())
	require.False(t, beta.HasOutstandingAssets(f.ctx))
}

func TestSetStrategy(t *testing.T) {
	f := setupKeeper(t)
	alice := testAddr("alice")

	require.ErrorIs(t, f.keeper.SetStrategy(f.ctx, f.admin, "missing"), types.ErrUnknownStrategy)

	stranger := strategy.NewSynchronous("stranger", types.DefaultDenom, testAddr("other"), f.bank, 0, nil)
	f.keeper.RegisterStrategy(stranger)
	require.ErrorIs(t, f.keeper.SetStrategy(f.ctx, f.admin, "stranger"), types.ErrStrategyNotTheVault)

	registerSync(t, f, "alpha", 0)
	f.keeper.RegisterStrategy(strategy.NewSynchronous("gamma", types.DefaultDenom, types.ModuleAddress(), f.bank, 0, nil))
	require.ErrorIs(t, f.keeper.SetStrategy(f.ctx, alice.String(), "gamma"), types.ErrUnauthorized)

	f.deposit(t, alice, 1000, claim(alice, 10000))
	require.ErrorIs(t, f.keeper.SetStrategy(f.ctx, f.admin, "gamma"), types.ErrStrategyHasLockedAssets)

	params := f.keeper.GetParams(f.ctx)
	params.InvestPct = 0
	require.NoError(t, f.keeper.UpdateParams(f.ctx, f.admin, params))
	_, err := f.keeper.UpdateInvested(f.ctx, f.admin)
	require.NoError(t, err)

	require.NoError(t, f.keeper.SetStrategy(f.ctx, f.admin, "gamma"))
	require.Equal(t, "gamma", f.keeper.GetPoolState(f.ctx).StrategyRef)
}
