package engine

import (
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/yield-vault/x/vault/strategy"
	"github.com/openalpha/yield-vault/x/vault/types"
)

var testTime = time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)

func testAddr(name string) sdk.AccAddress {
	bz := make([]byte, 20)
	copy(bz, name)
	return sdk.AccAddress(bz)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	params := types.DefaultParams()
	params.Treasury = testAddr("treasury").String()

	e, err := newEngine(Config{
		Admin:          testAddr("admin").String(),
		Keepers:        []string{testAddr("bot").String()},
		Params:         params,
		Strategies:     []strategy.Config{{Name: "alpha", Kind: strategy.KindSynchronous}},
		ActiveStrategy: "alpha",
		JournalSize:    100,
	}, log.NewNopLogger(), func() time.Time { return testTime })
	require.NoError(t, err)
	return e
}

func deposit(t *testing.T, e *Engine, owner sdk.AccAddress, amount int64) *types.MsgDepositResponse {
	t.Helper()
	require.NoError(t, e.Faucet(owner, math.NewInt(amount)))

	var resp *types.MsgDepositResponse
	err := e.Exec(func(ctx sdk.Context) error {
		var err error
		resp, err = e.MsgServer().Deposit(ctx, &types.MsgDeposit{
			Depositor: owner.String(),
			Amount:    math.NewInt(amount).String(),
			Claims:    []types.ClaimSplit{{Beneficiary: owner.String(), Pct: types.BasisPoints}},
		})
		return err
	})
	require.NoError(t, err)
	return resp
}

func TestEngineLifecycle(t *testing.T) {
	e := newTestEngine(t)
	alice := testAddr("alice")

	var seen []Entry
	e.Subscribe(func(entries []Entry) { seen = append(seen, entries...) })

	resp := deposit(t, e, alice, 1000)
	require.Equal(t, int64(3), e.Height())

	pool, err := e.Pool()
	require.NoError(t, err)
	require.Equal(t, math.NewInt(1000), pool.Held)
	require.Equal(t, math.NewInt(900), pool.Snapshot.Invested)

	// still locked, and a failed call journals nothing
	latest := e.Journal().Latest()
	err = e.Exec(func(ctx sdk.Context) error {
		_, err := e.MsgServer().Withdraw(ctx, &types.MsgWithdraw{
			Owner:       alice.String(),
			Destination: alice.String(),
			DepositIDs:  resp.DepositIDs,
		})
		return err
	})
	require.ErrorIs(t, err, types.ErrAmountLocked)
	require.Equal(t, latest, e.Journal().Latest())

	require.NoError(t, e.InjectYield(TargetStrategy, math.NewInt(100)))
	err = e.Exec(func(ctx sdk.Context) error {
		_, err := e.MsgServer().ClaimYield(ctx, &types.MsgClaimYield{Claimer: alice.String(), Destination: alice.String()})
		return err
	})
	require.NoError(t, err)
	require.Equal(t, math.NewInt(98), e.Balance(alice))

	require.NoError(t, e.Advance(15*24*time.Hour))
	require.True(t, e.BlockTime().After(testTime.Add(14*24*time.Hour)))

	err = e.Exec(func(ctx sdk.Context) error {
		_, err := e.MsgServer().Withdraw(ctx, &types.MsgWithdraw{
			Owner:       alice.String(),
			Destination: alice.String(),
			DepositIDs:  resp.DepositIDs,
		})
		return err
	})
	require.NoError(t, err)
	require.Equal(t, math.NewInt(1098), e.Balance(alice))

	var eventTypes []string
	for _, entry := range seen {
		eventTypes = append(eventTypes, entry.Type)
	}
	require.Contains(t, eventTypes, EventTypeSimFaucet)
	require.Contains(t, eventTypes, types.EventTypeDepositCreated)
	require.Contains(t, eventTypes, EventTypeSimYield)
	require.Contains(t, eventTypes, types.EventTypeYieldClaimed)
	require.Contains(t, eventTypes, EventTypeSimAdvance)
	require.Contains(t, eventTypes, types.EventTypeDepositWithdrawn)
	require.Equal(t, seen, e.Journal().Since(0, 0))
}

func TestEngineSimulationErrors(t *testing.T) {
	e := newTestEngine(t)

	require.ErrorIs(t, e.InjectYield(TargetVault, math.ZeroInt()), types.ErrInvalidAmount)
	require.Error(t, e.InjectYield("moon", math.NewInt(1)))
	require.Error(t, e.InjectLoss(TargetVault, math.NewInt(1)))
	require.Error(t, e.Advance(0))

	require.NoError(t, e.InjectYield(TargetVault, math.NewInt(5)))
	require.NoError(t, e.InjectLoss(TargetVault, math.NewInt(5)))
	require.True(t, e.Balance(types.ModuleAddress()).IsZero())
}

func TestEngineRejectsBadConfig(t *testing.T) {
	_, err := newEngine(Config{Admin: "nope", Params: types.DefaultParams()}, log.NewNopLogger(), time.Now)
	require.ErrorIs(t, err, types.ErrInvalidAddress)

	_, err = newEngine(Config{
		Admin:          testAddr("admin").String(),
		Params:         types.DefaultParams(),
		ActiveStrategy: "missing",
	}, log.NewNopLogger(), time.Now)
	require.ErrorIs(t, err, types.ErrUnknownStrategy)
}
