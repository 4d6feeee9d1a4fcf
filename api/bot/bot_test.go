package bot

import (
	"testing"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/yield-vault/api/engine"
	"github.com/openalpha/yield-vault/x/vault/strategy"
	"github.com/openalpha/yield-vault/x/vault/types"
)

func testAddr(name string) sdk.AccAddress {
	bz := make([]byte, 20)
	copy(bz, name)
	return sdk.AccAddress(bz)
}

func setup(t *testing.T) (*engine.Engine, *Bot) {
	t.Helper()
	params := types.DefaultParams()
	params.Treasury = testAddr("treasury").String()

	e, err := engine.New(engine.Config{
		Admin:          testAddr("admin").String(),
		Keepers:        []string{testAddr("bot").String()},
		Params:         params,
		Strategies:     []strategy.Config{{Name: "alpha", Kind: strategy.KindSynchronous}},
		ActiveStrategy: "alpha",
	}, log.NewNopLogger())
	require.NoError(t, err)

	alice := testAddr("alice")
	require.NoError(t, e.Faucet(alice, math.NewInt(1000)))
	require.NoError(t, e.Exec(func(ctx sdk.Context) error {
		_, err := e.MsgServer().Deposit(ctx, &types.MsgDeposit{
			Depositor: alice.String(),
			Amount:    "1000",
			Claims:    []types.ClaimSplit{{Beneficiary: alice.String(), Pct: types.BasisPoints}},
		})
		return err
	}))

	return e, New(e, testAddr("bot").String(), nil, log.NewNopLogger())
}

func TestRunActionSkipsIdleWork(t *testing.T) {
	_, b := setup(t)

	for _, action := range []string{
		types.KeeperActionUpdateInvested,
		types.KeeperActionWithdrawPerformanceFees,
		types.KeeperActionSettleStrategy,
	} {
		t.Run(action, func(t *testing.T) {
			require.NoError(t, b.RunAction(action))
		})
	}
}

func TestRunActionSweepsFees(t *testing.T) {
	e, b := setup(t)
	alice := testAddr("alice")

	require.NoError(t, e.InjectYield(engine.TargetStrategy, math.NewInt(100)))
	require.NoError(t, e.Exec(func(ctx sdk.Context) error {
		_, err := e.MsgServer().ClaimYield(ctx, &types.MsgClaimYield{Claimer: alice.String(), Destination: alice.String()})
		return err
	}))

	require.NoError(t, b.RunAction(types.KeeperActionWithdrawPerformanceFees))
	require.Equal(t, math.NewInt(2), e.Balance(testAddr("treasury")))

	pool, err := e.Pool()
	require.NoError(t, err)
	require.True(t, pool.AccumulatedPerfFee.IsZero())
}

func TestRunActionRequiresKeeperRole(t *testing.T) {
	e, _ := setup(t)
	intruder := New(e, testAddr("mallory").String(), nil, log.NewNopLogger())

	err := intruder.RunAction(types.KeeperActionUpdateInvested)
	require.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestRegister(t *testing.T) {
	_, b := setup(t)

	require.Error(t, b.Register(Schedule{UpdateInvested: "not a cron spec"}))

	_, b = setup(t)
	require.NoError(t, b.Register(Schedule{UpdateInvested: "*/5 * * * * *"}))
	require.Len(t, b.cron.Entries(), 1)

	require.NoError(t, b.Register(DefaultSchedule()))
	require.Len(t, b.cron.Entries(), 4)

	b.Start()
	b.Stop()
}
