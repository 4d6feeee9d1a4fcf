package keeper

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/yield-vault/x/vault/types"
)

func TestMsgServerRoundTrip(t *testing.T) {
	f := setupKeeper(t)
	srv := NewMsgServerImpl(f.keeper)
	alice, bob := testAddr("alice"), testAddr("bob")
	f.fund(t, alice, 200)

	resp, err := srv.Deposit(f.ctx, &types.MsgDeposit{
		Depositor: alice.String(),
		Amount:    "100",
		Claims:    []types.ClaimSplit{claim(alice, 10000)},
		Name:      "savings",
	})
	require.NoError(t, err)
	require.Len(t, resp.DepositIDs, 1)
	require.Equal(t, shares(100).String(), resp.Shares[0])

	_, err = srv.DepositForGroup(f.ctx, &types.MsgDepositForGroup{
		MsgDeposit: types.MsgDeposit{
			Depositor: alice.String(),
			Amount:    "100",
			Claims:    []types.ClaimSplit{claim(bob, 10000)},
		},
		GroupID: resp.GroupID,
	})
	require.NoError(t, err)

	_, err = srv.Deposit(f.ctx, &types.MsgDeposit{
		Depositor: alice.String(),
		Amount:    "abc",
		Claims:    []types.ClaimSplit{claim(alice, 10000)},
	})
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	f.fund(t, types.ModuleAddress(), 200)
	claimed, err := srv.ClaimYield(f.ctx, &types.MsgClaimYield{Claimer: bob.String(), Destination: bob.String()})
	require.NoError(t, err)
	require.Equal(t, "98", claimed.ClaimableYield)

	f.advance(pastLock)
	withdrawn, err := srv.Withdraw(f.ctx, &types.MsgWithdraw{
		Owner:       alice.String(),
		Destination: alice.String(),
		DepositIDs:  resp.DepositIDs,
		Amounts:     []string{"30"},
		Mode:        types.WithdrawModePartial,
	})
	require.NoError(t, err)
	require.Equal(t, "30", withdrawn.AmountPaid)

	action, err := srv.KeeperAction(f.ctx, &types.MsgKeeperAction{Keeper: f.admin, Action: types.KeeperActionWithdrawPerformanceFees})
	require.NoError(t, err)
	require.Equal(t, "2", action.Amount)

	_, err = srv.KeeperAction(f.ctx, &types.MsgKeeperAction{Keeper: f.admin, Action: "rebalance_everything"})
	require.ErrorIs(t, err, types.ErrInvalidParams)

	require.Equal(t, math.NewInt(30), f.balance(alice))
	require.NoError(t, f.keeper.CheckInvariants(f.ctx))
}

func TestMsgServerAdmin(t *testing.T) {
	f := setupKeeper(t)
	srv := NewMsgServerImpl(f.keeper)
	settings := testAddr("settings")

	params := types.DefaultParams()
	params.PerfFeePct = 500
	_, err := srv.UpdateParams(f.ctx, &types.MsgUpdateParams{Authority: settings.String(), Params: params})
	require.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = srv.SetRole(f.ctx, &types.MsgSetRole{Authority: f.admin, Account: settings.String(), Role: types.RoleSettings, Grant: true})
	require.NoError(t, err)
	require.True(t, f.keeper.HasRole(f.ctx, types.RoleSettings, settings.String()))

	_, err = srv.UpdateParams(f.ctx, &types.MsgUpdateParams{Authority: settings.String(), Params: params})
	require.NoError(t, err)
	require.Equal(t, uint32(500), f.keeper.GetParams(f.ctx).PerfFeePct)

	ev, ok := findEvent(f.ctx, types.EventTypeTreasuryUpdated)
	require.True(t, ok)
	require.Equal(t, "", attribute(ev, types.AttributeKeyTreasury))

	_, err = srv.SetRole(f.ctx, &types.MsgSetRole{Authority: settings.String(), Account: settings.String(), Role: types.RoleKeeper, Grant: true})
	require.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = srv.SetRole(f.ctx, &types.MsgSetRole{Authority: f.admin, Account: settings.String(), Role: types.RoleSettings, Grant: false})
	require.NoError(t, err)
	require.False(t, f.keeper.HasRole(f.ctx, types.RoleSettings, settings.String()))
}
