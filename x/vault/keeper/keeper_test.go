package keeper

import (
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/yield-vault/x/vault/testutil"
	"github.com/openalpha/yield-vault/x/vault/types"
)

var testTime = time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)

// pastLock is comfortably longer than the default minimum lock
const pastLock = 15 * 24 * time.Hour

type fixture struct {
	ctx      sdk.Context
	keeper   *Keeper
	bank     *testutil.Bank
	admin    string
	treasury string
}

func testAddr(name string) sdk.AccAddress {
	bz := make([]byte, 20)
	copy(bz, name)
	return sdk.AccAddress(bz)
}

func setupKeeper(t *testing.T) *fixture {
	t.Helper()

	ctx, _ := testutil.NewContext(testTime, testutil.VaultStoreKey, testutil.StrategyStoreKey, testutil.BankStoreKey)
	bank := testutil.NewBank(testutil.BankStoreKey)
	cdc := codec.NewProtoCodec(codectypes.NewInterfaceRegistry())

	admin := testAddr("admin").String()
	k := NewKeeper(cdc, testutil.VaultStoreKey, bank, admin, log.NewNopLogger())

	params := types.DefaultParams()
	params.Treasury = testAddr("treasury").String()
	require.NoError(t, k.InitGenesis(ctx, params))

	return &fixture{
		ctx:      ctx,
		keeper:   k,
		bank:     bank,
		admin:    admin,
		treasury: params.Treasury,
	}
}

func coins(amount int64) sdk.Coins {
	return sdk.NewCoins(sdk.NewInt64Coin(types.DefaultDenom, amount))
}

func (f *fixture) fund(t *testing.T, addr sdk.AccAddress, amount int64) {
	t.Helper()
	require.NoError(t, f.bank.MintCoins(f.ctx, addr, coins(amount)))
}

func (f *fixture) burn(t *testing.T, addr sdk.AccAddress, amount int64) {
	t.Helper()
	require.NoError(t, f.bank.BurnCoins(f.ctx, addr, coins(amount)))
}

func (f *fixture) balance(addr sdk.AccAddress) math.Int {
	return f.bank.GetBalance(f.ctx, addr, types.DefaultDenom).Amount
}

func (f *fixture) advance(d time.Duration) {
	f.ctx = f.ctx.WithBlockTime(f.ctx.BlockTime().Add(d))
}

func claim(addr sdk.AccAddress, pct uint32) types.ClaimSplit {
	return types.ClaimSplit{Beneficiary: addr.String(), Pct: pct}
}

// deposit funds owner and deposits amount for claims
func (f *fixture) deposit(t *testing.T, owner sdk.AccAddress, amount int64, claims ...types.ClaimSplit) []*types.Deposit {
	t.Helper()
	f.fund(t, owner, amount)
	created, err := f.keeper.Deposit(f.ctx, owner.String(), types.DepositRequest{
		Amount: math.NewInt(amount),
		Claims: claims,
	})
	require.NoError(t, err)
	return created
}

func findEvent(ctx sdk.Context, eventType string) (sdk.Event, bool) {
	for _, ev := range ctx.EventManager().Events() {
		if ev.Type == eventType {
			return ev, true
		}
	}
	return sdk.Event{}, false
}

func attribute(ev sdk.Event, key string) string {
	for _, attr := range ev.Attributes {
		if attr.Key == key {
			return attr.Value
		}
	}
	return ""
}

func shares(n int64) math.Int {
	return math.NewInt(n).Mul(types.SharesMultiplier)
}

func TestDepositSplitsAcrossClaims(t *testing.T) {
	f := setupKeeper(t)
	alice, bob := testAddr("alice"), testAddr("bob")

	created := f.deposit(t, alice, 11, claim(alice, 5000), claim(bob, 5000))
	require.Len(t, created, 2)

	require.Equal(t, math.NewInt(5), created[0].Amount)
	require.Equal(t, math.NewInt(6), created[1].Amount)
	require.Equal(t, shares(5), created[0].Shares)
	require.Equal(t, shares(6), created[1].Shares)
	require.Equal(t, created[0].GroupID, created[1].GroupID)
	require.Equal(t, testTime.Add(types.DefaultMinLockPeriod).Unix(), created[0].LockedUntil)

	pool := f.keeper.GetPoolState(f.ctx)
	require.Equal(t, shares(11), pool.TotalShares)
	require.Equal(t, math.NewInt(11), pool.TotalPrincipal)
	require.Equal(t, math.NewInt(11), f.keeper.LocalBalance(f.ctx))
	require.True(t, f.balance(alice).IsZero())

	bobLedger := f.keeper.GetClaimer(f.ctx, bob.String())
	require.NotNil(t, bobLedger)
	require.Equal(t, []uint64{created[1].DepositID}, bobLedger.DepositIDs)
	require.Equal(t, math.NewInt(6), bobLedger.TotalPrincipal)

	ev, ok := findEvent(f.ctx, types.EventTypeDepositCreated)
	require.True(t, ok)
	require.Equal(t, alice.String(), attribute(ev, types.AttributeKeyDepositor))

	require.NoError(t, f.keeper.CheckInvariants(f.ctx))
}

func TestDepositPricesAgainstPoolBeforeCall(t *testing.T) {
	f := setupKeeper(t)
	alice, bob := testAddr("alice"), testAddr("bob")

	f.deposit(t, alice, 100, claim(alice, 10000))
	f.fund(t, types.ModuleAddress(), 100)

	created := f.deposit(t, bob, 100, claim(bob, 5000), claim(alice, 5000))
	// price is 2 per share for both halves
	require.Equal(t, shares(25), created[0].Shares)
	require.Equal(t, shares(25), created[1].Shares)
	require.NoError(t, f.keeper.CheckInvariants(f.ctx))
}

func TestDepositValidation(t *testing.T) {
	alice, bob := testAddr("alice"), testAddr("bob")

	tests := []struct {
		name string
		req  types.DepositRequest
		err  error
	}{
		{
			name: "zero amount",
			req:  types.DepositRequest{Amount: math.ZeroInt(), Claims: []types.ClaimSplit{claim(alice, 10000)}},
			err:  types.ErrCannotDeposit0,
		},
		{
			name: "claims under 100%",
			req:  types.DepositRequest{Amount: math.NewInt(10), Claims: []types.ClaimSplit{claim(alice, 4000), claim(bob, 5000)}},
			err:  types.ErrClaimsDontAddUp,
		},
		{
			name: "zero percent claim",
			req:  types.DepositRequest{Amount: math.NewInt(10), Claims: []types.ClaimSplit{claim(alice, 10000), claim(bob, 0)}},
			err:  types.ErrClaimPercentageCannotBe0,
		},
		{
			name: "lock below minimum",
			req:  types.DepositRequest{Amount: math.NewInt(10), Claims: []types.ClaimSplit{claim(alice, 10000)}, LockDuration: time.Hour},
			err:  types.ErrInvalidLockPeriod,
		},
		{
			name: "lock above maximum",
			req:  types.DepositRequest{Amount: math.NewInt(10), Claims: []types.ClaimSplit{claim(alice, 10000)}, LockDuration: types.MaxLockDuration + time.Second},
			err:  types.ErrInvalidLockPeriod,
		},
		{
			name: "name too short",
			req:  types.DepositRequest{Amount: math.NewInt(10), Claims: []types.ClaimSplit{claim(alice, 10000)}, Name: "ab"},
			err:  types.ErrNameTooShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupKeeper(t)
			f.fund(t, alice, 100)

			_, err := f.keeper.Deposit(f.ctx, alice.String(), tt.req)
			require.ErrorIs(t, err, tt.err)
			require.Equal(t, math.NewInt(100), f.balance(alice))
			require.True(t, f.keeper.GetPoolState(f.ctx).TotalShares.IsZero())
		})
	}
}

func TestDepositSkipsClaimsThatRoundToZero(t *testing.T) {
	f := setupKeeper(t)
	alice, bob := testAddr("alice"), testAddr("bob")

	created := f.deposit(t, alice, 1, claim(alice, 5000), claim(bob, 5000))
	require.Len(t, created, 1)
	require.Equal(t, bob.String(), created[0].Claimer)
	require.Equal(t, math.NewInt(1), created[0].Amount)
	require.Equal(t, uint64(1), created[0].DepositID)
	require.Nil(t, f.keeper.GetClaimer(f.ctx, alice.String()))

	pool := f.keeper.GetPoolState(f.ctx)
	require.Equal(t, math.NewInt(1), pool.TotalPrincipal)
	require.Equal(t, shares(1), pool.TotalShares)
	require.NoError(t, f.keeper.CheckInvariants(f.ctx))
}

func TestDepositRollsBackOnFailure(t *testing.T) {
	f := setupKeeper(t)
	alice := testAddr("alice")
	f.fund(t, alice, 5)

	_, err := f.keeper.Deposit(f.ctx, alice.String(), types.DepositRequest{
		Amount: math.NewInt(10),
		Claims: []types.ClaimSplit{claim(alice, 10000)},
	})
	require.ErrorIs(t, err, sdkerrors.ErrInsufficientFunds)

	pool := f.keeper.GetPoolState(f.ctx)
	require.Equal(t, uint64(1), pool.NextGroupID)
	require.Equal(t, uint64(1), pool.NextDepositID)
	require.Nil(t, f.keeper.GetGroup(f.ctx, 1))
	require.Nil(t, f.keeper.GetClaimer(f.ctx, alice.String()))
	require.Equal(t, math.NewInt(5), f.balance(alice))
}

func TestDepositForGroup(t *testing.T) {
	f := setupKeeper(t)
	alice, bob := testAddr("alice"), testAddr("bob")

	first := f.deposit(t, alice, 100, claim(alice, 10000))
	groupID := first[0].GroupID

	f.fund(t, alice, 50)
	topUp, err := f.keeper.Deposit(f.ctx, alice.String(), types.DepositRequest{
		Amount:  math.NewInt(50),
		Claims:  []types.ClaimSplit{claim(bob, 10000)},
		GroupID: groupID,
	})
	require.NoError(t, err)
	require.Equal(t, groupID, topUp[0].GroupID)

	f.fund(t, bob, 50)
	_, err = f.keeper.Deposit(f.ctx, bob.String(), types.DepositRequest{
		Amount:  math.NewInt(50),
		Claims:  []types.ClaimSplit{claim(bob, 10000)},
		GroupID: groupID,
	})
	require.ErrorIs(t, err, types.ErrSenderNotOwnerOfGroup)

	_, err = f.keeper.Deposit(f.ctx, bob.String(), types.DepositRequest{
		Amount:  math.NewInt(50),
		Claims:  []types.ClaimSplit{claim(bob, 10000)},
		GroupID: 99,
	})
	require.ErrorIs(t, err, types.ErrSenderNotOwnerOfGroup)

	_, groupDeposits, err := NewQueryServerImpl(f.keeper).Group(f.ctx, groupID)
	require.NoError(t, err)
	require.Len(t, groupDeposits, 2)
}

func TestDepositRejectedWhileAtLoss(t *testing.T) {
	f := setupKeeper(t)
	alice, bob := testAddr("alice"), testAddr("bob")

	f.deposit(t, alice, 100, claim(alice, 10000))
	f.burn(t, types.ModuleAddress(), 1)

	f.fund(t, bob, 100)
	_, err := f.keeper.Deposit(f.ctx, bob.String(), types.DepositRequest{
		Amount: math.NewInt(100),
		Claims: []types.ClaimSplit{claim(bob, 10000)},
	})
	require.ErrorIs(t, err, types.ErrCannotDepositWhenYieldNegative)
}

func TestDepositRejectedForClaimerInDebt(t *testing.T) {
	f := setupKeeper(t)
	alice, bob, carol := testAddr("alice"), testAddr("bob"), testAddr("carol")

	// a 2% unwind fee lets deposits through a loss of up to 2%
	alpha := registerSync(t, f, "alpha", 200)
	f.deposit(t, alice, 1000, claim(alice, 10000))
	f.burn(t, alpha.Address(), 10)

	f.fund(t, carol, 200)
	_, err := f.keeper.Deposit(f.ctx, carol.String(), types.DepositRequest{
		Amount: math.NewInt(100),
		Claims: []types.ClaimSplit{claim(alice, 10000)},
	})
	require.ErrorIs(t, err, types.ErrCannotDepositWhenClaimerInDebt)

	created, err := f.keeper.Deposit(f.ctx, carol.String(), types.DepositRequest{
		Amount: math.NewInt(100),
		Claims: []types.ClaimSplit{claim(bob, 10000)},
	})
	require.NoError(t, err)
	// 100 * 1000e18 / 990
	require.Equal(t, "101010101010101010101", created[0].Shares.String())
	require.NoError(t, f.keeper.CheckInvariants(f.ctx))
}

func TestSponsorRequiresRole(t *testing.T) {
	f := setupKeeper(t)
	sponsor := testAddr("sponsor")
	f.fund(t, sponsor, 50)

	_, err := f.keeper.Sponsor(f.ctx, sponsor.String(), math.NewInt(50), 0)
	require.ErrorIs(t, err, types.ErrUnauthorized)

	require.NoError(t, f.keeper.SetRole(f.ctx, f.admin, sponsor.String(), types.RoleSponsor, true))
	record, err := f.keeper.Sponsor(f.ctx, sponsor.String(), math.NewInt(50), 0)
	require.NoError(t, err)
	require.True(t, record.IsSponsor)
	require.True(t, record.Shares.IsZero())
	require.Equal(t, math.NewInt(50), f.keeper.GetPoolState(f.ctx).TotalSponsored)
	require.NoError(t, f.keeper.CheckInvariants(f.ctx))
}
