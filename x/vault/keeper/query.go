package keeper

import (
	"context"

	"cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/yield-vault/x/vault/types"
)

// QueryServer defines the vault QueryServer
type QueryServer struct {
	keeper *Keeper
}

// NewQueryServerImpl creates a new QueryServer instance
func NewQueryServerImpl(keeper *Keeper) *QueryServer {
	return &QueryServer{keeper: keeper}
}

// Params returns the current params
func (q *QueryServer) Params(ctx context.Context) (types.Params, error) {
	return q.keeper.GetParams(sdk.UnwrapSDKContext(ctx)), nil
}

// Pool returns the pool aggregate priced at the current block
func (q *QueryServer) Pool(ctx context.Context) (*types.PoolInfo, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	pool := q.keeper.GetPoolState(sdkCtx)
	strategy, err := q.keeper.GetStrategy(sdkCtx)
	if err != nil {
		return nil, err
	}
	snap := q.keeper.snapshot(sdkCtx, pool, strategy)

	return &types.PoolInfo{
		PoolState:                *pool,
		Snapshot:                 snap,
		Held:                     snap.Held(),
		UnderlyingMinusSponsored: snap.UnderlyingMinusSponsored(),
		SponsorValue:             snap.SponsorValue(),
		PricePerShare:            snap.PricePerShare(),
		IsAtLoss:                 snap.IsAtLoss(),
		PendingSettlement:        q.keeper.PendingSettlement(sdkCtx),
	}, nil
}

// Deposit returns a deposit by id
func (q *QueryServer) Deposit(ctx context.Context, id uint64) (*types.Deposit, error) {
	deposit := q.keeper.GetDeposit(sdk.UnwrapSDKContext(ctx), id)
	if deposit == nil {
		return nil, errors.Wrapf(types.ErrDepositNotFound, "%d", id)
	}
	return deposit, nil
}

// DepositsByOwner returns the deposits and sponsorships an account owns
func (q *QueryServer) DepositsByOwner(ctx context.Context, owner string) ([]*types.Deposit, error) {
	return q.keeper.GetOwnerDeposits(sdk.UnwrapSDKContext(ctx), owner), nil
}

// DepositsByClaimer returns the deposits whose yield goes to claimer
func (q *QueryServer) DepositsByClaimer(ctx context.Context, address string) ([]*types.Deposit, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	claimer := q.keeper.GetClaimer(sdkCtx, address)
	if claimer == nil {
		return []*types.Deposit{}, nil
	}
	return q.keeper.GetClaimerDeposits(sdkCtx, claimer)
}

// Claimer returns a claimer ledger entry
func (q *QueryServer) Claimer(ctx context.Context, address string) (*types.Claimer, error) {
	claimer := q.keeper.GetClaimer(sdk.UnwrapSDKContext(ctx), address)
	if claimer == nil {
		return nil, errors.Wrapf(types.ErrClaimerNotFound, "%s", address)
	}
	return claimer, nil
}

// YieldFor previews a claim without making it
func (q *QueryServer) YieldFor(ctx context.Context, address string) (types.YieldInfo, error) {
	return q.keeper.YieldFor(sdk.UnwrapSDKContext(ctx), address)
}

// Group returns a deposit group and the deposits in it
func (q *QueryServer) Group(ctx context.Context, id uint64) (*types.Group, []*types.Deposit, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	group := q.keeper.GetGroup(sdkCtx, id)
	if group == nil {
		return nil, nil, errors.Wrapf(types.ErrGroupNotFound, "%d", id)
	}

	var deposits []*types.Deposit
	for _, d := range q.keeper.GetOwnerDeposits(sdkCtx, group.Owner) {
		if d.GroupID == id {
			deposits = append(deposits, d)
		}
	}
	return group, deposits, nil
}
