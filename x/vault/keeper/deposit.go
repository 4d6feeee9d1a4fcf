package keeper

import (
	"encoding/hex"
	"strconv"

	"cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/yield-vault/x/vault/types"
)

// Deposit splits req.Amount across req.Claims and mints one deposit per
// claim. Every split is priced at the pool state from before the call.
// A non-zero req.GroupID tops up a group the depositor owns.
func (k *Keeper) Deposit(ctx sdk.Context, depositor string, req types.DepositRequest) ([]*types.Deposit, error) {
	var created []*types.Deposit
	err := k.atomic(ctx, func(ctx sdk.Context) error {
		var err error
		created, err = k.deposit(ctx, depositor, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (k *Keeper) deposit(ctx sdk.Context, depositor string, req types.DepositRequest) ([]*types.Deposit, error) {
	params := k.GetParams(ctx)

	if req.Amount.IsNil() || !req.Amount.IsPositive() {
		return nil, types.ErrCannotDeposit0
	}
	lock, err := validateLock(params, req.LockDuration)
	if err != nil {
		return nil, err
	}
	if err := types.ValidateClaims(req.Claims); err != nil {
		return nil, err
	}
	if err := types.ValidateName(req.Name); err != nil {
		return nil, err
	}

	pool := k.GetPoolState(ctx)
	groupID, err := k.resolveGroup(ctx, pool, depositor, req.GroupID)
	if err != nil {
		return nil, err
	}

	strategy, err := k.GetStrategy(ctx)
	if err != nil {
		return nil, err
	}
	snap := k.snapshot(ctx, pool, strategy)

	var unwindTolerance uint32
	if strategy != nil {
		unwindTolerance = strategy.MaxUnwindFeePct()
	}
	if !snap.LossWithinTolerance(unwindTolerance) {
		return nil, errors.Wrapf(types.ErrCannotDepositWhenYieldNegative, "claimer loss %s", snap.ClaimerLoss())
	}
	for _, claim := range req.Claims {
		if err := k.checkNotInDebt(ctx, snap, claim.Beneficiary); err != nil {
			return nil, err
		}
	}

	if err := k.pull(ctx, depositor, req.Amount); err != nil {
		return nil, err
	}

	lockedUntil := ctx.BlockTime().Add(lock).Unix()
	splits := types.SplitByClaims(req.Amount, req.Claims)
	created := make([]*types.Deposit, 0, len(splits))

	for i, claim := range req.Claims {
		amount := splits[i]
		if !amount.IsPositive() {
			// rounded away; the remainder went to the last claim
			continue
		}
		shares, err := snap.SharesForAmount(amount)
		if err != nil {
			return nil, err
		}
		if !shares.IsPositive() {
			return nil, errors.Wrapf(types.ErrCannotDeposit0, "%s is worth no shares", amount)
		}

		deposit := &types.Deposit{
			DepositID:   pool.NextDepositID,
			GroupID:     groupID,
			Owner:       depositor,
			Claimer:     claim.Beneficiary,
			Amount:      amount,
			Shares:      shares,
			LockedUntil: lockedUntil,
			Name:        req.Name,
			Data:        claim.Data,
		}
		pool.NextDepositID++
		k.SetDeposit(ctx, deposit)

		claimer := k.GetClaimer(ctx, claim.Beneficiary)
		if claimer == nil {
			claimer = types.NewClaimer(claim.Beneficiary)
		}
		claimer.TotalShares = claimer.TotalShares.Add(shares)
		claimer.TotalPrincipal = claimer.TotalPrincipal.Add(amount)
		claimer.DepositIDs = append(claimer.DepositIDs, deposit.DepositID)
		k.SetClaimer(ctx, claimer)

		pool.TotalShares = pool.TotalShares.Add(shares)
		pool.TotalPrincipal = pool.TotalPrincipal.Add(amount)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeDepositCreated,
				sdk.NewAttribute(types.AttributeKeyDepositID, strconv.FormatUint(deposit.DepositID, 10)),
				sdk.NewAttribute(types.AttributeKeyGroupID, strconv.FormatUint(groupID, 10)),
				sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
				sdk.NewAttribute(types.AttributeKeyShares, shares.String()),
				sdk.NewAttribute(types.AttributeKeyDepositor, depositor),
				sdk.NewAttribute(types.AttributeKeyClaimer, claim.Beneficiary),
				sdk.NewAttribute(types.AttributeKeyLockedUntil, strconv.FormatInt(lockedUntil, 10)),
				sdk.NewAttribute(types.AttributeKeyData, hex.EncodeToString(claim.Data)),
				sdk.NewAttribute(types.AttributeKeyName, req.Name),
			),
		)
		created = append(created, deposit)
	}
	k.SetPoolState(ctx, pool)

	k.logger.Info("Deposit processed",
		"depositor", depositor,
		"group_id", groupID,
		"amount", req.Amount.String(),
		"splits", len(created),
	)

	return created, k.investAfterDeposit(ctx, strategy, params, snap.Held().Add(req.Amount), snap.Invested)
}

// resolveGroup checks ownership of an existing group or opens a new one
func (k *Keeper) resolveGroup(ctx sdk.Context, pool *types.PoolState, depositor string, groupID uint64) (uint64, error) {
	if groupID != 0 {
		group := k.GetGroup(ctx, groupID)
		if group == nil || group.Owner != depositor {
			return 0, errors.Wrapf(types.ErrSenderNotOwnerOfGroup, "group %d", groupID)
		}
		return groupID, nil
	}
	group := &types.Group{GroupID: pool.NextGroupID, Owner: depositor}
	pool.NextGroupID++
	k.SetGroup(ctx, group)
	return group.GroupID, nil
}

// checkNotInDebt rejects deposits for a claimer whose shares are worth less
// than its principal while the pool is impaired. Outside a loss, a shortfall
// is only share rounding and does not count as debt.
func (k *Keeper) checkNotInDebt(ctx sdk.Context, snap types.Snapshot, address string) error {
	claimer := k.GetClaimer(ctx, address)
	if claimer == nil || claimer.TotalShares.IsZero() || !snap.ClaimerLoss().IsPositive() {
		return nil
	}
	value, err := snap.AmountForShares(claimer.TotalShares)
	if err != nil {
		return err
	}
	if value.LT(claimer.TotalPrincipal) {
		return errors.Wrapf(types.ErrCannotDepositWhenClaimerInDebt, "%s is worth %s against %s principal", address, value, claimer.TotalPrincipal)
	}
	return nil
}
