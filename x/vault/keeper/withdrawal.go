package keeper

import (
	"strconv"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/yield-vault/x/vault/types"
)

// WithdrawResult totals one withdraw call
type WithdrawResult struct {
	AmountPaid   math.Int
	SharesBurned math.Int
}

// Withdraw pays principal out of the owner's deposits.
//
// Normal and partial withdrawals pay exactly the principal requested and are
// refused while the claimer loss exceeds lossTolerancePct. A forced withdrawal
// skips that check and pays the lesser of the principal and what the burned
// shares are worth, realizing the withdrawer's share of any loss. Each deposit
// burns the shares the withdrawn principal is worth, rounded up and capped at
// its balance; yield shares stay on the deposit until claimed.
func (k *Keeper) Withdraw(ctx sdk.Context, owner, destination string, ids []uint64, amounts []math.Int, mode types.WithdrawMode) (*WithdrawResult, error) {
	result := &WithdrawResult{AmountPaid: math.ZeroInt(), SharesBurned: math.ZeroInt()}
	err := k.atomic(ctx, func(ctx sdk.Context) error {
		to, err := parseDestination(destination)
		if err != nil {
			return err
		}
		if mode == types.WithdrawModePartial && len(amounts) != len(ids) {
			return errors.Wrapf(types.ErrInvalidAmount, "%d amounts for %d deposits", len(amounts), len(ids))
		}

		params := k.GetParams(ctx)
		pool := k.GetPoolState(ctx)
		strategy, err := k.GetStrategy(ctx)
		if err != nil {
			return err
		}
		snap := k.snapshot(ctx, pool, strategy)

		if mode != types.WithdrawModeForce && !snap.LossWithinTolerance(params.LossTolerancePct) {
			return errors.Wrapf(types.ErrMustUseForceWithdraw, "claimer loss %s exceeds %d bp of %s", snap.ClaimerLoss(), params.LossTolerancePct, snap.TotalPrincipal)
		}

		for i, id := range ids {
			deposit, err := k.withdrawable(ctx, owner, id)
			if err != nil {
				return err
			}

			requested := deposit.Amount
			if mode == types.WithdrawModePartial {
				requested = amounts[i]
				if !requested.IsPositive() {
					return errors.Wrapf(types.ErrInvalidAmount, "%d", id)
				}
				if requested.GT(deposit.Amount) {
					return errors.Wrapf(types.ErrCannotWithdrawMoreThanAvailable, "%s of %s", requested, deposit.Amount)
				}
			}

			burned, err := snap.SharesForAmountRoundUp(requested)
			if err != nil {
				return err
			}
			burned = math.MinInt(burned, deposit.Shares)

			payout := requested
			if mode == types.WithdrawModeForce {
				value, err := snap.AmountForShares(burned)
				if err != nil {
					return err
				}
				payout = math.MinInt(requested, value)
			}

			if err := k.burnDeposit(ctx, pool, deposit, requested, burned); err != nil {
				return err
			}
			result.AmountPaid = result.AmountPaid.Add(payout)
			result.SharesBurned = result.SharesBurned.Add(burned)

			ctx.EventManager().EmitEvent(
				sdk.NewEvent(
					types.EventTypeDepositWithdrawn,
					sdk.NewAttribute(types.AttributeKeyDepositID, strconv.FormatUint(id, 10)),
					sdk.NewAttribute(types.AttributeKeySharesBurned, burned.String()),
					sdk.NewAttribute(types.AttributeKeyAmountPaid, payout.String()),
					sdk.NewAttribute(types.AttributeKeyDestination, destination),
					sdk.NewAttribute(types.AttributeKeyFullyBurned, strconv.FormatBool(deposit.IsEmpty())),
					sdk.NewAttribute(types.AttributeKeyForced, strconv.FormatBool(mode == types.WithdrawModeForce)),
				),
			)
		}
		k.SetPoolState(ctx, pool)

		if err := k.ensureLocal(ctx, strategy, result.AmountPaid); err != nil {
			return err
		}
		if err := k.pay(ctx, to, result.AmountPaid); err != nil {
			return err
		}

		k.logger.Info("Withdrawal processed",
			"owner", owner,
			"mode", mode.String(),
			"deposits", len(ids),
			"paid", result.AmountPaid.String(),
			"shares_burned", result.SharesBurned.String(),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// withdrawable loads a deposit the owner may withdraw from now
func (k *Keeper) withdrawable(ctx sdk.Context, owner string, id uint64) (*types.Deposit, error) {
	deposit := k.GetDeposit(ctx, id)
	if deposit == nil {
		return nil, errors.Wrapf(types.ErrDepositNotFound, "%d", id)
	}
	if deposit.Owner != owner {
		return nil, errors.Wrapf(types.ErrNotOwnerOfDeposit, "%d", id)
	}
	if deposit.IsSponsor {
		return nil, errors.Wrapf(types.ErrNotDeposit, "%d", id)
	}
	if deposit.IsLocked(ctx.BlockTime()) {
		return nil, errors.Wrapf(types.ErrAmountLocked, "%d until %d", id, deposit.LockedUntil)
	}
	return deposit, nil
}

// burnDeposit removes principal and shares from a deposit, its claimer and
// the pool, and drops the deposit once nothing is left in it
func (k *Keeper) burnDeposit(ctx sdk.Context, pool *types.PoolState, deposit *types.Deposit, principal, shares math.Int) error {
	claimer := k.GetClaimer(ctx, deposit.Claimer)
	if claimer == nil {
		return errors.Wrapf(types.ErrClaimerNotFound, "%s", deposit.Claimer)
	}

	deposit.Amount = deposit.Amount.Sub(principal)
	deposit.Shares = deposit.Shares.Sub(shares)
	claimer.TotalPrincipal = claimer.TotalPrincipal.Sub(principal)
	claimer.TotalShares = claimer.TotalShares.Sub(shares)
	pool.TotalPrincipal = pool.TotalPrincipal.Sub(principal)
	pool.TotalShares = pool.TotalShares.Sub(shares)

	for _, v := range []math.Int{deposit.Amount, deposit.Shares, claimer.TotalPrincipal, claimer.TotalShares, pool.TotalPrincipal, pool.TotalShares} {
		if v.IsNegative() {
			return errors.Wrapf(types.ErrArithmetic, "deposit %d burned below zero", deposit.DepositID)
		}
	}

	if deposit.IsEmpty() {
		deposit.Burn()
		k.RemoveDeposit(ctx, deposit)
		claimer.DepositIDs = removeID(claimer.DepositIDs, deposit.DepositID)
	} else {
		k.SetDeposit(ctx, deposit)
	}
	k.SetClaimer(ctx, claimer)
	return nil
}
