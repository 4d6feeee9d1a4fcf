package keeper

import (
	"strconv"
	"time"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/yield-vault/x/vault/types"
)

// Sponsor adds capital that earns nothing and absorbs losses first. Sponsor
// role only.
func (k *Keeper) Sponsor(ctx sdk.Context, sponsor string, amount math.Int, lockDuration time.Duration) (*types.Deposit, error) {
	var created *types.Deposit
	err := k.atomic(ctx, func(ctx sdk.Context) error {
		if err := k.requireRole(ctx, types.RoleSponsor, sponsor); err != nil {
			return err
		}
		if amount.IsNil() || !amount.IsPositive() {
			return types.ErrCannotDeposit0
		}
		params := k.GetParams(ctx)
		lock, err := validateLock(params, lockDuration)
		if err != nil {
			return err
		}
		if err := k.pull(ctx, sponsor, amount); err != nil {
			return err
		}

		pool := k.GetPoolState(ctx)
		created = &types.Deposit{
			DepositID:   pool.NextDepositID,
			Owner:       sponsor,
			Amount:      amount,
			Shares:      math.ZeroInt(),
			LockedUntil: ctx.BlockTime().Add(lock).Unix(),
			IsSponsor:   true,
		}
		pool.NextDepositID++
		pool.TotalSponsored = pool.TotalSponsored.Add(amount)
		k.SetDeposit(ctx, created)
		k.SetPoolState(ctx, pool)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeSponsored,
				sdk.NewAttribute(types.AttributeKeyDepositID, strconv.FormatUint(created.DepositID, 10)),
				sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
				sdk.NewAttribute(types.AttributeKeySponsor, sponsor),
				sdk.NewAttribute(types.AttributeKeyLockedUntil, strconv.FormatInt(created.LockedUntil, 10)),
			),
		)
		k.logger.Info("Sponsored", "sponsor", sponsor, "deposit_id", created.DepositID, "amount", amount.String())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Unsponsor returns sponsorship capital to destination. amounts, when given,
// holds one partial amount per id; otherwise each sponsorship exits in full.
// Without force the pool must not be at a loss. With force each sponsorship
// is paid its pro-rata share of what sponsor capital is still worth.
func (k *Keeper) Unsponsor(ctx sdk.Context, sponsor, destination string, ids []uint64, amounts []math.Int, force bool) (math.Int, error) {
	paid := math.ZeroInt()
	err := k.atomic(ctx, func(ctx sdk.Context) error {
		to, err := parseDestination(destination)
		if err != nil {
			return err
		}
		if len(amounts) > 0 && len(amounts) != len(ids) {
			return errors.Wrapf(types.ErrInvalidAmount, "%d amounts for %d sponsorships", len(amounts), len(ids))
		}

		pool := k.GetPoolState(ctx)
		strategy, err := k.GetStrategy(ctx)
		if err != nil {
			return err
		}
		snap := k.snapshot(ctx, pool, strategy)
		if !force && snap.IsAtLoss() {
			return errors.Wrapf(types.ErrCannotWithdrawWhenYieldNegative, "sponsor capital is worth %s of %s", snap.SponsorValue(), snap.TotalSponsored)
		}

		for i, id := range ids {
			deposit := k.GetDeposit(ctx, id)
			if deposit == nil {
				return errors.Wrapf(types.ErrDepositNotFound, "%d", id)
			}
			if deposit.Owner != sponsor {
				return errors.Wrapf(types.ErrNotOwnerOfDeposit, "%d", id)
			}
			if !deposit.IsSponsor {
				return errors.Wrapf(types.ErrNotSponsor, "%d", id)
			}
			if deposit.IsLocked(ctx.BlockTime()) {
				return errors.Wrapf(types.ErrAmountLocked, "%d until %d", id, deposit.LockedUntil)
			}

			requested := deposit.Amount
			if len(amounts) > 0 {
				requested = amounts[i]
				if !requested.IsPositive() {
					return errors.Wrapf(types.ErrInvalidAmount, "%d", id)
				}
				if requested.GT(deposit.Amount) {
					return errors.Wrapf(types.ErrCannotWithdrawMoreThanAvailable, "%s of %s", requested, deposit.Amount)
				}
			}

			payout := requested
			if force {
				payout, err = types.MulDiv(requested, snap.SponsorValue(), snap.TotalSponsored)
				if err != nil {
					return err
				}
			}

			deposit.Amount = deposit.Amount.Sub(requested)
			pool.TotalSponsored = pool.TotalSponsored.Sub(requested)
			if pool.TotalSponsored.IsNegative() {
				return errors.Wrapf(types.ErrArithmetic, "total sponsored below zero")
			}
			fullyBurned := deposit.Amount.IsZero()
			if fullyBurned {
				deposit.Burn()
				k.RemoveDeposit(ctx, deposit)
			} else {
				k.SetDeposit(ctx, deposit)
			}
			paid = paid.Add(payout)

			ctx.EventManager().EmitEvent(
				sdk.NewEvent(
					types.EventTypeUnsponsored,
					sdk.NewAttribute(types.AttributeKeyDepositID, strconv.FormatUint(id, 10)),
					sdk.NewAttribute(types.AttributeKeyAmount, payout.String()),
					sdk.NewAttribute(types.AttributeKeySponsor, sponsor),
					sdk.NewAttribute(types.AttributeKeyDestination, destination),
					sdk.NewAttribute(types.AttributeKeyFullyBurned, strconv.FormatBool(fullyBurned)),
					sdk.NewAttribute(types.AttributeKeyForced, strconv.FormatBool(force)),
				),
			)
		}
		k.SetPoolState(ctx, pool)

		if err := k.ensureLocal(ctx, strategy, paid); err != nil {
			return err
		}
		if err := k.pay(ctx, to, paid); err != nil {
			return err
		}

		k.logger.Info("Unsponsored", "sponsor", sponsor, "deposits", len(ids), "paid", paid.String(), "forced", force)
		return nil
	})
	if err != nil {
		return math.ZeroInt(), err
	}
	return paid, nil
}
