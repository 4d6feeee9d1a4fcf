package keeper

import (
	"encoding/hex"
	"strconv"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/yield-vault/x/vault/types"
)

// computeYield prices a claimer's shares against snap. Gross yield is the
// value above principal; the perf fee comes out of it and the shares burned
// cover the gross amount. It never fails on a claimer with nothing to claim.
func computeYield(snap types.Snapshot, claimer *types.Claimer, perfFeePct uint32) (types.YieldInfo, error) {
	if claimer == nil || claimer.TotalShares.IsZero() {
		return types.ZeroYield(), nil
	}
	value, err := snap.AmountForShares(claimer.TotalShares)
	if err != nil {
		return types.ZeroYield(), err
	}
	if value.LTE(claimer.TotalPrincipal) {
		return types.ZeroYield(), nil
	}

	gross := value.Sub(claimer.TotalPrincipal)
	fee := types.MulBasisPoints(gross, perfFeePct)
	shares, err := snap.SharesForAmount(gross)
	if err != nil {
		return types.ZeroYield(), err
	}
	return types.YieldInfo{
		ClaimableYield: gross.Sub(fee),
		PerfFee:        fee,
		SharesToBurn:   math.MinInt(shares, claimer.TotalShares),
	}, nil
}

// YieldFor returns what the claimer could claim right now
func (k *Keeper) YieldFor(ctx sdk.Context, address string) (types.YieldInfo, error) {
	snap, err := k.GetSnapshot(ctx)
	if err != nil {
		return types.ZeroYield(), err
	}
	return computeYield(snap, k.GetClaimer(ctx, address), k.GetParams(ctx).PerfFeePct)
}

// distributeClaimBurn splits a claim's burned shares across the claimer's
// deposits. Each deposit gives up the shares its own yield is worth,
// shares * yield / value, priced against snap; deposits at or under
// principal give up nothing. Whatever rounding leaves over or under
// total is settled from the last deposit backwards.
func distributeClaimBurn(snap types.Snapshot, deposits []*types.Deposit, total math.Int) ([]math.Int, error) {
	burns := make([]math.Int, len(deposits))
	sum := math.ZeroInt()
	for i, d := range deposits {
		burns[i] = math.ZeroInt()
		if d.Shares.IsZero() {
			continue
		}
		value, err := snap.AmountForShares(d.Shares)
		if err != nil {
			return nil, err
		}
		if value.LTE(d.Amount) {
			continue
		}
		burn, err := types.MulDiv(d.Shares, value.Sub(d.Amount), value)
		if err != nil {
			return nil, err
		}
		burns[i] = burn
		sum = sum.Add(burn)
	}

	diff := total.Sub(sum)
	for i := len(deposits) - 1; i >= 0 && !diff.IsZero(); i-- {
		if diff.IsPositive() {
			take := math.MinInt(diff, deposits[i].Shares.Sub(burns[i]))
			burns[i] = burns[i].Add(take)
			diff = diff.Sub(take)
		} else {
			give := math.MinInt(diff.Neg(), burns[i])
			burns[i] = burns[i].Sub(give)
			diff = diff.Add(give)
		}
	}
	if !diff.IsZero() {
		return nil, errors.Wrapf(types.ErrArithmetic, "cannot place %s burned shares", diff)
	}
	return burns, nil
}

// ClaimYield pays the claimer's yield net of the perf fee to destination
// and burns the shares it was worth
func (k *Keeper) ClaimYield(ctx sdk.Context, address, destination string) (types.YieldInfo, error) {
	info := types.ZeroYield()
	err := k.atomic(ctx, func(ctx sdk.Context) error {
		to, err := parseDestination(destination)
		if err != nil {
			return err
		}
		claimer := k.GetClaimer(ctx, address)
		if claimer == nil {
			return errors.Wrapf(types.ErrNoYieldToClaim, "%s has no deposits", address)
		}

		params := k.GetParams(ctx)
		pool := k.GetPoolState(ctx)
		strategy, err := k.GetStrategy(ctx)
		if err != nil {
			return err
		}
		snap := k.snapshot(ctx, pool, strategy)

		info, err = computeYield(snap, claimer, params.PerfFeePct)
		if err != nil {
			return err
		}
		if info.ClaimableYield.IsZero() {
			return types.ErrNoYieldToClaim
		}

		if err := k.ensureLocal(ctx, strategy, info.ClaimableYield.Add(info.PerfFee)); err != nil {
			return err
		}

		deposits, err := k.GetClaimerDeposits(ctx, claimer)
		if err != nil {
			return err
		}
		burns, err := distributeClaimBurn(snap, deposits, info.SharesToBurn)
		if err != nil {
			return err
		}
		for i, deposit := range deposits {
			if burns[i].IsZero() {
				continue
			}
			deposit.Shares = deposit.Shares.Sub(burns[i])
			if deposit.IsEmpty() {
				deposit.Burn()
				k.RemoveDeposit(ctx, deposit)
				claimer.DepositIDs = removeID(claimer.DepositIDs, deposit.DepositID)
			} else {
				k.SetDeposit(ctx, deposit)
			}
		}

		claimer.TotalShares = claimer.TotalShares.Sub(info.SharesToBurn)
		claimer.ClaimedTotal = claimer.ClaimedTotal.Add(info.ClaimableYield)
		pool.TotalShares = pool.TotalShares.Sub(info.SharesToBurn)
		pool.AccumulatedPerfFee = pool.AccumulatedPerfFee.Add(info.PerfFee)
		k.SetClaimer(ctx, claimer)
		k.SetPoolState(ctx, pool)

		if err := k.pay(ctx, to, info.ClaimableYield); err != nil {
			return err
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeYieldClaimed,
				sdk.NewAttribute(types.AttributeKeyClaimer, address),
				sdk.NewAttribute(types.AttributeKeyDestination, destination),
				sdk.NewAttribute(types.AttributeKeyClaimable, info.ClaimableYield.String()),
				sdk.NewAttribute(types.AttributeKeySharesBurned, info.SharesToBurn.String()),
				sdk.NewAttribute(types.AttributeKeyPerfFee, info.PerfFee.String()),
				sdk.NewAttribute(types.AttributeKeyTotalHeld, snap.Held().String()),
				sdk.NewAttribute(types.AttributeKeyTotalShares, snap.TotalShares.String()),
			),
		)
		if params.Treasury != "" && destination == params.Treasury {
			if err := emitDonations(ctx, deposits, burns, info); err != nil {
				return err
			}
		}

		k.logger.Info("Yield claimed",
			"claimer", address,
			"claimable", info.ClaimableYield.String(),
			"perf_fee", info.PerfFee.String(),
			"shares_burned", info.SharesToBurn.String(),
		)
		return nil
	})
	if err != nil {
		return types.ZeroYield(), err
	}
	return info, nil
}

// emitDonations attributes a claim paid to the treasury back to the deposits
// whose shares were burned, pro rata to the shares each gave up
func emitDonations(ctx sdk.Context, deposits []*types.Deposit, burns []math.Int, info types.YieldInfo) error {
	for i, deposit := range deposits {
		if burns[i].IsZero() {
			continue
		}
		amount, err := types.MulDiv(burns[i], info.ClaimableYield, info.SharesToBurn)
		if err != nil {
			return err
		}
		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeDonation,
				sdk.NewAttribute(types.AttributeKeyDepositID, strconv.FormatUint(deposit.DepositID, 10)),
				sdk.NewAttribute(types.AttributeKeyGroupID, strconv.FormatUint(deposit.GroupID, 10)),
				sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
				sdk.NewAttribute(types.AttributeKeyClaimer, deposit.Claimer),
				sdk.NewAttribute(types.AttributeKeyData, hex.EncodeToString(deposit.Data)),
			),
		)
	}
	return nil
}
