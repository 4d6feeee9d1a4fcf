package keeper

import (
	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/yield-vault/x/vault/types"
)

// investTarget returns the most the strategy should hold and how far the
// current investment is from it. A negative delta means over-invested.
func investTarget(params types.Params, held, invested math.Int) (maxInvestable, delta math.Int) {
	maxInvestable = types.MulBasisPoints(held, params.InvestPct)
	return maxInvestable, maxInvestable.Sub(invested)
}

// invest moves amount to the strategy and reports what it accepted
func (k *Keeper) invest(ctx sdk.Context, strategy types.Strategy, amount math.Int) (math.Int, error) {
	if err := k.bankKeeper.SendCoins(ctx, types.ModuleAddress(), strategy.Address(), k.coins(ctx, amount)); err != nil {
		return math.ZeroInt(), errors.Wrap(types.ErrNotEnoughFunds, err.Error())
	}
	accepted, err := strategy.Invest(ctx, amount)
	if err != nil {
		return math.ZeroInt(), errors.Wrapf(err, "invest %s in %s", amount, strategy.Name())
	}
	if accepted.GT(amount) {
		return math.ZeroInt(), errors.Wrapf(types.ErrArithmetic, "strategy accepted %s of %s", accepted, amount)
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeInvested,
			sdk.NewAttribute(types.AttributeKeyStrategy, strategy.Name()),
			sdk.NewAttribute(types.AttributeKeyAmount, accepted.String()),
		),
	)
	k.logger.Info("Invested", "strategy", strategy.Name(), "amount", accepted.String())
	return accepted, nil
}

// disinvest asks the strategy for amount. The returned amount, not the
// requested one, is what moved.
func (k *Keeper) disinvest(ctx sdk.Context, strategy types.Strategy, amount math.Int) (math.Int, error) {
	got, err := strategy.WithdrawToVault(ctx, amount)
	if err != nil {
		return math.ZeroInt(), errors.Wrapf(err, "withdraw %s from %s", amount, strategy.Name())
	}
	if got.IsNegative() {
		return math.ZeroInt(), errors.Wrapf(types.ErrArithmetic, "strategy returned %s", got)
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeDisinvested,
			sdk.NewAttribute(types.AttributeKeyStrategy, strategy.Name()),
			sdk.NewAttribute(types.AttributeKeyAmount, got.String()),
			sdk.NewAttribute(types.AttributeKeyRequested, amount.String()),
		),
	)
	k.logger.Info("Disinvested", "strategy", strategy.Name(), "requested", amount.String(), "amount", got.String())
	return got, nil
}

// ensureLocal makes sure the vault account holds at least need, pulling the
// shortfall out of the strategy. The request is grossed up by the strategy's
// unwind fee so a synchronous strategy with a fee still covers need.
func (k *Keeper) ensureLocal(ctx sdk.Context, strategy types.Strategy, need math.Int) error {
	local := k.LocalBalance(ctx)
	if local.GTE(need) {
		return nil
	}
	if strategy == nil {
		return errors.Wrapf(types.ErrNotEnoughFunds, "need %s, have %s", need, local)
	}

	shortfall := need.Sub(local)
	request := shortfall
	if fee := strategy.MaxUnwindFeePct(); fee > 0 && fee < types.BasisPoints {
		grossed, err := types.MulDivRoundUp(shortfall, math.NewInt(types.BasisPoints), math.NewInt(int64(types.BasisPoints-fee)))
		if err != nil {
			return err
		}
		request = grossed
	}
	if _, err := k.disinvest(ctx, strategy, request); err != nil {
		return err
	}

	if local = k.LocalBalance(ctx); local.LT(need) {
		return errors.Wrapf(types.ErrNotEnoughFunds, "need %s, have %s after disinvesting", need, local)
	}
	return nil
}

// investAfterDeposit is the immediate-invest path. It never fails the
// deposit for being below a threshold; it just leaves the funds local.
func (k *Keeper) investAfterDeposit(ctx sdk.Context, strategy types.Strategy, params types.Params, held, invested math.Int) error {
	if strategy == nil {
		return nil
	}
	maxInvestable, delta := investTarget(params, held, invested)
	limit := types.MulBasisPoints(maxInvestable, params.ImmediateInvestLimitPct)
	if invested.GTE(limit) {
		k.logger.Debug("Immediate invest skipped", "invested", invested.String(), "limit", limit.String())
		return nil
	}
	if delta.LT(params.MinRebalanceAmount) || !delta.IsPositive() {
		k.logger.Debug("Immediate invest below minimum", "delta", delta.String())
		return nil
	}
	_, err := k.invest(ctx, strategy, delta)
	return err
}

// UpdateInvested moves funds toward the invest target. Keeper role only.
// Returns the amount that actually moved.
func (k *Keeper) UpdateInvested(ctx sdk.Context, sender string) (math.Int, error) {
	moved := math.ZeroInt()
	err := k.atomic(ctx, func(ctx sdk.Context) error {
		if err := k.requireRole(ctx, types.RoleKeeper, sender); err != nil {
			return err
		}
		strategy, err := k.GetStrategy(ctx)
		if err != nil {
			return err
		}
		if strategy == nil {
			return types.ErrStrategyNotSet
		}

		params := k.GetParams(ctx)
		snap := k.snapshot(ctx, k.GetPoolState(ctx), strategy)
		_, delta := investTarget(params, snap.Held(), snap.Invested)
		if delta.IsZero() {
			return types.ErrNothingToDo
		}
		if delta.Abs().LT(params.MinRebalanceAmount) {
			return errors.Wrapf(types.ErrNotEnoughToRebalance, "delta %s below %s", delta, params.MinRebalanceAmount)
		}

		if delta.IsPositive() {
			moved, err = k.invest(ctx, strategy, delta)
		} else {
			moved, err = k.disinvest(ctx, strategy, delta.Neg())
		}
		return err
	})
	if err != nil {
		return math.ZeroInt(), err
	}
	return moved, nil
}
