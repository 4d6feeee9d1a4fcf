package keeper

import (
	"strconv"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/yield-vault/x/vault/types"
)

// UpdateParams replaces the vault params. Settings role only.
func (k *Keeper) UpdateParams(ctx sdk.Context, sender string, params types.Params) error {
	return k.atomic(ctx, func(ctx sdk.Context) error {
		if err := k.requireRole(ctx, types.RoleSettings, sender); err != nil {
			return err
		}
		if err := params.Validate(); err != nil {
			return err
		}

		old := k.GetParams(ctx)
		if old.Denom != params.Denom && !k.GetPoolState(ctx).TotalShares.IsZero() {
			return errors.Wrapf(types.ErrInvalidParams, "denom cannot change from %s while deposits are open", old.Denom)
		}
		k.SetParams(ctx, params)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeParamsUpdated,
				sdk.NewAttribute(types.AttributeKeyAccount, sender),
			),
		)
		if old.Treasury != params.Treasury {
			ctx.EventManager().EmitEvent(
				sdk.NewEvent(
					types.EventTypeTreasuryUpdated,
					sdk.NewAttribute(types.AttributeKeyTreasury, params.Treasury),
				),
			)
		}
		k.logger.Info("Params updated", "by", sender, "invest_pct", params.InvestPct, "perf_fee_pct", params.PerfFeePct)
		return nil
	})
}

// SetStrategy points the vault at a registered strategy. The strategy must
// pay out to this vault, and the one being replaced must hold nothing.
func (k *Keeper) SetStrategy(ctx sdk.Context, sender, name string) error {
	return k.atomic(ctx, func(ctx sdk.Context) error {
		if err := k.requireAdmin(sender); err != nil {
			return err
		}
		next, ok := k.strategies[name]
		if !ok {
			return errors.Wrapf(types.ErrUnknownStrategy, "%q", name)
		}
		if !next.Vault().Equals(types.ModuleAddress()) {
			return errors.Wrapf(types.ErrStrategyNotTheVault, "%s pays out to %s", name, next.Vault())
		}

		current, err := k.GetStrategy(ctx)
		if err != nil {
			return err
		}
		if current != nil && current.HasOutstandingAssets(ctx) {
			return errors.Wrapf(types.ErrStrategyHasLockedAssets, "%s", current.Name())
		}

		pool := k.GetPoolState(ctx)
		pool.StrategyRef = name
		k.SetPoolState(ctx, pool)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeStrategyUpdated,
				sdk.NewAttribute(types.AttributeKeyStrategy, name),
			),
		)
		k.logger.Info("Strategy updated", "strategy", name, "synchronous", next.IsSynchronous())
		return nil
	})
}

// SetRole grants or revokes a role. Admin only.
func (k *Keeper) SetRole(ctx sdk.Context, sender, account, role string, grant bool) error {
	return k.atomic(ctx, func(ctx sdk.Context) error {
		if err := k.requireAdmin(sender); err != nil {
			return err
		}
		if !types.IsValidRole(role) {
			return errors.Wrapf(types.ErrInvalidRole, "%q", role)
		}
		if grant {
			k.GetStore(ctx).Set(roleKey(role, account), []byte{1})
		} else {
			k.GetStore(ctx).Delete(roleKey(role, account))
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeRoleUpdated,
				sdk.NewAttribute(types.AttributeKeyRole, role),
				sdk.NewAttribute(types.AttributeKeyAccount, account),
				sdk.NewAttribute(types.AttributeKeyGranted, strconv.FormatBool(grant)),
			),
		)
		return nil
	})
}

// WithdrawPerformanceFees sends the accumulated perf fee to the treasury.
// Keeper role only.
func (k *Keeper) WithdrawPerformanceFees(ctx sdk.Context, sender string) (math.Int, error) {
	paid := math.ZeroInt()
	err := k.atomic(ctx, func(ctx sdk.Context) error {
		if err := k.requireRole(ctx, types.RoleKeeper, sender); err != nil {
			return err
		}
		params := k.GetParams(ctx)
		if params.Treasury == "" {
			return errors.Wrap(types.ErrDestinationCannotBe0, "treasury not set")
		}
		to, err := parseDestination(params.Treasury)
		if err != nil {
			return err
		}

		pool := k.GetPoolState(ctx)
		if pool.AccumulatedPerfFee.IsZero() {
			return types.ErrNothingToDo
		}
		strategy, err := k.GetStrategy(ctx)
		if err != nil {
			return err
		}
		if err := k.ensureLocal(ctx, strategy, pool.AccumulatedPerfFee); err != nil {
			return err
		}

		paid = pool.AccumulatedPerfFee
		pool.AccumulatedPerfFee = math.ZeroInt()
		k.SetPoolState(ctx, pool)
		if err := k.pay(ctx, to, paid); err != nil {
			return err
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeFeeWithdrawn,
				sdk.NewAttribute(types.AttributeKeyTreasury, params.Treasury),
				sdk.NewAttribute(types.AttributeKeyAmount, paid.String()),
			),
		)
		k.logger.Info("Performance fees withdrawn", "treasury", params.Treasury, "amount", paid.String())
		return nil
	})
	if err != nil {
		return math.ZeroInt(), err
	}
	return paid, nil
}

// SettleStrategy pulls queued withdrawals back from an asynchronous
// strategy. Keeper role only.
func (k *Keeper) SettleStrategy(ctx sdk.Context, sender string) (math.Int, error) {
	settled := math.ZeroInt()
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
		settler, ok := strategy.(types.Settler)
		if !ok || settler.Pending(ctx).IsZero() {
			return types.ErrNothingToDo
		}

		settled, err = settler.Settle(ctx)
		if err != nil {
			return errors.Wrapf(err, "settle %s", strategy.Name())
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeDisinvested,
				sdk.NewAttribute(types.AttributeKeyStrategy, strategy.Name()),
				sdk.NewAttribute(types.AttributeKeyAmount, settled.String()),
			),
		)
		k.logger.Info("Strategy settled", "strategy", strategy.Name(), "amount", settled.String())
		return nil
	})
	if err != nil {
		return math.ZeroInt(), err
	}
	return settled, nil
}

// PendingSettlement is what an asynchronous strategy still owes the vault
func (k *Keeper) PendingSettlement(ctx sdk.Context) math.Int {
	strategy, err := k.GetStrategy(ctx)
	if err != nil || strategy == nil {
		return math.ZeroInt()
	}
	if settler, ok := strategy.(types.Settler); ok {
		return settler.Pending(ctx)
	}
	return math.ZeroInt()
}
