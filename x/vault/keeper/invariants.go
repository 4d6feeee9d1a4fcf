package keeper

import (
	"fmt"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/yield-vault/x/vault/types"
)

// CheckInvariants walks every deposit and claimer and checks them against
// the pool aggregate. It returns the first broken invariant.
func (k *Keeper) CheckInvariants(ctx sdk.Context) error {
	pool := k.GetPoolState(ctx)
	deposits := k.GetAllDeposits(ctx)
	claimers := k.GetAllClaimers(ctx)

	shares, principal, sponsored := math.ZeroInt(), math.ZeroInt(), math.ZeroInt()
	byClaimer := make(map[string][]uint64)
	for _, d := range deposits {
		if d.Amount.IsNegative() || d.Shares.IsNegative() {
			return errors.Wrapf(types.ErrInvariantBroken, "deposit %d is negative", d.DepositID)
		}
		if d.IsSponsor {
			if !d.Shares.IsZero() {
				return errors.Wrapf(types.ErrInvariantBroken, "sponsorship %d holds shares", d.DepositID)
			}
			sponsored = sponsored.Add(d.Amount)
			continue
		}
		shares = shares.Add(d.Shares)
		principal = principal.Add(d.Amount)
		byClaimer[d.Claimer] = append(byClaimer[d.Claimer], d.DepositID)
	}

	if !shares.Equal(pool.TotalShares) {
		return errors.Wrapf(types.ErrInvariantBroken, "deposit shares %s, pool shares %s", shares, pool.TotalShares)
	}
	if !principal.Equal(pool.TotalPrincipal) {
		return errors.Wrapf(types.ErrInvariantBroken, "deposit principal %s, pool principal %s", principal, pool.TotalPrincipal)
	}
	if !sponsored.Equal(pool.TotalSponsored) {
		return errors.Wrapf(types.ErrInvariantBroken, "sponsorships %s, pool sponsored %s", sponsored, pool.TotalSponsored)
	}

	claimerShares, claimerPrincipal := math.ZeroInt(), math.ZeroInt()
	for _, c := range claimers {
		if err := checkClaimer(ctx, k, c, byClaimer[c.Address]); err != nil {
			return err
		}
		claimerShares = claimerShares.Add(c.TotalShares)
		claimerPrincipal = claimerPrincipal.Add(c.TotalPrincipal)
		delete(byClaimer, c.Address)
	}
	for addr := range byClaimer {
		return errors.Wrapf(types.ErrInvariantBroken, "deposits name %s but it has no ledger entry", addr)
	}
	if !claimerShares.Equal(pool.TotalShares) || !claimerPrincipal.Equal(pool.TotalPrincipal) {
		return errors.Wrapf(types.ErrInvariantBroken, "claimers hold %s shares and %s principal", claimerShares, claimerPrincipal)
	}
	return nil
}

func checkClaimer(ctx sdk.Context, k *Keeper, c *types.Claimer, ids []uint64) error {
	if len(c.DepositIDs) != len(ids) {
		return errors.Wrapf(types.ErrInvariantBroken, "claimer %s lists %d deposits, %d name it", c.Address, len(c.DepositIDs), len(ids))
	}
	deposits, err := k.GetClaimerDeposits(ctx, c)
	if err != nil {
		return errors.Wrap(types.ErrInvariantBroken, err.Error())
	}
	shares, principal := math.ZeroInt(), math.ZeroInt()
	for _, d := range deposits {
		if d.Claimer != c.Address {
			return errors.Wrapf(types.ErrInvariantBroken, "claimer %s lists deposit %d of %s", c.Address, d.DepositID, d.Claimer)
		}
		shares = shares.Add(d.Shares)
		principal = principal.Add(d.Amount)
	}
	if !shares.Equal(c.TotalShares) || !principal.Equal(c.TotalPrincipal) {
		return errors.Wrap(types.ErrInvariantBroken, fmt.Sprintf("claimer %s totals %s/%s, deposits sum to %s/%s",
			c.Address, c.TotalShares, c.TotalPrincipal, shares, principal))
	}
	return nil
}
