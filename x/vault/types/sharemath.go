package types

import (
	"cosmossdk.io/errors"
	"cosmossdk.io/math"
)

// SharesForAmount converts an underlying amount into shares at the price
// implied by totalShares and base (the non-sponsored pool value). The result
// is rounded down so a minter never receives more than the amount pays for.
// An empty pool mints amount * SharesMultiplier.
func SharesForAmount(amount, totalShares, base math.Int) (math.Int, error) {
	if totalShares.IsZero() {
		return mulDiv(amount, SharesMultiplier, math.OneInt(), false)
	}
	if !base.IsPositive() {
		return math.ZeroInt(), ErrVaultCannotComputeSharesWithoutPrincipal
	}
	return mulDiv(amount, totalShares, base, false)
}

// SharesForAmountRoundUp is SharesForAmount rounded up. It sizes burns, where
// the rounding has to favour the pool.
func SharesForAmountRoundUp(amount, totalShares, base math.Int) (math.Int, error) {
	if totalShares.IsZero() {
		return mulDiv(amount, SharesMultiplier, math.OneInt(), true)
	}
	if !base.IsPositive() {
		return math.ZeroInt(), ErrVaultCannotComputeSharesWithoutPrincipal
	}
	return mulDiv(amount, totalShares, base, true)
}

// AmountForShares converts shares back to underlying, rounded down
func AmountForShares(shares, totalShares, base math.Int) (math.Int, error) {
	if totalShares.IsZero() {
		if shares.IsZero() {
			return math.ZeroInt(), nil
		}
		return math.ZeroInt(), errors.Wrapf(ErrArithmetic, "%s shares out of an empty pool", shares)
	}
	if base.IsNegative() {
		return math.ZeroInt(), errors.Wrapf(ErrArithmetic, "negative pool value %s", base)
	}
	return mulDiv(shares, base, totalShares, false)
}

// MulBasisPoints returns amount * bp / BasisPoints rounded down
func MulBasisPoints(amount math.Int, bp uint32) math.Int {
	return amount.MulRaw(int64(bp)).QuoRaw(BasisPoints)
}

// MulDiv returns a*b/c rounded down, failing instead of panicking on overflow
func MulDiv(a, b, c math.Int) (math.Int, error) {
	return mulDiv(a, b, c, false)
}

// MulDivRoundUp returns a*b/c rounded up
func MulDivRoundUp(a, b, c math.Int) (math.Int, error) {
	return mulDiv(a, b, c, true)
}

// mulDiv computes a*b/c without intermediate overflow panics
func mulDiv(a, b, c math.Int, roundUp bool) (math.Int, error) {
	if a.IsNegative() || b.IsNegative() || !c.IsPositive() {
		return math.ZeroInt(), errors.Wrapf(ErrArithmetic, "mulDiv(%s, %s, %s)", a, b, c)
	}
	prod, err := a.SafeMul(b)
	if err != nil {
		return math.ZeroInt(), errors.Wrap(ErrArithmetic, err.Error())
	}
	q := prod.Quo(c)
	if roundUp && !q.Mul(c).Equal(prod) {
		q = q.AddRaw(1)
	}
	return q, nil
}
