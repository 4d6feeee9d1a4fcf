package types

import (
	"cosmossdk.io/math"
)

// Snapshot is the pool state captured once at the start of an operation.
// Every share conversion inside that operation prices against the same
// snapshot, even after funds move to or from the strategy.
type Snapshot struct {
	Local              math.Int `json:"local"`
	Invested           math.Int `json:"invested"`
	TotalShares        math.Int `json:"total_shares"`
	TotalPrincipal     math.Int `json:"total_principal"`
	TotalSponsored     math.Int `json:"total_sponsored"`
	AccumulatedPerfFee math.Int `json:"accumulated_perf_fee"`
}

// NewSnapshot combines balances with the stored pool aggregates
func NewSnapshot(pool *PoolState, local, invested math.Int) Snapshot {
	return Snapshot{
		Local:              local,
		Invested:           invested,
		TotalShares:        pool.TotalShares,
		TotalPrincipal:     pool.TotalPrincipal,
		TotalSponsored:     pool.TotalSponsored,
		AccumulatedPerfFee: pool.AccumulatedPerfFee,
	}
}

// Held is the total underlying under management
func (s Snapshot) Held() math.Int {
	return s.Local.Add(s.Invested)
}

// netOfFee is Held minus the fees owed to the treasury, floored at zero
func (s Snapshot) netOfFee() math.Int {
	return math.MaxInt(math.ZeroInt(), s.Held().Sub(s.AccumulatedPerfFee))
}

// SponsorValue is what sponsor capital is still worth. Sponsors absorb any
// shortfall first, so this shrinks before claimer principal does.
func (s Snapshot) SponsorValue() math.Int {
	surplus := math.MaxInt(math.ZeroInt(), s.netOfFee().Sub(s.TotalPrincipal))
	return math.MinInt(s.TotalSponsored, surplus)
}

// UnderlyingMinusSponsored is the pool value backing the shares
func (s Snapshot) UnderlyingMinusSponsored() math.Int {
	return s.netOfFee().Sub(s.SponsorValue())
}

// IsAtLoss reports whether the pool holds less than it owes
func (s Snapshot) IsAtLoss() bool {
	owed := s.TotalPrincipal.Add(s.TotalSponsored).Add(s.AccumulatedPerfFee)
	return s.Held().LT(owed)
}

// ClaimerLoss is the part of the shortfall that sponsor capital no longer covers
func (s Snapshot) ClaimerLoss() math.Int {
	return math.MaxInt(math.ZeroInt(), s.TotalPrincipal.Sub(s.netOfFee()))
}

// LossWithinTolerance reports whether the claimer loss is at most tolerancePct
// basis points of total principal
func (s Snapshot) LossWithinTolerance(tolerancePct uint32) bool {
	loss := s.ClaimerLoss()
	if loss.IsZero() {
		return true
	}
	return loss.MulRaw(BasisPoints).LTE(s.TotalPrincipal.MulRaw(int64(tolerancePct)))
}

// SharesForAmount prices amount against this snapshot
func (s Snapshot) SharesForAmount(amount math.Int) (math.Int, error) {
	return SharesForAmount(amount, s.TotalShares, s.UnderlyingMinusSponsored())
}

// SharesForAmountRoundUp prices a burn against this snapshot
func (s Snapshot) SharesForAmountRoundUp(amount math.Int) (math.Int, error) {
	return SharesForAmountRoundUp(amount, s.TotalShares, s.UnderlyingMinusSponsored())
}

// AmountForShares values shares against this snapshot
func (s Snapshot) AmountForShares(shares math.Int) (math.Int, error) {
	return AmountForShares(shares, s.TotalShares, s.UnderlyingMinusSponsored())
}

// PricePerShare is the underlying value of SharesMultiplier shares, in
// underlying units. It is 1 for an empty pool.
func (s Snapshot) PricePerShare() math.LegacyDec {
	if s.TotalShares.IsZero() {
		return math.LegacyOneDec()
	}
	return math.LegacyNewDecFromInt(s.UnderlyingMinusSponsored()).
		MulInt(SharesMultiplier).
		QuoInt(s.TotalShares)
}
