package types

import (
	"testing"

	"cosmossdk.io/math"
)

func snapshot(held, principal, sponsored, fee int64) Snapshot {
	return Snapshot{
		Local:              math.NewInt(held),
		Invested:           math.ZeroInt(),
		TotalShares:        SharesMultiplier.MulRaw(principal),
		TotalPrincipal:     math.NewInt(principal),
		TotalSponsored:     math.NewInt(sponsored),
		AccumulatedPerfFee: math.NewInt(fee),
	}
}

func TestSnapshotLossGuard(t *testing.T) {
	tests := []struct {
		name         string
		snap         Snapshot
		base         int64
		sponsorValue int64
		atLoss       bool
		claimerLoss  int64
	}{
		{"healthy pool with yield", snapshot(170, 100, 50, 1), 119, 50, false, 0},
		{"exactly covered", snapshot(150, 100, 50, 0), 100, 50, false, 0},
		{"sponsor absorbs shortfall", snapshot(120, 100, 50, 0), 100, 20, true, 0},
		{"sponsor wiped out", snapshot(90, 100, 50, 0), 90, 0, true, 10},
		{"fee still owed under loss", snapshot(95, 100, 0, 5), 90, 0, true, 10},
		{"value below fee floors at zero", snapshot(3, 100, 0, 5), 0, 0, true, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.snap.UnderlyingMinusSponsored(); !got.Equal(math.NewInt(tt.base)) {
				t.Errorf("expected base %d, got %s", tt.base, got)
			}
			if got := tt.snap.SponsorValue(); !got.Equal(math.NewInt(tt.sponsorValue)) {
				t.Errorf("expected sponsor value %d, got %s", tt.sponsorValue, got)
			}
			if got := tt.snap.IsAtLoss(); got != tt.atLoss {
				t.Errorf("expected at loss %t, got %t", tt.atLoss, got)
			}
			if got := tt.snap.ClaimerLoss(); !got.Equal(math.NewInt(tt.claimerLoss)) {
				t.Errorf("expected claimer loss %d, got %s", tt.claimerLoss, got)
			}
		})
	}
}

func TestLossWithinTolerance(t *testing.T) {
	// 2 lost out of 100 principal
	snap := snapshot(98, 100, 0, 0)

	if !snap.LossWithinTolerance(200) {
		t.Errorf("expected a 2%% loss to pass a 2%% tolerance")
	}
	if snap.LossWithinTolerance(199) {
		t.Errorf("expected a 2%% loss to fail a 1.99%% tolerance")
	}
	if !snapshot(100, 100, 0, 0).LossWithinTolerance(0) {
		t.Errorf("expected no loss to pass a zero tolerance")
	}
}

func TestPricePerShare(t *testing.T) {
	if got := NewSnapshot(NewPoolState(), math.ZeroInt(), math.ZeroInt()).PricePerShare(); !got.Equal(math.LegacyOneDec()) {
		t.Errorf("expected 1 for an empty pool, got %s", got)
	}
	snap := snapshot(200, 100, 0, 0)
	if got := snap.PricePerShare(); !got.Equal(math.LegacyNewDec(2)) {
		t.Errorf("expected 2, got %s", got)
	}
}
