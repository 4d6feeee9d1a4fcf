package types

import (
	"testing"

	"cosmossdk.io/math"
)

func TestSharesForAmount(t *testing.T) {
	tests := []struct {
		name        string
		amount      int64
		totalShares math.Int
		base        int64
		want        math.Int
		roundUpWant math.Int
	}{
		{
			name:        "empty pool mints at multiplier",
			amount:      50,
			totalShares: math.ZeroInt(),
			base:        0,
			want:        SharesMultiplier.MulRaw(50),
			roundUpWant: SharesMultiplier.MulRaw(50),
		},
		{
			name:        "doubled price halves shares",
			amount:      50,
			totalShares: SharesMultiplier.MulRaw(100),
			base:        200,
			want:        SharesMultiplier.MulRaw(25),
			roundUpWant: SharesMultiplier.MulRaw(25),
		},
		{
			name:        "inexact division rounds down on mint",
			amount:      1,
			totalShares: math.NewInt(10),
			base:        3,
			want:        math.NewInt(3),
			roundUpWant: math.NewInt(4),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SharesForAmount(math.NewInt(tt.amount), tt.totalShares, math.NewInt(tt.base))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %s shares, got %s", tt.want, got)
			}
			up, err := SharesForAmountRoundUp(math.NewInt(tt.amount), tt.totalShares, math.NewInt(tt.base))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !up.Equal(tt.roundUpWant) {
				t.Errorf("expected %s rounded-up shares, got %s", tt.roundUpWant, up)
			}
		})
	}
}

func TestSharesForAmountWithoutPrincipal(t *testing.T) {
	_, err := SharesForAmount(math.NewInt(10), math.NewInt(100), math.ZeroInt())
	if !ErrVaultCannotComputeSharesWithoutPrincipal.Is(err) {
		t.Errorf("expected ErrVaultCannotComputeSharesWithoutPrincipal, got %v", err)
	}
	_, err = SharesForAmountRoundUp(math.NewInt(10), math.NewInt(100), math.ZeroInt())
	if !ErrVaultCannotComputeSharesWithoutPrincipal.Is(err) {
		t.Errorf("expected ErrVaultCannotComputeSharesWithoutPrincipal, got %v", err)
	}
}

func TestAmountForShares(t *testing.T) {
	total := SharesMultiplier.MulRaw(75)

	got, err := AmountForShares(SharesMultiplier.MulRaw(50), total, math.NewInt(150))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(math.NewInt(100)) {
		t.Errorf("expected 100, got %s", got)
	}

	// 1/3 of 10 rounds down
	got, err = AmountForShares(math.NewInt(1), math.NewInt(3), math.NewInt(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(math.NewInt(3)) {
		t.Errorf("expected 3, got %s", got)
	}

	got, err = AmountForShares(math.ZeroInt(), math.ZeroInt(), math.NewInt(10))
	if err != nil || !got.IsZero() {
		t.Errorf("expected 0 from an empty pool, got %s (%v)", got, err)
	}

	if _, err := AmountForShares(math.OneInt(), math.ZeroInt(), math.NewInt(10)); !ErrArithmetic.Is(err) {
		t.Errorf("expected ErrArithmetic for shares out of an empty pool, got %v", err)
	}
}

func TestRoundTripNeverInflates(t *testing.T) {
	totalShares := math.NewInt(1_000_003)
	base := math.NewInt(999_983)

	for _, amount := range []int64{1, 7, 333, 10_000, 999_983} {
		shares, err := SharesForAmount(math.NewInt(amount), totalShares, base)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		back, err := AmountForShares(shares, totalShares, base)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if back.GT(math.NewInt(amount)) {
			t.Errorf("amount %d came back as %s", amount, back)
		}
	}
}

func TestMulDivOverflow(t *testing.T) {
	huge := math.NewIntWithDecimal(1, 70)
	_, err := SharesForAmount(huge, huge, math.OneInt())
	if !ErrArithmetic.Is(err) {
		t.Errorf("expected ErrArithmetic on overflow, got %v", err)
	}
}

func TestMulBasisPoints(t *testing.T) {
	if got := MulBasisPoints(math.NewInt(50), 200); !got.Equal(math.OneInt()) {
		t.Errorf("expected 1, got %s", got)
	}
	if got := MulBasisPoints(math.NewInt(49), 200); !got.IsZero() {
		t.Errorf("expected 0, got %s", got)
	}
}

func TestSplitByClaims(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		pcts   []uint32
		want   []int64
	}{
		{"eleven split evenly", 11, []uint32{5000, 5000}, []int64{5, 6}},
		{"hundred split evenly", 100, []uint32{5000, 5000}, []int64{50, 50}},
		{"thirds", 100, []uint32{3333, 3333, 3334}, []int64{33, 33, 34}},
		{"single claim", 7, []uint32{10000}, []int64{7}},
		{"dust to last", 1, []uint32{5000, 5000}, []int64{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := make([]ClaimSplit, len(tt.pcts))
			for i, pct := range tt.pcts {
				claims[i] = ClaimSplit{Pct: pct}
			}
			splits := SplitByClaims(math.NewInt(tt.amount), claims)
			sum := math.ZeroInt()
			for i, s := range splits {
				if !s.Equal(math.NewInt(tt.want[i])) {
					t.Errorf("split %d: expected %d, got %s", i, tt.want[i], s)
				}
				sum = sum.Add(s)
			}
			if !sum.Equal(math.NewInt(tt.amount)) {
				t.Errorf("splits sum to %s, expected %d", sum, tt.amount)
			}
		})
	}
}
