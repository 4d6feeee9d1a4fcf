package metrics

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/openalpha/yield-vault/x/vault/types"
)

func TestUpdatePool(t *testing.T) {
	c := GetCollector()
	c.UpdatePool(&types.PoolInfo{
		PoolState: types.PoolState{TotalPrincipal: math.NewInt(1000)},
		Snapshot: types.Snapshot{
			Local:    math.NewInt(100),
			Invested: math.NewInt(850),
		},
		Held:          math.NewInt(950),
		PricePerShare: math.LegacyMustNewDecFromStr("0.95"),
		IsAtLoss:      true,
	})

	tests := []struct {
		component string
		want      float64
	}{
		{"held", 950},
		{"local", 100},
		{"invested", 850},
		{"total_principal", 1000},
		{"total_shares", 0},
		{"pending_settlement", 0},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(c.PoolAmount.WithLabelValues(tt.component)); got != tt.want {
			t.Errorf("pool amount %s = %v, want %v", tt.component, got, tt.want)
		}
	}
	if got := testutil.ToFloat64(c.PricePerShare); got != 0.95 {
		t.Errorf("price per share = %v, want 0.95", got)
	}
	if got := testutil.ToFloat64(c.PoolAtLoss); got != 1 {
		t.Errorf("at loss = %v, want 1", got)
	}
}

func TestRecordCounters(t *testing.T) {
	c := GetCollector()
	before := testutil.ToFloat64(c.KeeperRunsTotal.WithLabelValues("update_invested", "ok"))
	c.RecordKeeperRun("update_invested", "ok")
	c.RecordKeeperRun("update_invested", "ok")
	if got := testutil.ToFloat64(c.KeeperRunsTotal.WithLabelValues("update_invested", "ok")); got != before+2 {
		t.Errorf("keeper runs = %v, want %v", got, before+2)
	}
}
