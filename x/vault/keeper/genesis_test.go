package keeper

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openalpha/yield-vault/x/vault/strategy"
	"github.com/openalpha/yield-vault/x/vault/types"
)

func TestGenesisRoundTrip(t *testing.T) {
	f := setupKeeper(t)
	f.keeper.RegisterStrategy(strategy.NewSynchronous("alpha", types.DefaultDenom, types.ModuleAddress(), f.bank, 0, nil))

	bot := testAddr("bot").String()
	gs := &types.GenesisState{
		Params:         f.keeper.GetParams(f.ctx),
		ActiveStrategy: "alpha",
		Keepers:        []string{bot},
	}
	require.NoError(t, f.keeper.InitGenesisState(f.ctx, gs))

	require.True(t, f.keeper.HasRole(f.ctx, types.RoleKeeper, bot))
	require.Equal(t, "alpha", f.keeper.GetPoolState(f.ctx).StrategyRef)
	require.Equal(t, gs, f.keeper.ExportGenesis(f.ctx))
}

func TestGenesisRejectsInvalidState(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*types.GenesisState)
	}{
		{"unknown strategy", func(gs *types.GenesisState) { gs.ActiveStrategy = "missing" }},
		{"bad keeper", func(gs *types.GenesisState) { gs.Keepers = []string{"nope"} }},
		{"bad params", func(gs *types.GenesisState) { gs.Params.InvestPct = types.BasisPoints + 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupKeeper(t)
			gs := &types.GenesisState{Params: f.keeper.GetParams(f.ctx)}
			tt.modify(gs)
			if err := f.keeper.InitGenesisState(f.ctx, gs); err == nil {
				t.Errorf("InitGenesisState() succeeded, want error")
			}
		})
	}
}
