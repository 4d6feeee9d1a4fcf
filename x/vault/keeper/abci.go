package keeper

import (
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// EndBlocker checks the ledger against the pool aggregate once per block.
// A broken invariant is logged, not fatal.
func (k *Keeper) EndBlocker(ctx sdk.Context) error {
	start := time.Now()
	if err := k.CheckInvariants(ctx); err != nil {
		k.logger.Error("Vault invariant broken", "block", ctx.BlockHeight(), "error", err)
	}

	snap, err := k.GetSnapshot(ctx)
	if err != nil {
		return err
	}
	k.logger.Debug("Vault EndBlocker completed",
		"block", ctx.BlockHeight(),
		"duration_ms", time.Since(start).Milliseconds(),
		"held", snap.Held().String(),
		"total_shares", snap.TotalShares.String(),
		"at_loss", snap.IsAtLoss(),
	)
	return nil
}
