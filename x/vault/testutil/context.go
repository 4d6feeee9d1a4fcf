package testutil

import (
	"fmt"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Store keys used by the in-memory environment
var (
	VaultStoreKey    = storetypes.NewKVStoreKey("vault")
	StrategyStoreKey = storetypes.NewKVStoreKey("strategies")
	BankStoreKey     = storetypes.NewKVStoreKey("bank")
)

// NewContext mounts keys on a fresh in-memory multistore and returns a
// context at height 1 and blockTime.
func NewContext(blockTime time.Time, keys ...storetypes.StoreKey) (sdk.Context, storetypes.CommitMultiStore) {
	db := dbm.NewMemDB()
	stateStore := store.NewCommitMultiStore(db, log.NewNopLogger(), metrics.NewNoOpMetrics())
	for _, key := range keys {
		stateStore.MountStoreWithDB(key, storetypes.StoreTypeIAVL, db)
	}
	if err := stateStore.LoadLatestVersion(); err != nil {
		panic(fmt.Sprintf("failed to load store: %v", err))
	}

	ctx := sdk.NewContext(stateStore, cmtproto.Header{
		Time:   blockTime,
		Height: 1,
	}, false, log.NewNopLogger())
	return ctx, stateStore
}
