package keeper

import (
	"encoding/json"
	"sync"
	"time"

	"cosmossdk.io/errors"
	"cosmossdk.io/log"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/yield-vault/x/vault/types"
)

// Store key prefixes
var (
	PoolStateKey           = []byte{0x01}
	ParamsKey              = []byte{0x02}
	DepositKeyPrefix       = []byte{0x03}
	ClaimerKeyPrefix       = []byte{0x04}
	GroupKeyPrefix         = []byte{0x05}
	RoleKeyPrefix          = []byte{0x06}
	OwnerDepositsKeyPrefix = []byte{0x07}
)

// Keeper manages the vault module state. Every state-changing entry point is
// serialized by mu and runs against a cache context that is only written
// back when the whole operation succeeds.
type Keeper struct {
	cdc        codec.BinaryCodec
	storeKey   storetypes.StoreKey
	bankKeeper types.BankKeeper
	strategies map[string]types.Strategy
	logger     log.Logger
	authority  string

	mu sync.Mutex
}

// NewKeeper creates a new vault keeper. authority is the admin account.
func NewKeeper(
	cdc codec.BinaryCodec,
	storeKey storetypes.StoreKey,
	bankKeeper types.BankKeeper,
	authority string,
	logger log.Logger,
) *Keeper {
	return &Keeper{
		cdc:        cdc,
		storeKey:   storeKey,
		bankKeeper: bankKeeper,
		strategies: make(map[string]types.Strategy),
		authority:  authority,
		logger:     logger.With("module", "x/vault"),
	}
}

// Logger returns the module logger
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// GetAuthority returns the admin address
func (k *Keeper) GetAuthority() string {
	return k.authority
}

// GetStore returns the KVStore
func (k *Keeper) GetStore(ctx sdk.Context) storetypes.KVStore {
	return ctx.KVStore(k.storeKey)
}

// atomic runs fn under the keeper lock in a cache context and commits the
// cache only when fn succeeds
func (k *Keeper) atomic(ctx sdk.Context, fn func(ctx sdk.Context) error) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	cacheCtx, write := ctx.CacheContext()
	if err := fn(cacheCtx); err != nil {
		return err
	}
	write()
	return nil
}

// InitGenesis stores params and an empty pool
func (k *Keeper) InitGenesis(ctx sdk.Context, params types.Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	k.SetParams(ctx, params)
	if k.getRaw(ctx, PoolStateKey) == nil {
		k.SetPoolState(ctx, types.NewPoolState())
	}
	return nil
}

// InitGenesisState applies a full genesis: params, the active strategy and
// the keeper role grants.
func (k *Keeper) InitGenesisState(ctx sdk.Context, gs *types.GenesisState) error {
	if err := gs.Validate(); err != nil {
		return err
	}
	if err := k.InitGenesis(ctx, gs.Params); err != nil {
		return err
	}
	if gs.ActiveStrategy != "" {
		if err := k.SetStrategy(ctx, k.authority, gs.ActiveStrategy); err != nil {
			return err
		}
	}
	for _, account := range gs.Keepers {
		if err := k.SetRole(ctx, k.authority, account, types.RoleKeeper, true); err != nil {
			return err
		}
	}
	return nil
}

// ExportGenesis returns the params, active strategy and keeper grants
func (k *Keeper) ExportGenesis(ctx sdk.Context) *types.GenesisState {
	gs := &types.GenesisState{
		Params:         k.GetParams(ctx),
		ActiveStrategy: k.GetPoolState(ctx).StrategyRef,
	}
	prefix := roleKey(types.RoleKeeper, "")
	iter := storetypes.KVStorePrefixIterator(k.GetStore(ctx), prefix)
	defer iter.Close()
	for ; iter.Valid(); iter.Next() {
		gs.Keepers = append(gs.Keepers, string(iter.Key()[len(prefix):]))
	}
	return gs
}

func (k *Keeper) getRaw(ctx sdk.Context, key []byte) []byte {
	return k.GetStore(ctx).Get(key)
}

func (k *Keeper) setJSON(ctx sdk.Context, key []byte, v interface{}) {
	bz, _ := json.Marshal(v)
	k.GetStore(ctx).Set(key, bz)
}

// ============ Params ============

// GetParams returns the params, or the defaults before genesis
func (k *Keeper) GetParams(ctx sdk.Context) types.Params {
	bz := k.getRaw(ctx, ParamsKey)
	if bz == nil {
		return types.DefaultParams()
	}
	var params types.Params
	if err := json.Unmarshal(bz, &params); err != nil {
		return types.DefaultParams()
	}
	return params
}

// SetParams saves the params
func (k *Keeper) SetParams(ctx sdk.Context, params types.Params) {
	k.setJSON(ctx, ParamsKey, params)
}

// ============ Pool State ============

// GetPoolState returns the pool aggregate
func (k *Keeper) GetPoolState(ctx sdk.Context) *types.PoolState {
	bz := k.getRaw(ctx, PoolStateKey)
	if bz == nil {
		return types.NewPoolState()
	}
	var pool types.PoolState
	if err := json.Unmarshal(bz, &pool); err != nil {
		return types.NewPoolState()
	}
	return &pool
}

// SetPoolState saves the pool aggregate
func (k *Keeper) SetPoolState(ctx sdk.Context, pool *types.PoolState) {
	k.setJSON(ctx, PoolStateKey, pool)
}

// ============ Deposits ============

func depositKey(id uint64) []byte {
	return append(append([]byte{}, DepositKeyPrefix...), sdk.Uint64ToBigEndian(id)...)
}

func ownerDepositsKey(owner string, id uint64) []byte {
	key := append(append([]byte{}, OwnerDepositsKeyPrefix...), []byte(owner+":")...)
	return append(key, sdk.Uint64ToBigEndian(id)...)
}

// SetDeposit saves a deposit and indexes it by owner
func (k *Keeper) SetDeposit(ctx sdk.Context, deposit *types.Deposit) {
	k.setJSON(ctx, depositKey(deposit.DepositID), deposit)
	k.GetStore(ctx).Set(ownerDepositsKey(deposit.Owner, deposit.DepositID), sdk.Uint64ToBigEndian(deposit.DepositID))
}

// RemoveDeposit deletes a burned deposit and its owner index
func (k *Keeper) RemoveDeposit(ctx sdk.Context, deposit *types.Deposit) {
	store := k.GetStore(ctx)
	store.Delete(depositKey(deposit.DepositID))
	store.Delete(ownerDepositsKey(deposit.Owner, deposit.DepositID))
}

// GetDeposit retrieves a deposit
func (k *Keeper) GetDeposit(ctx sdk.Context, id uint64) *types.Deposit {
	bz := k.getRaw(ctx, depositKey(id))
	if bz == nil {
		return nil
	}
	var deposit types.Deposit
	if err := json.Unmarshal(bz, &deposit); err != nil {
		return nil
	}
	return &deposit
}

// GetAllDeposits returns every live deposit ordered by id
func (k *Keeper) GetAllDeposits(ctx sdk.Context) []*types.Deposit {
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), DepositKeyPrefix)
	defer iterator.Close()

	var deposits []*types.Deposit
	for ; iterator.Valid(); iterator.Next() {
		var deposit types.Deposit
		if err := json.Unmarshal(iterator.Value(), &deposit); err != nil {
			continue
		}
		deposits = append(deposits, &deposit)
	}
	return deposits
}

// GetOwnerDeposits returns the deposits and sponsorships owned by owner
func (k *Keeper) GetOwnerDeposits(ctx sdk.Context, owner string) []*types.Deposit {
	prefix := append(append([]byte{}, OwnerDepositsKeyPrefix...), []byte(owner+":")...)
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), prefix)
	defer iterator.Close()

	var deposits []*types.Deposit
	for ; iterator.Valid(); iterator.Next() {
		if deposit := k.GetDeposit(ctx, sdk.BigEndianToUint64(iterator.Value())); deposit != nil {
			deposits = append(deposits, deposit)
		}
	}
	return deposits
}

// ============ Claimers ============

func claimerKey(address string) []byte {
	return append(append([]byte{}, ClaimerKeyPrefix...), []byte(address)...)
}

// GetClaimer retrieves a claimer ledger entry
func (k *Keeper) GetClaimer(ctx sdk.Context, address string) *types.Claimer {
	bz := k.getRaw(ctx, claimerKey(address))
	if bz == nil {
		return nil
	}
	var claimer types.Claimer
	if err := json.Unmarshal(bz, &claimer); err != nil {
		return nil
	}
	return &claimer
}

// SetClaimer saves a claimer ledger entry
func (k *Keeper) SetClaimer(ctx sdk.Context, claimer *types.Claimer) {
	k.setJSON(ctx, claimerKey(claimer.Address), claimer)
}

// GetAllClaimers returns every claimer
func (k *Keeper) GetAllClaimers(ctx sdk.Context) []*types.Claimer {
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), ClaimerKeyPrefix)
	defer iterator.Close()

	var claimers []*types.Claimer
	for ; iterator.Valid(); iterator.Next() {
		var claimer types.Claimer
		if err := json.Unmarshal(iterator.Value(), &claimer); err != nil {
			continue
		}
		claimers = append(claimers, &claimer)
	}
	return claimers
}

// GetClaimerDeposits loads the claimer's deposits in ledger order
func (k *Keeper) GetClaimerDeposits(ctx sdk.Context, claimer *types.Claimer) ([]*types.Deposit, error) {
	deposits := make([]*types.Deposit, 0, len(claimer.DepositIDs))
	for _, id := range claimer.DepositIDs {
		deposit := k.GetDeposit(ctx, id)
		if deposit == nil {
			return nil, errors.Wrapf(types.ErrDepositNotFound, "claimer %s lists deposit %d", claimer.Address, id)
		}
		deposits = append(deposits, deposit)
	}
	return deposits, nil
}

func removeID(ids []uint64, id uint64) []uint64 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

// ============ Groups ============

func groupKey(id uint64) []byte {
	return append(append([]byte{}, GroupKeyPrefix...), sdk.Uint64ToBigEndian(id)...)
}

// GetGroup retrieves a deposit group
func (k *Keeper) GetGroup(ctx sdk.Context, id uint64) *types.Group {
	bz := k.getRaw(ctx, groupKey(id))
	if bz == nil {
		return nil
	}
	var group types.Group
	if err := json.Unmarshal(bz, &group); err != nil {
		return nil
	}
	return &group
}

// SetGroup saves a deposit group
func (k *Keeper) SetGroup(ctx sdk.Context, group *types.Group) {
	k.setJSON(ctx, groupKey(group.GroupID), group)
}

// ============ Roles ============

func roleKey(role, account string) []byte {
	return append(append([]byte{}, RoleKeyPrefix...), []byte(role+":"+account)...)
}

// HasRole reports whether account holds role. The admin holds every role.
func (k *Keeper) HasRole(ctx sdk.Context, role, account string) bool {
	if account == k.authority {
		return true
	}
	return k.GetStore(ctx).Has(roleKey(role, account))
}

func (k *Keeper) requireRole(ctx sdk.Context, role, account string) error {
	if !k.HasRole(ctx, role, account) {
		return errors.Wrapf(types.ErrUnauthorized, "%s lacks the %s role", account, role)
	}
	return nil
}

func (k *Keeper) requireAdmin(account string) error {
	if account != k.authority {
		return errors.Wrapf(types.ErrUnauthorized, "expected %s, got %s", k.authority, account)
	}
	return nil
}

// ============ Strategies ============

// RegisterStrategy makes a strategy selectable by SetStrategy. It is wiring,
// not state: call it while building the app.
func (k *Keeper) RegisterStrategy(strategy types.Strategy) {
	k.strategies[strategy.Name()] = strategy
}

// GetStrategy returns the strategy the vault currently invests through, or
// nil when none is set
func (k *Keeper) GetStrategy(ctx sdk.Context) (types.Strategy, error) {
	ref := k.GetPoolState(ctx).StrategyRef
	if ref == "" {
		return nil, nil
	}
	strategy, ok := k.strategies[ref]
	if !ok {
		return nil, errors.Wrapf(types.ErrUnknownStrategy, "%q is not registered", ref)
	}
	return strategy, nil
}

// ============ Balances ============

func (k *Keeper) coins(ctx sdk.Context, amount math.Int) sdk.Coins {
	return sdk.NewCoins(sdk.NewCoin(k.GetParams(ctx).Denom, amount))
}

// LocalBalance is the underlying held by the vault account itself
func (k *Keeper) LocalBalance(ctx sdk.Context) math.Int {
	return k.bankKeeper.GetBalance(ctx, types.ModuleAddress(), k.GetParams(ctx).Denom).Amount
}

// snapshot captures balances and pool aggregates for one operation
func (k *Keeper) snapshot(ctx sdk.Context, pool *types.PoolState, strategy types.Strategy) types.Snapshot {
	invested := math.ZeroInt()
	if strategy != nil {
		invested = strategy.InvestedValue(ctx)
	}
	return types.NewSnapshot(pool, k.LocalBalance(ctx), invested)
}

// GetSnapshot captures the pool as it stands now
func (k *Keeper) GetSnapshot(ctx sdk.Context) (types.Snapshot, error) {
	strategy, err := k.GetStrategy(ctx)
	if err != nil {
		return types.Snapshot{}, err
	}
	return k.snapshot(ctx, k.GetPoolState(ctx), strategy), nil
}

func (k *Keeper) pull(ctx sdk.Context, from string, amount math.Int) error {
	addr, err := sdk.AccAddressFromBech32(from)
	if err != nil {
		return errors.Wrapf(types.ErrInvalidAddress, "%s", err)
	}
	if err := k.bankKeeper.SendCoins(ctx, addr, types.ModuleAddress(), k.coins(ctx, amount)); err != nil {
		return errors.Wrap(err, "pull funds")
	}
	return nil
}

func (k *Keeper) pay(ctx sdk.Context, to sdk.AccAddress, amount math.Int) error {
	if !amount.IsPositive() {
		return nil
	}
	if err := k.bankKeeper.SendCoins(ctx, types.ModuleAddress(), to, k.coins(ctx, amount)); err != nil {
		return errors.Wrap(types.ErrNotEnoughFunds, err.Error())
	}
	return nil
}

func parseDestination(destination string) (sdk.AccAddress, error) {
	if destination == "" {
		return nil, types.ErrDestinationCannotBe0
	}
	addr, err := sdk.AccAddressFromBech32(destination)
	if err != nil {
		return nil, errors.Wrapf(types.ErrInvalidAddress, "destination: %s", err)
	}
	if addr.Empty() {
		return nil, types.ErrDestinationCannotBe0
	}
	return addr, nil
}

func validateLock(params types.Params, lock time.Duration) (time.Duration, error) {
	if lock == 0 {
		lock = params.MinLockPeriod
	}
	if lock < params.MinLockPeriod || lock > types.MaxLockDuration {
		return 0, errors.Wrapf(types.ErrInvalidLockPeriod, "%s not in [%s, %s]", lock, params.MinLockPeriod, types.MaxLockDuration)
	}
	return lock, nil
}
