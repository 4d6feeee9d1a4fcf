package types

import (
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
)

// Module name and store key
const (
	ModuleName = "vault"
	StoreKey   = ModuleName
)

// Accounting constants
const (
	// BasisPoints is 100% expressed in basis points
	BasisPoints = 10000

	// MaxLockDuration is the longest lock a deposit or sponsorship may request
	MaxLockDuration = 24 * 7 * 24 * time.Hour

	// MinNameLength applies to the optional deposit name
	MinNameLength = 3
)

// SharesMultiplier is the number of shares minted per underlying unit into an
// empty pool. It gives share prices precision independent of the underlying's
// own decimals.
var SharesMultiplier = math.NewIntWithDecimal(1, 18)

// Roles
const (
	RoleSettings = "settings"
	RoleKeeper   = "keeper"
	RoleSponsor  = "sponsor"
)

// IsValidRole reports whether role is one the admin can grant
func IsValidRole(role string) bool {
	switch role {
	case RoleSettings, RoleKeeper, RoleSponsor:
		return true
	}
	return false
}

// ModuleAddress is the account holding the vault's local balance
func ModuleAddress() sdk.AccAddress {
	return authtypes.NewModuleAddress(ModuleName)
}

// Deposit is a single principal position. Sponsor records carry no shares.
type Deposit struct {
	DepositID   uint64   `json:"deposit_id"`
	GroupID     uint64   `json:"group_id"`
	Owner       string   `json:"owner"`
	Claimer     string   `json:"claimer,omitempty"`
	Amount      math.Int `json:"amount"`
	Shares      math.Int `json:"shares"`
	LockedUntil int64    `json:"locked_until"`
	IsSponsor   bool     `json:"is_sponsor"`
	Name        string   `json:"name,omitempty"`
	Data        []byte   `json:"data,omitempty"`
}

// IsLocked checks whether the deposit lock is still running at blockTime
func (d *Deposit) IsLocked(blockTime time.Time) bool {
	return blockTime.Unix() < d.LockedUntil
}

// IsEmpty reports whether the record holds neither principal nor shares
func (d *Deposit) IsEmpty() bool {
	return d.Amount.IsZero() && d.Shares.IsZero()
}

// Burn clears the record once nothing is left in it
func (d *Deposit) Burn() {
	d.Amount = math.ZeroInt()
	d.Shares = math.ZeroInt()
	d.LockedUntil = 0
}

// Claimer aggregates every non-sponsor deposit naming the same beneficiary
type Claimer struct {
	Address        string   `json:"address"`
	TotalShares    math.Int `json:"total_shares"`
	TotalPrincipal math.Int `json:"total_principal"`
	ClaimedTotal   math.Int `json:"claimed_total"`
	DepositIDs     []uint64 `json:"deposit_ids"`
}

// NewClaimer creates an empty claimer ledger entry
func NewClaimer(address string) *Claimer {
	return &Claimer{
		Address:        address,
		TotalShares:    math.ZeroInt(),
		TotalPrincipal: math.ZeroInt(),
		ClaimedTotal:   math.ZeroInt(),
	}
}

// Group links deposits created by one batch call so the owner can top them up
type Group struct {
	GroupID uint64 `json:"group_id"`
	Owner   string `json:"owner"`
}

// PoolState is the singleton aggregate of the vault
type PoolState struct {
	TotalShares        math.Int `json:"total_shares"`
	TotalPrincipal     math.Int `json:"total_principal"`
	TotalSponsored     math.Int `json:"total_sponsored"`
	AccumulatedPerfFee math.Int `json:"accumulated_perf_fee"`
	StrategyRef        string   `json:"strategy_ref,omitempty"`
	NextDepositID      uint64   `json:"next_deposit_id"`
	NextGroupID        uint64   `json:"next_group_id"`
}

// NewPoolState returns the state of a vault nobody has touched yet
func NewPoolState() *PoolState {
	return &PoolState{
		TotalShares:        math.ZeroInt(),
		TotalPrincipal:     math.ZeroInt(),
		TotalSponsored:     math.ZeroInt(),
		AccumulatedPerfFee: math.ZeroInt(),
		NextDepositID:      1,
		NextGroupID:        1,
	}
}

// ClaimSplit is one beneficiary line of a deposit call
type ClaimSplit struct {
	Beneficiary string `json:"beneficiary"`
	Pct         uint32 `json:"pct"`
	Data        []byte `json:"data,omitempty"`
}

// YieldInfo is the result of a yield computation for one claimer
type YieldInfo struct {
	ClaimableYield math.Int `json:"claimable_yield"`
	PerfFee        math.Int `json:"perf_fee"`
	SharesToBurn   math.Int `json:"shares_to_burn"`
}

// ZeroYield is returned whenever a claimer has nothing to claim
func ZeroYield() YieldInfo {
	return YieldInfo{
		ClaimableYield: math.ZeroInt(),
		PerfFee:        math.ZeroInt(),
		SharesToBurn:   math.ZeroInt(),
	}
}

// IsZero reports whether nothing would be paid or burned
func (y YieldInfo) IsZero() bool {
	return y.ClaimableYield.IsZero() && y.PerfFee.IsZero() && y.SharesToBurn.IsZero()
}

// DepositRequest carries the inputs of a Deposit or DepositForGroupId call.
// A zero LockDuration means the minimum lock period and a zero GroupID
// opens a new group.
type DepositRequest struct {
	Amount       math.Int
	InputToken   string
	LockDuration time.Duration
	Claims       []ClaimSplit
	Name         string
	GroupID      uint64
}

// SplitByClaims divides amount by claim percentage. Every split is rounded
// down except the last, which takes the remainder so nothing is lost.
func SplitByClaims(amount math.Int, claims []ClaimSplit) []math.Int {
	splits := make([]math.Int, len(claims))
	allocated := math.ZeroInt()
	for i, c := range claims {
		if i == len(claims)-1 {
			splits[i] = amount.Sub(allocated)
			break
		}
		splits[i] = MulBasisPoints(amount, c.Pct)
		allocated = allocated.Add(splits[i])
	}
	return splits
}

// PoolInfo is the queryable view of the pool at the current block
type PoolInfo struct {
	PoolState
	Snapshot                 Snapshot       `json:"snapshot"`
	Held                     math.Int       `json:"held"`
	UnderlyingMinusSponsored math.Int       `json:"underlying_minus_sponsored"`
	SponsorValue             math.Int       `json:"sponsor_value"`
	PricePerShare            math.LegacyDec `json:"price_per_share"`
	IsAtLoss                 bool           `json:"is_at_loss"`
	PendingSettlement        math.Int       `json:"pending_settlement"`
}
