package types

import (
	"time"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Default parameter values
var (
	DefaultDenom                     = "uusdc"
	DefaultMinLockPeriod             = 2 * 7 * 24 * time.Hour
	DefaultInvestPct          uint32 = 9000
	DefaultImmediateInvestPct uint32 = 8000
	DefaultLossTolerancePct   uint32 = 200
	DefaultPerfFeePct         uint32 = 200
	DefaultMinRebalance              = math.NewInt(10)
)

// Params holds the configuration surface of the vault
type Params struct {
	Denom                   string        `json:"denom" yaml:"denom"`
	MinLockPeriod           time.Duration `json:"min_lock_period" yaml:"min_lock_period"`
	InvestPct               uint32        `json:"invest_pct" yaml:"invest_pct"`
	ImmediateInvestLimitPct uint32        `json:"immediate_invest_limit_pct" yaml:"immediate_invest_limit_pct"`
	LossTolerancePct        uint32        `json:"loss_tolerance_pct" yaml:"loss_tolerance_pct"`
	PerfFeePct              uint32        `json:"perf_fee_pct" yaml:"perf_fee_pct"`
	Treasury                string        `json:"treasury" yaml:"treasury"`
	MinRebalanceAmount      math.Int      `json:"min_rebalance_amount" yaml:"min_rebalance_amount"`
}

// DefaultParams returns the default vault params. Treasury is unset.
func DefaultParams() Params {
	return Params{
		Denom:                   DefaultDenom,
		MinLockPeriod:           DefaultMinLockPeriod,
		InvestPct:               DefaultInvestPct,
		ImmediateInvestLimitPct: DefaultImmediateInvestPct,
		LossTolerancePct:        DefaultLossTolerancePct,
		PerfFeePct:              DefaultPerfFeePct,
		MinRebalanceAmount:      DefaultMinRebalance,
	}
}

// Validate checks every bound of the params
func (p Params) Validate() error {
	if err := sdk.ValidateDenom(p.Denom); err != nil {
		return errors.Wrapf(ErrInvalidParams, "denom: %s", err)
	}
	if err := ValidateLockPeriod(p.MinLockPeriod); err != nil {
		return err
	}
	for name, pct := range map[string]uint32{
		"invest_pct":                 p.InvestPct,
		"immediate_invest_limit_pct": p.ImmediateInvestLimitPct,
		"loss_tolerance_pct":         p.LossTolerancePct,
		"perf_fee_pct":               p.PerfFeePct,
	} {
		if err := ValidatePct(pct); err != nil {
			return errors.Wrap(err, name)
		}
	}
	if p.Treasury != "" {
		if _, err := sdk.AccAddressFromBech32(p.Treasury); err != nil {
			return errors.Wrapf(ErrInvalidAddress, "treasury: %s", err)
		}
	}
	if p.MinRebalanceAmount.IsNil() || p.MinRebalanceAmount.IsNegative() {
		return errors.Wrap(ErrInvalidParams, "min rebalance amount must be non-negative")
	}
	return nil
}

// ValidatePct bounds a basis-point value to 100%
func ValidatePct(pct uint32) error {
	if pct > BasisPoints {
		return errors.Wrapf(ErrInvalidPercentage, "%d", pct)
	}
	return nil
}

// ValidateLockPeriod bounds the minimum lock period by MaxLockDuration
func ValidateLockPeriod(d time.Duration) error {
	if d < 0 || d > MaxLockDuration {
		return errors.Wrapf(ErrInvalidLockPeriod, "min lock period %s exceeds %s", d, MaxLockDuration)
	}
	return nil
}
