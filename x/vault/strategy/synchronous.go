package strategy

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/yield-vault/x/vault/types"
)

var _ types.Strategy = (*Synchronous)(nil)

// Synchronous fills every withdrawal immediately. An unwind fee, when set,
// is charged on the withdrawn amount and sent to the fee collector.
type Synchronous struct {
	base
	unwindFeePct uint32
	feeCollector sdk.AccAddress
}

// NewSynchronous creates a synchronous strategy
func NewSynchronous(name, denom string, vault sdk.AccAddress, bank BankKeeper, unwindFeePct uint32, feeCollector sdk.AccAddress) *Synchronous {
	if feeCollector.Empty() {
		feeCollector = AddressFor(name + "/fees")
	}
	return &Synchronous{
		base:         newBase(name, denom, vault, bank),
		unwindFeePct: unwindFeePct,
		feeCollector: feeCollector,
	}
}

// WithdrawToVault sends up to amount back to the vault, net of the unwind fee
func (s *Synchronous) WithdrawToVault(ctx sdk.Context, amount math.Int) (math.Int, error) {
	gross := math.MinInt(amount, s.balance(ctx))
	if !gross.IsPositive() {
		return math.ZeroInt(), nil
	}
	fee := types.MulBasisPoints(gross, s.unwindFeePct)
	if err := s.send(ctx, s.feeCollector, fee); err != nil {
		return math.ZeroInt(), err
	}
	net := gross.Sub(fee)
	if err := s.send(ctx, s.vault, net); err != nil {
		return math.ZeroInt(), err
	}
	return net, nil
}

// HasOutstandingAssets reports whether any capital is still deployed
func (s *Synchronous) HasOutstandingAssets(ctx sdk.Context) bool {
	return s.balance(ctx).IsPositive()
}

func (s *Synchronous) IsSynchronous() bool { return true }

func (s *Synchronous) MaxUnwindFeePct() uint32 { return s.unwindFeePct }
