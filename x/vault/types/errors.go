package types

import (
	"cosmossdk.io/errors"
)

// Input validation
var (
	ErrCannotDeposit0           = errors.Register(ModuleName, 1, "cannot deposit 0")
	ErrInvalidLockPeriod        = errors.Register(ModuleName, 2, "invalid lock period")
	ErrClaimsDontAddUp          = errors.Register(ModuleName, 3, "claim percentages must add up to 10000")
	ErrClaimPercentageCannotBe0 = errors.Register(ModuleName, 4, "claim percentage cannot be 0")
	ErrClaimerCannotBe0         = errors.Register(ModuleName, 5, "claimer cannot be the zero address")
	ErrDestinationCannotBe0     = errors.Register(ModuleName, 6, "destination cannot be the zero address")
	ErrNameTooShort             = errors.Register(ModuleName, 7, "name is too short")
	ErrInvalidPercentage        = errors.Register(ModuleName, 8, "percentage must be at most 10000 basis points")
	ErrInvalidAddress           = errors.Register(ModuleName, 9, "invalid address")
	ErrInvalidAmount            = errors.Register(ModuleName, 10, "invalid amount")
	ErrInvalidParams            = errors.Register(ModuleName, 11, "invalid params")
	ErrInvalidRole              = errors.Register(ModuleName, 12, "invalid role")
)

// Authorization
var (
	ErrUnauthorized          = errors.Register(ModuleName, 20, "unauthorized")
	ErrNotOwnerOfDeposit     = errors.Register(ModuleName, 21, "sender is not the owner of the deposit")
	ErrSenderNotOwnerOfGroup = errors.Register(ModuleName, 22, "sender is not the owner of the group id")
)

// State consistency
var (
	ErrDepositNotFound                 = errors.Register(ModuleName, 30, "deposit not found")
	ErrClaimerNotFound                 = errors.Register(ModuleName, 31, "claimer not found")
	ErrAmountLocked                    = errors.Register(ModuleName, 32, "amount is still locked")
	ErrNotSponsor                      = errors.Register(ModuleName, 33, "deposit is not a sponsorship")
	ErrNotDeposit                      = errors.Register(ModuleName, 34, "sponsorship cannot be withdrawn as a deposit")
	ErrNotEnoughFunds                  = errors.Register(ModuleName, 35, "not enough funds available")
	ErrCannotWithdrawMoreThanAvailable = errors.Register(ModuleName, 36, "cannot withdraw more than available")
	ErrNoYieldToClaim                  = errors.Register(ModuleName, 38, "no yield to claim")
	ErrStrategyNotSet                  = errors.Register(ModuleName, 39, "strategy not set")
	ErrStrategyHasLockedAssets         = errors.Register(ModuleName, 40, "current strategy still holds assets")
	ErrStrategyNotTheVault             = errors.Register(ModuleName, 41, "strategy does not belong to this vault")
	ErrUnknownStrategy                 = errors.Register(ModuleName, 42, "unknown strategy")
	ErrNothingToDo                     = errors.Register(ModuleName, 43, "nothing to rebalance")
	ErrNotEnoughToRebalance            = errors.Register(ModuleName, 44, "rebalance amount below minimum")
	ErrArithmetic                      = errors.Register(ModuleName, 45, "arithmetic inconsistency")
	ErrGroupNotFound                   = errors.Register(ModuleName, 46, "group not found")
	ErrInvariantBroken                 = errors.Register(ModuleName, 47, "vault invariant broken")
	ErrAmountTooLarge                  = errors.Register(ModuleName, 48, "amount exceeds the deposit")

	ErrVaultCannotComputeSharesWithoutPrincipal = errors.Register(ModuleName, 37, "vault cannot compute shares without principal")
)

// Loss policy
var (
	ErrCannotDepositWhenClaimerInDebt  = errors.Register(ModuleName, 60, "cannot deposit when the claimer is in debt")
	ErrCannotDepositWhenYieldNegative  = errors.Register(ModuleName, 61, "cannot deposit when yield is negative")
	ErrMustUseForceWithdraw            = errors.Register(ModuleName, 62, "must use force withdraw to accept losses")
	ErrCannotWithdrawWhenYieldNegative = errors.Register(ModuleName, 63, "cannot withdraw when yield is negative")
)
