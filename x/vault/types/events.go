package types

// Event types
const (
	EventTypeDepositCreated   = "vault_deposit_created"
	EventTypeDepositWithdrawn = "vault_deposit_withdrawn"
	EventTypeYieldClaimed     = "vault_yield_claimed"
	EventTypeDonation         = "vault_donation"
	EventTypeSponsored        = "vault_sponsored"
	EventTypeUnsponsored      = "vault_unsponsored"
	EventTypeTreasuryUpdated  = "vault_treasury_updated"
	EventTypeStrategyUpdated  = "vault_strategy_updated"
	EventTypeInvested         = "vault_invested"
	EventTypeDisinvested      = "vault_disinvested"
	EventTypeFeeWithdrawn     = "vault_fee_withdrawn"
	EventTypeParamsUpdated    = "vault_params_updated"
	EventTypeRoleUpdated      = "vault_role_updated"
)

// Event attribute keys
const (
	AttributeKeyDepositID     = "deposit_id"
	AttributeKeyGroupID       = "group_id"
	AttributeKeyAmount        = "amount"
	AttributeKeyShares        = "shares"
	AttributeKeyDepositor     = "depositor"
	AttributeKeyClaimer       = "claimer"
	AttributeKeyLockedUntil   = "locked_until"
	AttributeKeyData          = "data"
	AttributeKeyName          = "name"
	AttributeKeySharesBurned  = "shares_burned"
	AttributeKeyAmountPaid    = "amount_paid"
	AttributeKeyDestination   = "destination"
	AttributeKeyFullyBurned   = "fully_burned"
	AttributeKeyClaimable     = "claimable_yield"
	AttributeKeyPerfFee       = "perf_fee"
	AttributeKeyTotalHeld     = "total_underlying"
	AttributeKeyTotalShares   = "total_shares"
	AttributeKeySponsor       = "sponsor"
	AttributeKeyForced        = "forced"
	AttributeKeyTreasury      = "treasury"
	AttributeKeyStrategy      = "strategy"
	AttributeKeyRequested     = "requested"
	AttributeKeyRole          = "role"
	AttributeKeyAccount       = "account"
	AttributeKeyGranted       = "granted"
)
