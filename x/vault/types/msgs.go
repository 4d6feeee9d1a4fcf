package types

import (
	"fmt"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Message types
const (
	TypeMsgDeposit                 = "deposit"
	TypeMsgDepositForGroup         = "deposit_for_group"
	TypeMsgSponsor                 = "sponsor"
	TypeMsgUnsponsor               = "unsponsor"
	TypeMsgPartialUnsponsor        = "partial_unsponsor"
	TypeMsgForceUnsponsor          = "force_unsponsor"
	TypeMsgWithdraw                = "withdraw"
	TypeMsgForceWithdraw           = "force_withdraw"
	TypeMsgPartialWithdraw         = "partial_withdraw"
	TypeMsgClaimYield              = "claim_yield"
	TypeMsgUpdateInvested          = "update_invested"
	TypeMsgWithdrawPerformanceFees = "withdraw_performance_fees"
	TypeMsgSettleStrategy          = "settle_strategy"
	TypeMsgUpdateParams            = "update_params"
	TypeMsgSetStrategy             = "set_strategy"
	TypeMsgSetRole                 = "set_role"
)

func validateAddress(field, addr string) error {
	if _, err := sdk.AccAddressFromBech32(addr); err != nil {
		return errors.Wrapf(ErrInvalidAddress, "%s: %s", field, err)
	}
	return nil
}

func validateDestination(addr string) error {
	if addr == "" {
		return ErrDestinationCannotBe0
	}
	acc, err := sdk.AccAddressFromBech32(addr)
	if err != nil {
		return errors.Wrapf(ErrInvalidAddress, "destination: %s", err)
	}
	if acc.Empty() {
		return ErrDestinationCannotBe0
	}
	return nil
}

// ParseAmount parses a positive integer amount
func ParseAmount(s string) (math.Int, error) {
	amount, ok := math.NewIntFromString(s)
	if !ok {
		return math.ZeroInt(), errors.Wrapf(ErrInvalidAmount, "%q", s)
	}
	if amount.IsNegative() {
		return math.ZeroInt(), errors.Wrapf(ErrInvalidAmount, "negative amount %s", s)
	}
	return amount, nil
}

func validateDepositIDs(ids []uint64) error {
	if len(ids) == 0 {
		return errors.Wrap(ErrDepositNotFound, "no deposit ids")
	}
	return nil
}

// ValidateClaims checks a claim table: every beneficiary set, every
// percentage non-zero and the total exactly 100%
func ValidateClaims(claims []ClaimSplit) error {
	var total uint32
	for _, c := range claims {
		if c.Beneficiary == "" {
			return ErrClaimerCannotBe0
		}
		acc, err := sdk.AccAddressFromBech32(c.Beneficiary)
		if err != nil {
			return errors.Wrapf(ErrInvalidAddress, "beneficiary: %s", err)
		}
		if acc.Empty() {
			return ErrClaimerCannotBe0
		}
		if c.Pct == 0 {
			return ErrClaimPercentageCannotBe0
		}
		total += c.Pct
	}
	if total != BasisPoints {
		return errors.Wrapf(ErrClaimsDontAddUp, "got %d", total)
	}
	return nil
}

// ValidateName accepts an empty name or one of at least MinNameLength bytes
func ValidateName(name string) error {
	if name != "" && len(name) < MinNameLength {
		return errors.Wrapf(ErrNameTooShort, "%q", name)
	}
	return nil
}

// MsgDeposit defines the Deposit message. LockDuration is in seconds; zero
// means the minimum lock period.
type MsgDeposit struct {
	Depositor    string       `json:"depositor"`
	Amount       string       `json:"amount"`
	InputToken   string       `json:"input_token,omitempty"`
	LockDuration int64        `json:"lock_duration"`
	Claims       []ClaimSplit `json:"claims"`
	Name         string       `json:"name,omitempty"`
}

// Route implements sdk.Msg
func (msg MsgDeposit) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgDeposit) Type() string { return TypeMsgDeposit }

// ValidateBasic implements sdk.Msg
func (msg MsgDeposit) ValidateBasic() error {
	if err := validateAddress("depositor", msg.Depositor); err != nil {
		return err
	}
	amount, err := ParseAmount(msg.Amount)
	if err != nil {
		return err
	}
	if amount.IsZero() {
		return ErrCannotDeposit0
	}
	if msg.LockDuration < 0 {
		return ErrInvalidLockPeriod
	}
	if err := ValidateClaims(msg.Claims); err != nil {
		return err
	}
	return ValidateName(msg.Name)
}

// GetSigners implements sdk.Msg
func (msg MsgDeposit) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Depositor)
	return []sdk.AccAddress{addr}
}

// ProtoMessage implements proto.Message
func (*MsgDeposit) ProtoMessage() {}

// XXX_MessageName returns the message type URL for MsgDeposit
func (*MsgDeposit) XXX_MessageName() string { return "vault.v1.MsgDeposit" }

// Reset implements proto.Message
func (msg *MsgDeposit) Reset() { *msg = MsgDeposit{} }

// String implements proto.Message
func (msg MsgDeposit) String() string {
	return fmt.Sprintf("MsgDeposit{Depositor: %s, Amount: %s, Claims: %d}", msg.Depositor, msg.Amount, len(msg.Claims))
}

// MsgDepositResponse lists the deposits created by one call
type MsgDepositResponse struct {
	GroupID    uint64   `json:"group_id"`
	DepositIDs []uint64 `json:"deposit_ids"`
	Shares     []string `json:"shares"`
}

// MsgDepositForGroup tops up an existing group
type MsgDepositForGroup struct {
	MsgDeposit
	GroupID uint64 `json:"group_id"`
}

// Type implements sdk.Msg
func (msg MsgDepositForGroup) Type() string { return TypeMsgDepositForGroup }

// ValidateBasic implements sdk.Msg
func (msg MsgDepositForGroup) ValidateBasic() error {
	if msg.GroupID == 0 {
		return ErrGroupNotFound
	}
	return msg.MsgDeposit.ValidateBasic()
}

// ProtoMessage implements proto.Message
func (*MsgDepositForGroup) ProtoMessage() {}

// XXX_MessageName returns the message type URL for MsgDepositForGroup
func (*MsgDepositForGroup) XXX_MessageName() string { return "vault.v1.MsgDepositForGroup" }

// Reset implements proto.Message
func (msg *MsgDepositForGroup) Reset() { *msg = MsgDepositForGroup{} }

// String implements proto.Message
func (msg MsgDepositForGroup) String() string {
	return fmt.Sprintf("MsgDepositForGroup{Depositor: %s, GroupID: %d, Amount: %s}", msg.Depositor, msg.GroupID, msg.Amount)
}

// MsgSponsor defines the Sponsor message
type MsgSponsor struct {
	Sponsor      string `json:"sponsor"`
	Amount       string `json:"amount"`
	LockDuration int64  `json:"lock_duration"`
}

// Route implements sdk.Msg
func (msg MsgSponsor) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgSponsor) Type() string { return TypeMsgSponsor }

// ValidateBasic implements sdk.Msg
func (msg MsgSponsor) ValidateBasic() error {
	if err := validateAddress("sponsor", msg.Sponsor); err != nil {
		return err
	}
	amount, err := ParseAmount(msg.Amount)
	if err != nil {
		return err
	}
	if amount.IsZero() {
		return ErrCannotDeposit0
	}
	if msg.LockDuration < 0 {
		return ErrInvalidLockPeriod
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgSponsor) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Sponsor)
	return []sdk.AccAddress{addr}
}

// ProtoMessage implements proto.Message
func (*MsgSponsor) ProtoMessage() {}

// XXX_MessageName returns the message type URL for MsgSponsor
func (*MsgSponsor) XXX_MessageName() string { return "vault.v1.MsgSponsor" }

// Reset implements proto.Message
func (msg *MsgSponsor) Reset() { *msg = MsgSponsor{} }

// String implements proto.Message
func (msg MsgSponsor) String() string {
	return fmt.Sprintf("MsgSponsor{Sponsor: %s, Amount: %s}", msg.Sponsor, msg.Amount)
}

// MsgSponsorResponse returns the sponsorship record id
type MsgSponsorResponse struct {
	DepositID   uint64 `json:"deposit_id"`
	LockedUntil int64  `json:"locked_until"`
}

// MsgUnsponsor exits sponsorships. Amounts is only read for a partial exit,
// one entry per deposit id. Force takes the loss-adjusted value instead of
// failing when the pool is impaired.
type MsgUnsponsor struct {
	Sponsor     string   `json:"sponsor"`
	Destination string   `json:"destination"`
	DepositIDs  []uint64 `json:"deposit_ids"`
	Amounts     []string `json:"amounts,omitempty"`
	Force       bool     `json:"force,omitempty"`
}

// Route implements sdk.Msg
func (msg MsgUnsponsor) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgUnsponsor) Type() string {
	switch {
	case msg.Force:
		return TypeMsgForceUnsponsor
	case len(msg.Amounts) > 0:
		return TypeMsgPartialUnsponsor
	}
	return TypeMsgUnsponsor
}

// ValidateBasic implements sdk.Msg
func (msg MsgUnsponsor) ValidateBasic() error {
	if err := validateAddress("sponsor", msg.Sponsor); err != nil {
		return err
	}
	if err := validateDestination(msg.Destination); err != nil {
		return err
	}
	if err := validateDepositIDs(msg.DepositIDs); err != nil {
		return err
	}
	return validatePartialAmounts(msg.DepositIDs, msg.Amounts)
}

// GetSigners implements sdk.Msg
func (msg MsgUnsponsor) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Sponsor)
	return []sdk.AccAddress{addr}
}

// ProtoMessage implements proto.Message
func (*MsgUnsponsor) ProtoMessage() {}

// XXX_MessageName returns the message type URL for MsgUnsponsor
func (*MsgUnsponsor) XXX_MessageName() string { return "vault.v1.MsgUnsponsor" }

// Reset implements proto.Message
func (msg *MsgUnsponsor) Reset() { *msg = MsgUnsponsor{} }

// String implements proto.Message
func (msg MsgUnsponsor) String() string {
	return fmt.Sprintf("MsgUnsponsor{Sponsor: %s, DepositIDs: %v, Force: %t}", msg.Sponsor, msg.DepositIDs, msg.Force)
}

// WithdrawMode selects the withdrawal path
type WithdrawMode int

const (
	WithdrawModeNormal WithdrawMode = iota
	WithdrawModeForce
	WithdrawModePartial
)

// String returns the mode name
func (m WithdrawMode) String() string {
	switch m {
	case WithdrawModeForce:
		return "force"
	case WithdrawModePartial:
		return "partial"
	default:
		return "normal"
	}
}

// MsgWithdraw covers Withdraw, ForceWithdraw and PartialWithdraw
type MsgWithdraw struct {
	Owner       string       `json:"owner"`
	Destination string       `json:"destination"`
	DepositIDs  []uint64     `json:"deposit_ids"`
	Amounts     []string     `json:"amounts,omitempty"`
	Mode        WithdrawMode `json:"mode"`
}

// Route implements sdk.Msg
func (msg MsgWithdraw) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgWithdraw) Type() string {
	switch msg.Mode {
	case WithdrawModeForce:
		return TypeMsgForceWithdraw
	case WithdrawModePartial:
		return TypeMsgPartialWithdraw
	}
	return TypeMsgWithdraw
}

// ValidateBasic implements sdk.Msg
func (msg MsgWithdraw) ValidateBasic() error {
	if err := validateAddress("owner", msg.Owner); err != nil {
		return err
	}
	if err := validateDestination(msg.Destination); err != nil {
		return err
	}
	if err := validateDepositIDs(msg.DepositIDs); err != nil {
		return err
	}
	if msg.Mode == WithdrawModePartial && len(msg.Amounts) == 0 {
		return errors.Wrap(ErrInvalidAmount, "partial withdraw needs amounts")
	}
	return validatePartialAmounts(msg.DepositIDs, msg.Amounts)
}

// GetSigners implements sdk.Msg
func (msg MsgWithdraw) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Owner)
	return []sdk.AccAddress{addr}
}

// ProtoMessage implements proto.Message
func (*MsgWithdraw) ProtoMessage() {}

// XXX_MessageName returns the message type URL for MsgWithdraw
func (*MsgWithdraw) XXX_MessageName() string { return "vault.v1.MsgWithdraw" }

// Reset implements proto.Message
func (msg *MsgWithdraw) Reset() { *msg = MsgWithdraw{} }

// String implements proto.Message
func (msg MsgWithdraw) String() string {
	return fmt.Sprintf("MsgWithdraw{Owner: %s, DepositIDs: %v, Mode: %s}", msg.Owner, msg.DepositIDs, msg.Mode)
}

// MsgWithdrawResponse returns the total paid out
type MsgWithdrawResponse struct {
	AmountPaid   string `json:"amount_paid"`
	SharesBurned string `json:"shares_burned"`
}

func validatePartialAmounts(ids []uint64, amounts []string) error {
	if len(amounts) == 0 {
		return nil
	}
	if len(amounts) != len(ids) {
		return errors.Wrapf(ErrInvalidAmount, "%d amounts for %d deposits", len(amounts), len(ids))
	}
	for _, a := range amounts {
		if _, err := ParseAmount(a); err != nil {
			return err
		}
	}
	return nil
}

// MsgClaimYield pays the claimer's yield to destination
type MsgClaimYield struct {
	Claimer     string `json:"claimer"`
	Destination string `json:"destination"`
}

// Route implements sdk.Msg
func (msg MsgClaimYield) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgClaimYield) Type() string { return TypeMsgClaimYield }

// ValidateBasic implements sdk.Msg
func (msg MsgClaimYield) ValidateBasic() error {
	if err := validateAddress("claimer", msg.Claimer); err != nil {
		return err
	}
	return validateDestination(msg.Destination)
}

// GetSigners implements sdk.Msg
func (msg MsgClaimYield) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Claimer)
	return []sdk.AccAddress{addr}
}

// ProtoMessage implements proto.Message
func (*MsgClaimYield) ProtoMessage() {}

// XXX_MessageName returns the message type URL for MsgClaimYield
func (*MsgClaimYield) XXX_MessageName() string { return "vault.v1.MsgClaimYield" }

// Reset implements proto.Message
func (msg *MsgClaimYield) Reset() { *msg = MsgClaimYield{} }

// String implements proto.Message
func (msg MsgClaimYield) String() string {
	return fmt.Sprintf("MsgClaimYield{Claimer: %s, Destination: %s}", msg.Claimer, msg.Destination)
}

// MsgClaimYieldResponse mirrors YieldInfo as strings
type MsgClaimYieldResponse struct {
	ClaimableYield string `json:"claimable_yield"`
	PerfFee        string `json:"perf_fee"`
	SharesBurned   string `json:"shares_burned"`
}

// Keeper-role actions
const (
	KeeperActionUpdateInvested          = TypeMsgUpdateInvested
	KeeperActionWithdrawPerformanceFees = TypeMsgWithdrawPerformanceFees
	KeeperActionSettleStrategy          = TypeMsgSettleStrategy
)

// MsgKeeperAction triggers one keeper-role maintenance action
type MsgKeeperAction struct {
	Keeper string `json:"keeper"`
	Action string `json:"action"`
}

// Route implements sdk.Msg
func (msg MsgKeeperAction) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgKeeperAction) Type() string { return msg.Action }

// ValidateBasic implements sdk.Msg
func (msg MsgKeeperAction) ValidateBasic() error {
	if err := validateAddress("keeper", msg.Keeper); err != nil {
		return err
	}
	switch msg.Action {
	case KeeperActionUpdateInvested, KeeperActionWithdrawPerformanceFees, KeeperActionSettleStrategy:
		return nil
	}
	return errors.Wrapf(ErrInvalidParams, "unknown keeper action %q", msg.Action)
}

// GetSigners implements sdk.Msg
func (msg MsgKeeperAction) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Keeper)
	return []sdk.AccAddress{addr}
}

// ProtoMessage implements proto.Message
func (*MsgKeeperAction) ProtoMessage() {}

// XXX_MessageName returns the message type URL for MsgKeeperAction
func (*MsgKeeperAction) XXX_MessageName() string { return "vault.v1.MsgKeeperAction" }

// Reset implements proto.Message
func (msg *MsgKeeperAction) Reset() { *msg = MsgKeeperAction{} }

// String implements proto.Message
func (msg MsgKeeperAction) String() string {
	return fmt.Sprintf("MsgKeeperAction{Keeper: %s, Action: %s}", msg.Keeper, msg.Action)
}

// MsgKeeperActionResponse carries the amount actually moved
type MsgKeeperActionResponse struct {
	Amount string `json:"amount"`
}

// MsgUpdateParams replaces the vault params. Signed by a settings-role account.
type MsgUpdateParams struct {
	Authority string `json:"authority"`
	Params    Params `json:"params"`
}

// Route implements sdk.Msg
func (msg MsgUpdateParams) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgUpdateParams) Type() string { return TypeMsgUpdateParams }

// ValidateBasic implements sdk.Msg
func (msg MsgUpdateParams) ValidateBasic() error {
	if err := validateAddress("authority", msg.Authority); err != nil {
		return err
	}
	return msg.Params.Validate()
}

// GetSigners implements sdk.Msg
func (msg MsgUpdateParams) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Authority)
	return []sdk.AccAddress{addr}
}

// ProtoMessage implements proto.Message
func (*MsgUpdateParams) ProtoMessage() {}

// XXX_MessageName returns the message type URL for MsgUpdateParams
func (*MsgUpdateParams) XXX_MessageName() string { return "vault.v1.MsgUpdateParams" }

// Reset implements proto.Message
func (msg *MsgUpdateParams) Reset() { *msg = MsgUpdateParams{} }

// String implements proto.Message
func (msg MsgUpdateParams) String() string {
	return fmt.Sprintf("MsgUpdateParams{Authority: %s}", msg.Authority)
}

// MsgUpdateParamsResponse is empty
type MsgUpdateParamsResponse struct{}

// MsgSetStrategy points the vault at a registered strategy
type MsgSetStrategy struct {
	Authority string `json:"authority"`
	Strategy  string `json:"strategy"`
}

// Route implements sdk.Msg
func (msg MsgSetStrategy) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgSetStrategy) Type() string { return TypeMsgSetStrategy }

// ValidateBasic implements sdk.Msg
func (msg MsgSetStrategy) ValidateBasic() error {
	if err := validateAddress("authority", msg.Authority); err != nil {
		return err
	}
	if msg.Strategy == "" {
		return ErrUnknownStrategy
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgSetStrategy) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Authority)
	return []sdk.AccAddress{addr}
}

// ProtoMessage implements proto.Message
func (*MsgSetStrategy) ProtoMessage() {}

// XXX_MessageName returns the message type URL for MsgSetStrategy
func (*MsgSetStrategy) XXX_MessageName() string { return "vault.v1.MsgSetStrategy" }

// Reset implements proto.Message
func (msg *MsgSetStrategy) Reset() { *msg = MsgSetStrategy{} }

// String implements proto.Message
func (msg MsgSetStrategy) String() string {
	return fmt.Sprintf("MsgSetStrategy{Authority: %s, Strategy: %s}", msg.Authority, msg.Strategy)
}

// MsgSetStrategyResponse is empty
type MsgSetStrategyResponse struct{}

// MsgSetRole grants or revokes a role
type MsgSetRole struct {
	Authority string `json:"authority"`
	Account   string `json:"account"`
	Role      string `json:"role"`
	Grant     bool   `json:"grant"`
}

// Route implements sdk.Msg
func (msg MsgSetRole) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgSetRole) Type() string { return TypeMsgSetRole }

// ValidateBasic implements sdk.Msg
func (msg MsgSetRole) ValidateBasic() error {
	if err := validateAddress("authority", msg.Authority); err != nil {
		return err
	}
	if err := validateAddress("account", msg.Account); err != nil {
		return err
	}
	if !IsValidRole(msg.Role) {
		return errors.Wrapf(ErrInvalidRole, "%q", msg.Role)
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgSetRole) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Authority)
	return []sdk.AccAddress{addr}
}

// ProtoMessage implements proto.Message
func (*MsgSetRole) ProtoMessage() {}

// XXX_MessageName returns the message type URL for MsgSetRole
func (*MsgSetRole) XXX_MessageName() string { return "vault.v1.MsgSetRole" }

// Reset implements proto.Message
func (msg *MsgSetRole) Reset() { *msg = MsgSetRole{} }

// String implements proto.Message
func (msg MsgSetRole) String() string {
	return fmt.Sprintf("MsgSetRole{Account: %s, Role: %s, Grant: %t}", msg.Account, msg.Role, msg.Grant)
}

// MsgSetRoleResponse is empty
type MsgSetRoleResponse struct{}
