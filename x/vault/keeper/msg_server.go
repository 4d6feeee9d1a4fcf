package keeper

import (
	"context"
	"time"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/yield-vault/x/vault/types"
)

// MsgServer defines the vault MsgServer
type MsgServer struct {
	keeper *Keeper
}

// NewMsgServerImpl creates a new MsgServer instance
func NewMsgServerImpl(keeper *Keeper) *MsgServer {
	return &MsgServer{keeper: keeper}
}

func depositRequest(msg types.MsgDeposit, groupID uint64) (types.DepositRequest, error) {
	amount, err := types.ParseAmount(msg.Amount)
	if err != nil {
		return types.DepositRequest{}, err
	}
	return types.DepositRequest{
		Amount:       amount,
		InputToken:   msg.InputToken,
		LockDuration: time.Duration(msg.LockDuration) * time.Second,
		Claims:       msg.Claims,
		Name:         msg.Name,
		GroupID:      groupID,
	}, nil
}

func depositResponse(deposits []*types.Deposit) *types.MsgDepositResponse {
	resp := &types.MsgDepositResponse{}
	for _, d := range deposits {
		resp.GroupID = d.GroupID
		resp.DepositIDs = append(resp.DepositIDs, d.DepositID)
		resp.Shares = append(resp.Shares, d.Shares.String())
	}
	return resp
}

func parseAmounts(amounts []string) ([]math.Int, error) {
	if len(amounts) == 0 {
		return nil, nil
	}
	parsed := make([]math.Int, len(amounts))
	for i, a := range amounts {
		amount, err := types.ParseAmount(a)
		if err != nil {
			return nil, err
		}
		parsed[i] = amount
	}
	return parsed, nil
}

// Deposit handles MsgDeposit
func (m *MsgServer) Deposit(ctx context.Context, msg *types.MsgDeposit) (*types.MsgDepositResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	req, err := depositRequest(*msg, 0)
	if err != nil {
		return nil, err
	}

	deposits, err := m.keeper.Deposit(sdk.UnwrapSDKContext(ctx), msg.Depositor, req)
	if err != nil {
		return nil, err
	}
	return depositResponse(deposits), nil
}

// DepositForGroup handles MsgDepositForGroup
func (m *MsgServer) DepositForGroup(ctx context.Context, msg *types.MsgDepositForGroup) (*types.MsgDepositResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	req, err := depositRequest(msg.MsgDeposit, msg.GroupID)
	if err != nil {
		return nil, err
	}

	deposits, err := m.keeper.Deposit(sdk.UnwrapSDKContext(ctx), msg.Depositor, req)
	if err != nil {
		return nil, err
	}
	return depositResponse(deposits), nil
}

// Sponsor handles MsgSponsor
func (m *MsgServer) Sponsor(ctx context.Context, msg *types.MsgSponsor) (*types.MsgSponsorResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(msg.Amount)
	if err != nil {
		return nil, err
	}

	deposit, err := m.keeper.Sponsor(sdk.UnwrapSDKContext(ctx), msg.Sponsor, amount, time.Duration(msg.LockDuration)*time.Second)
	if err != nil {
		return nil, err
	}
	return &types.MsgSponsorResponse{
		DepositID:   deposit.DepositID,
		LockedUntil: deposit.LockedUntil,
	}, nil
}

// Unsponsor handles MsgUnsponsor, including the partial and forced forms
func (m *MsgServer) Unsponsor(ctx context.Context, msg *types.MsgUnsponsor) (*types.MsgWithdrawResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	amounts, err := parseAmounts(msg.Amounts)
	if err != nil {
		return nil, err
	}

	paid, err := m.keeper.Unsponsor(sdk.UnwrapSDKContext(ctx), msg.Sponsor, msg.Destination, msg.DepositIDs, amounts, msg.Force)
	if err != nil {
		return nil, err
	}
	return &types.MsgWithdrawResponse{
		AmountPaid:   paid.String(),
		SharesBurned: math.ZeroInt().String(),
	}, nil
}

// Withdraw handles MsgWithdraw in all three modes
func (m *MsgServer) Withdraw(ctx context.Context, msg *types.MsgWithdraw) (*types.MsgWithdrawResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	amounts, err := parseAmounts(msg.Amounts)
	if err != nil {
		return nil, err
	}

	result, err := m.keeper.Withdraw(sdk.UnwrapSDKContext(ctx), msg.Owner, msg.Destination, msg.DepositIDs, amounts, msg.Mode)
	if err != nil {
		return nil, err
	}
	return &types.MsgWithdrawResponse{
		AmountPaid:   result.AmountPaid.String(),
		SharesBurned: result.SharesBurned.String(),
	}, nil
}

// ClaimYield handles MsgClaimYield
func (m *MsgServer) ClaimYield(ctx context.Context, msg *types.MsgClaimYield) (*types.MsgClaimYieldResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}

	info, err := m.keeper.ClaimYield(sdk.UnwrapSDKContext(ctx), msg.Claimer, msg.Destination)
	if err != nil {
		return nil, err
	}
	return &types.MsgClaimYieldResponse{
		ClaimableYield: info.ClaimableYield.String(),
		PerfFee:        info.PerfFee.String(),
		SharesBurned:   info.SharesToBurn.String(),
	}, nil
}

// KeeperAction handles MsgKeeperAction
func (m *MsgServer) KeeperAction(ctx context.Context, msg *types.MsgKeeperAction) (*types.MsgKeeperActionResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	var (
		amount math.Int
		err    error
	)
	switch msg.Action {
	case types.KeeperActionUpdateInvested:
		amount, err = m.keeper.UpdateInvested(sdkCtx, msg.Keeper)
	case types.KeeperActionWithdrawPerformanceFees:
		amount, err = m.keeper.WithdrawPerformanceFees(sdkCtx, msg.Keeper)
	case types.KeeperActionSettleStrategy:
		amount, err = m.keeper.SettleStrategy(sdkCtx, msg.Keeper)
	default:
		return nil, errors.Wrapf(types.ErrInvalidParams, "unknown keeper action %q", msg.Action)
	}
	if err != nil {
		return nil, err
	}
	return &types.MsgKeeperActionResponse{Amount: amount.String()}, nil
}

// UpdateParams handles MsgUpdateParams
func (m *MsgServer) UpdateParams(ctx context.Context, msg *types.MsgUpdateParams) (*types.MsgUpdateParamsResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	if err := m.keeper.UpdateParams(sdk.UnwrapSDKContext(ctx), msg.Authority, msg.Params); err != nil {
		return nil, err
	}
	return &types.MsgUpdateParamsResponse{}, nil
}

// SetStrategy handles MsgSetStrategy
func (m *MsgServer) SetStrategy(ctx context.Context, msg *types.MsgSetStrategy) (*types.MsgSetStrategyResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	if err := m.keeper.SetStrategy(sdk.UnwrapSDKContext(ctx), msg.Authority, msg.Strategy); err != nil {
		return nil, err
	}
	return &types.MsgSetStrategyResponse{}, nil
}

// SetRole handles MsgSetRole
func (m *MsgServer) SetRole(ctx context.Context, msg *types.MsgSetRole) (*types.MsgSetRoleResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	if err := m.keeper.SetRole(sdk.UnwrapSDKContext(ctx), msg.Authority, msg.Account, msg.Role, msg.Grant); err != nil {
		return nil, err
	}
	return &types.MsgSetRoleResponse{}, nil
}
