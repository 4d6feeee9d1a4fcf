package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/yield-vault/x/vault/types"
)

const (
	FlagFrom    = "from"
	FlagLock    = "lock"
	FlagName    = "name"
	FlagGroup   = "group"
	FlagTo      = "to"
	FlagAmounts = "amounts"
	FlagForce   = "force"
	FlagRevoke  = "revoke"
)

// GetTxCmd returns the vault transaction commands. Messages are checked
// locally and submitted to the vault API service, which executes them.
func GetTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        types.ModuleName,
		Short:                      "Vault module transaction commands",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdDeposit(),
		CmdSponsor(),
		CmdUnsponsor(),
		CmdWithdraw(),
		CmdClaimYield(),
		CmdKeeperAction(),
		CmdSetStrategy(),
		CmdSetRole(),
	)

	for _, c := range cmd.Commands() {
		c.Flags().String(FlagAPI, DefaultAPI, "vault API endpoint")
		c.Flags().String(FlagFrom, "", "Sender address")
		_ = c.MarkFlagRequired(FlagFrom)
	}

	return cmd
}

// CmdDeposit returns the command to deposit for one or more claimers
func CmdDeposit() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit [amount] [beneficiary:pct[:hexdata]]...",
		Short: "Deposit principal and assign its yield",
		Long: `Deposit principal into the vault. Each claim names a beneficiary and the
share of the deposit, in basis points, whose yield it receives. Shares must
add up to 10000.

Examples:
  vaultd tx vault deposit 1000000 cosmos1alice...:10000 --from cosmos1alice...
  vaultd tx vault deposit 1000000 cosmos1bob...:5000 cosmos1carol...:5000:cafe --lock 336h --from cosmos1alice...
  vaultd tx vault deposit 500000 cosmos1bob...:10000 --group 3 --from cosmos1alice...`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := sender(cmd)
			if err != nil {
				return err
			}
			claims, err := ParseClaims(args[1:])
			if err != nil {
				return err
			}
			lock, _ := cmd.Flags().GetDuration(FlagLock)
			name, _ := cmd.Flags().GetString(FlagName)
			group, _ := cmd.Flags().GetUint64(FlagGroup)

			deposit := types.MsgDeposit{
				Depositor:    from,
				Amount:       args[0],
				LockDuration: int64(lock / time.Second),
				Claims:       claims,
				Name:         name,
			}
			if group != 0 {
				return submitMsg(cmd, "/v1/vault/deposit/group", types.MsgDepositForGroup{MsgDeposit: deposit, GroupID: group})
			}
			return submitMsg(cmd, "/v1/vault/deposit", deposit)
		},
	}

	cmd.Flags().Duration(FlagLock, 0, "Lock duration; zero uses the minimum lock period")
	cmd.Flags().String(FlagName, "", "Optional deposit name")
	cmd.Flags().Uint64(FlagGroup, 0, "Top up an existing group you own")
	return cmd
}

// CmdSponsor returns the command to add sponsor capital
func CmdSponsor() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sponsor [amount]",
		Short: "Add sponsor capital that absorbs losses first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := sender(cmd)
			if err != nil {
				return err
			}
			lock, _ := cmd.Flags().GetDuration(FlagLock)
			return submitMsg(cmd, "/v1/vault/sponsor", types.MsgSponsor{
				Sponsor:      from,
				Amount:       args[0],
				LockDuration: int64(lock / time.Second),
			})
		},
	}

	cmd.Flags().Duration(FlagLock, 0, "Lock duration; zero uses the minimum lock period")
	return cmd
}

// CmdUnsponsor returns the command to exit sponsorships
func CmdUnsponsor() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unsponsor [deposit-ids]",
		Short: "Withdraw sponsor capital, in full or in part",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := sender(cmd)
			if err != nil {
				return err
			}
			ids, err := ParseDepositIDs(args[0])
			if err != nil {
				return err
			}
			msg := types.MsgUnsponsor{
				Sponsor:     from,
				Destination: destination(cmd, from),
				DepositIDs:  ids,
				Amounts:     amountsFlag(cmd),
			}
			msg.Force, _ = cmd.Flags().GetBool(FlagForce)
			return submitMsg(cmd, "/v1/vault/unsponsor", msg)
		},
	}

	addWithdrawFlags(cmd)
	return cmd
}

// CmdWithdraw returns the command to withdraw principal
func CmdWithdraw() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw [deposit-ids]",
		Short: "Withdraw principal from deposits",
		Long: `Withdraw principal from one or more deposits.

Examples:
  vaultd tx vault withdraw 1,2 --from cosmos1alice...
  vaultd tx vault withdraw 1 --amounts 250000 --to cosmos1cold... --from cosmos1alice...
  vaultd tx vault withdraw 1 --force --from cosmos1alice...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := sender(cmd)
			if err != nil {
				return err
			}
			ids, err := ParseDepositIDs(args[0])
			if err != nil {
				return err
			}
			msg := types.MsgWithdraw{
				Owner:       from,
				Destination: destination(cmd, from),
				DepositIDs:  ids,
				Amounts:     amountsFlag(cmd),
			}
			force, _ := cmd.Flags().GetBool(FlagForce)
			switch {
			case force && len(msg.Amounts) > 0:
				return fmt.Errorf("--%s and --%s cannot be combined", FlagForce, FlagAmounts)
			case force:
				msg.Mode = types.WithdrawModeForce
			case len(msg.Amounts) > 0:
				msg.Mode = types.WithdrawModePartial
			}
			return submitMsg(cmd, "/v1/vault/withdraw", msg)
		},
	}

	addWithdrawFlags(cmd)
	return cmd
}

// CmdClaimYield returns the command to claim yield
func CmdClaimYield() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim-yield",
		Short: "Claim the yield owed to the sender",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := sender(cmd)
			if err != nil {
				return err
			}
			return submitMsg(cmd, "/v1/vault/claim", types.MsgClaimYield{
				Claimer:     from,
				Destination: destination(cmd, from),
			})
		},
	}

	cmd.Flags().String(FlagTo, "", "Destination address (defaults to the sender)")
	return cmd
}

// CmdKeeperAction returns the command to run a keeper maintenance action
func CmdKeeperAction() *cobra.Command {
	return &cobra.Command{
		Use:   "keeper [update_invested|withdraw_performance_fees|settle_strategy]",
		Short: "Run a keeper maintenance action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := sender(cmd)
			if err != nil {
				return err
			}
			return submitMsg(cmd, "/v1/vault/keeper", types.MsgKeeperAction{Keeper: from, Action: args[0]})
		},
	}
}

// CmdSetStrategy returns the command to switch strategies
func CmdSetStrategy() *cobra.Command {
	return &cobra.Command{
		Use:   "set-strategy [name]",
		Short: "Point the vault at a registered strategy (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := sender(cmd)
			if err != nil {
				return err
			}
			return submitMsg(cmd, "/v1/vault/admin/strategy", types.MsgSetStrategy{Authority: from, Strategy: args[0]})
		},
	}
}

// CmdSetRole returns the command to grant or revoke a role
func CmdSetRole() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-role [account] [settings|keeper|sponsor]",
		Short: "Grant or revoke a role (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := sender(cmd)
			if err != nil {
				return err
			}
			revoke, _ := cmd.Flags().GetBool(FlagRevoke)
			return submitMsg(cmd, "/v1/vault/admin/role", types.MsgSetRole{
				Authority: from,
				Account:   args[0],
				Role:      args[1],
				Grant:     !revoke,
			})
		},
	}

	cmd.Flags().Bool(FlagRevoke, false, "Revoke instead of grant")
	return cmd
}

func addWithdrawFlags(cmd *cobra.Command) {
	cmd.Flags().String(FlagTo, "", "Destination address (defaults to the sender)")
	cmd.Flags().String(FlagAmounts, "", "Comma separated partial amounts, one per deposit id")
	cmd.Flags().Bool(FlagForce, false, "Accept a loss instead of failing while the pool is impaired")
}

// sender returns the --from address
func sender(cmd *cobra.Command) (string, error) {
	from, _ := cmd.Flags().GetString(FlagFrom)
	if _, err := sdk.AccAddressFromBech32(from); err != nil {
		return "", fmt.Errorf("invalid --%s address %q: %w", FlagFrom, from, err)
	}
	return from, nil
}

func destination(cmd *cobra.Command, from string) string {
	if to, _ := cmd.Flags().GetString(FlagTo); to != "" {
		return to
	}
	return from
}

func amountsFlag(cmd *cobra.Command) []string {
	s, _ := cmd.Flags().GetString(FlagAmounts)
	return ParseAmounts(s)
}

// submitMsg validates msg and posts it to the API service
func submitMsg(cmd *cobra.Command, path string, msg sdk.HasValidateBasic) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(commandContext(cmd), http.MethodPost, apiURL(cmd, path), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return callAPI(cmd, req)
}
