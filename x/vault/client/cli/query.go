package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"

	"github.com/openalpha/yield-vault/x/vault/types"
)

const (
	FlagAPI = "api"

	DefaultAPI = "http://localhost:8080"
)

// GetQueryCmd returns the cli query commands for the vault module. Queries
// are answered by the vault API service.
func GetQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        types.ModuleName,
		Short:                      "Querying commands for the vault module",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdQueryParams(),
		CmdQueryPool(),
		CmdQueryDeposit(),
		CmdQueryDepositsByOwner(),
		CmdQueryClaimer(),
		CmdQueryYield(),
		CmdQueryGroup(),
	)

	for _, c := range cmd.Commands() {
		c.Flags().String(FlagAPI, DefaultAPI, "vault API endpoint")
	}

	return cmd
}

// CmdQueryParams queries the vault params
func CmdQueryParams() *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Query the vault params",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryAPI(cmd, "/v1/vault/params")
		},
	}
}

// CmdQueryPool queries the pool aggregate
func CmdQueryPool() *cobra.Command {
	return &cobra.Command{
		Use:   "pool",
		Short: "Query the pool totals, held balance and share price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryAPI(cmd, "/v1/vault/pool")
		},
	}
}

// CmdQueryDeposit queries a single deposit
func CmdQueryDeposit() *cobra.Command {
	return &cobra.Command{
		Use:   "deposit [deposit-id]",
		Short: "Query a deposit or sponsorship by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid deposit id: %w", err)
			}
			return queryAPI(cmd, fmt.Sprintf("/v1/vault/deposits/%d", id))
		},
	}
}

// CmdQueryDepositsByOwner lists the deposits an account owns
func CmdQueryDepositsByOwner() *cobra.Command {
	return &cobra.Command{
		Use:   "deposits-by-owner [address]",
		Short: "List the deposits and sponsorships owned by an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryAPI(cmd, "/v1/vault/owners/"+url.PathEscape(args[0])+"/deposits")
		},
	}
}

// CmdQueryClaimer queries a claimer ledger entry
func CmdQueryClaimer() *cobra.Command {
	return &cobra.Command{
		Use:   "claimer [address]",
		Short: "Query the shares, principal and claimed total of a claimer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryAPI(cmd, "/v1/vault/claimers/"+url.PathEscape(args[0]))
		},
	}
}

// CmdQueryYield previews a claim
func CmdQueryYield() *cobra.Command {
	return &cobra.Command{
		Use:   "yield [address]",
		Short: "Preview the yield a claimer could claim now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryAPI(cmd, "/v1/vault/claimers/"+url.PathEscape(args[0])+"/yield")
		},
	}
}

// CmdQueryGroup queries a deposit group
func CmdQueryGroup() *cobra.Command {
	return &cobra.Command{
		Use:   "group [group-id]",
		Short: "Query a deposit group and its deposits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid group id: %w", err)
			}
			return queryAPI(cmd, fmt.Sprintf("/v1/vault/groups/%d", id))
		},
	}
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// queryAPI fetches path from the API service and prints the indented body
func queryAPI(cmd *cobra.Command, path string) error {
	req, err := http.NewRequestWithContext(commandContext(cmd), http.MethodGet, apiURL(cmd, path), nil)
	if err != nil {
		return err
	}
	return callAPI(cmd, req)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func apiURL(cmd *cobra.Command, path string) string {
	endpoint, _ := cmd.Flags().GetString(FlagAPI)
	if endpoint == "" {
		endpoint = DefaultAPI
	}
	return strings.TrimSuffix(endpoint, "/") + path
}

// callAPI sends req and prints the indented response body. Non 200 answers
// become errors carrying the body.
func callAPI(cmd *cobra.Command, req *http.Request) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: %s: %s", req.Method, req.URL.Path, resp.Status, strings.TrimSpace(string(body)))
	}

	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		out.Reset()
		out.Write(body)
	}
	out.WriteByte('\n')
	_, err = cmd.OutOrStdout().Write(out.Bytes())
	return err
}
