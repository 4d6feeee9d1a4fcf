package cmd

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"cosmossdk.io/log"
	confixcmd "cosmossdk.io/tools/confix/cmd"
	tmcfg "github.com/cometbft/cometbft/config"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/config"
	"github.com/cosmos/cosmos-sdk/client/debug"
	"github.com/cosmos/cosmos-sdk/client/keys"
	"github.com/cosmos/cosmos-sdk/client/pruning"
	"github.com/cosmos/cosmos-sdk/client/snapshot"
	"github.com/cosmos/cosmos-sdk/server"
	serverconfig "github.com/cosmos/cosmos-sdk/server/config"
	servertypes "github.com/cosmos/cosmos-sdk/server/types"
	authcli "github.com/cosmos/cosmos-sdk/x/auth/client/cli"
	"github.com/cosmos/cosmos-sdk/x/auth/types"
	genutilcli "github.com/cosmos/cosmos-sdk/x/genutil/client/cli"
	"github.com/spf13/cobra"

	"github.com/openalpha/yield-vault/app"
	"github.com/openalpha/yield-vault/x/vault"
	vaultcli "github.com/openalpha/yield-vault/x/vault/client/cli"
	vaulttypes "github.com/openalpha/yield-vault/x/vault/types"
)

// NewRootCmd creates the vaultd root command
func NewRootCmd() *cobra.Command {
	encodingConfig := app.MakeEncodingConfig()
	clientCtx := client.Context{}.
		WithCodec(encodingConfig.Codec).
		WithInterfaceRegistry(encodingConfig.InterfaceRegistry).
		WithTxConfig(encodingConfig.TxConfig).
		WithLegacyAmino(encodingConfig.Amino).
		WithInput(os.Stdin).
		WithAccountRetriever(types.AccountRetriever{}).
		WithHomeDir(app.DefaultNodeHome).
		WithViper("VAULTD")

	rootCmd := &cobra.Command{
		Use:   "vaultd",
		Short: "Yield vault - pooled principal, yield to claimers",
		Long: `vaultd runs a chain hosting the yield vault module. Depositors keep their
principal while the yield it earns in the active strategy accrues to the
claimers they name.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SetOut(cmd.OutOrStdout())
			cmd.SetErr(cmd.ErrOrStderr())
			if err := setClientContext(cmd, clientCtx); err != nil {
				return err
			}
			appTemplate, appConfig := initAppConfig()
			return server.InterceptConfigsPreRunHandler(cmd, appTemplate, appConfig, initCometBFTConfig())
		},
	}

	rootCmd.AddCommand(
		genutilcli.InitCmd(app.ModuleBasics, app.DefaultNodeHome),
		debug.Cmd(),
		confixcmd.ConfigCommand(),
		pruning.Cmd(newApp, app.DefaultNodeHome),
		snapshot.Cmd(newApp),
	)
	server.AddCommands(rootCmd, app.DefaultNodeHome, newApp, appExport, func(*cobra.Command) {})
	rootCmd.AddCommand(
		genutilcli.Commands(encodingConfig.TxConfig, app.ModuleBasics, app.DefaultNodeHome),
		queryCommand(),
		txCommand(),
		keys.Commands(),
		VersionCmd(),
	)
	return rootCmd
}

// setClientContext layers persistent flags and client.toml over base and
// attaches the result to cmd
func setClientContext(cmd *cobra.Command, base client.Context) error {
	clientCtx, err := client.ReadPersistentCommandFlags(base.WithCmdContext(cmd.Context()), cmd.Flags())
	if err != nil {
		return err
	}
	if clientCtx, err = config.ReadFromClientConfig(clientCtx); err != nil {
		return err
	}
	return client.SetCmdClientContextHandler(clientCtx, cmd)
}

func queryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "query",
		Aliases:                    []string{"q"},
		Short:                      "Querying subcommands",
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}
	cmd.AddCommand(authcli.QueryTxsByEventsCmd(), authcli.QueryTxCmd(), vaultcli.GetQueryCmd())
	return cmd
}

func txCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "tx",
		Short:                      "Transactions subcommands",
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}
	cmd.AddCommand(authcli.GetSignCommand(), authcli.GetBroadcastCommand(), vaultcli.GetTxCmd())
	return cmd
}

func newApp(
	logger log.Logger,
	db dbm.DB,
	traceStore io.Writer,
	appOpts servertypes.AppOptions,
) servertypes.Application {
	baseappOptions := server.DefaultBaseappOptions(appOpts)
	return app.NewApp(logger, db, traceStore, true, appOpts, baseappOptions...)
}

// appExport exports the vault state at height. Only the vault module carries
// exportable state.
func appExport(
	logger log.Logger,
	db dbm.DB,
	traceStore io.Writer,
	height int64,
	forZeroHeight bool,
	jailAllowedAddrs []string,
	appOpts servertypes.AppOptions,
	modulesToExport []string,
) (servertypes.ExportedApp, error) {
	vaultApp := app.NewApp(logger, db, traceStore, height == -1, appOpts)
	if height != -1 {
		if err := vaultApp.LoadHeight(height); err != nil {
			return servertypes.ExportedApp{}, err
		}
	}

	ctx := vaultApp.NewContext(true)
	vaultGenesis := vault.NewAppModule(vaultApp.VaultKeeper).ExportGenesis(ctx, vaultApp.AppCodec())
	appState, err := json.MarshalIndent(map[string]json.RawMessage{
		vaulttypes.ModuleName: vaultGenesis,
	}, "", "  ")
	if err != nil {
		return servertypes.ExportedApp{}, err
	}

	return servertypes.ExportedApp{
		AppState: appState,
		Height:   vaultApp.LastBlockHeight(),
	}, nil
}

// initAppConfig accepts zero fee transactions in the vault denom
func initAppConfig() (string, interface{}) {
	cfg := serverconfig.DefaultConfig()
	cfg.MinGasPrices = "0" + vaulttypes.DefaultDenom
	return serverconfig.DefaultConfigTemplate, *cfg
}

// initCometBFTConfig returns the CometBFT config for a vault chain. Vault
// operations are low frequency, so blocks only need to be a few seconds apart.
func initCometBFTConfig() *tmcfg.Config {
	cfg := tmcfg.DefaultConfig()

	cfg.Consensus.TimeoutPropose = 2 * time.Second
	cfg.Consensus.TimeoutPrevote = time.Second
	cfg.Consensus.TimeoutPrecommit = time.Second
	cfg.Consensus.TimeoutCommit = 2 * time.Second
	cfg.Mempool.Size = 5000
	return cfg
}

// Version is stamped at build time with -ldflags
var Version = "v0.1.0"

// VersionCmd prints the vaultd version
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("vaultd " + Version)
		},
	}
}
