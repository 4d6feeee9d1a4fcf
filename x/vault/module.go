package vault

import (
	"encoding/json"

	"cosmossdk.io/core/appmodule"
	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/codec"
	cdctypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/module"
	"github.com/grpc-ecosystem/grpc-gateway/runtime"
	"github.com/spf13/cobra"

	"github.com/openalpha/yield-vault/x/vault/client/cli"
	"github.com/openalpha/yield-vault/x/vault/keeper"
	"github.com/openalpha/yield-vault/x/vault/types"
)

const (
	ModuleName = types.ModuleName
)

var (
	_ module.AppModuleBasic = AppModuleBasic{}
	_ appmodule.AppModule   = AppModule{}
)

// AppModuleBasic defines the basic application module for the vault
type AppModuleBasic struct{}

// Name returns the module's name
func (AppModuleBasic) Name() string {
	return ModuleName
}

// RegisterLegacyAminoCodec registers the module's types on the given LegacyAmino codec
func (AppModuleBasic) RegisterLegacyAminoCodec(cdc *codec.LegacyAmino) {
	cdc.RegisterConcrete(&types.MsgDeposit{}, "vault/MsgDeposit", nil)
	cdc.RegisterConcrete(&types.MsgDepositForGroup{}, "vault/MsgDepositForGroup", nil)
	cdc.RegisterConcrete(&types.MsgSponsor{}, "vault/MsgSponsor", nil)
	cdc.RegisterConcrete(&types.MsgUnsponsor{}, "vault/MsgUnsponsor", nil)
	cdc.RegisterConcrete(&types.MsgWithdraw{}, "vault/MsgWithdraw", nil)
	cdc.RegisterConcrete(&types.MsgClaimYield{}, "vault/MsgClaimYield", nil)
	cdc.RegisterConcrete(&types.MsgKeeperAction{}, "vault/MsgKeeperAction", nil)
	cdc.RegisterConcrete(&types.MsgUpdateParams{}, "vault/MsgUpdateParams", nil)
	cdc.RegisterConcrete(&types.MsgSetStrategy{}, "vault/MsgSetStrategy", nil)
	cdc.RegisterConcrete(&types.MsgSetRole{}, "vault/MsgSetRole", nil)
}

// RegisterInterfaces registers the module's interface types
func (AppModuleBasic) RegisterInterfaces(registry cdctypes.InterfaceRegistry) {
	registry.RegisterImplementations((*sdk.Msg)(nil),
		&types.MsgDeposit{},
		&types.MsgDepositForGroup{},
		&types.MsgSponsor{},
		&types.MsgUnsponsor{},
		&types.MsgWithdraw{},
		&types.MsgClaimYield{},
		&types.MsgKeeperAction{},
		&types.MsgUpdateParams{},
		&types.MsgSetStrategy{},
		&types.MsgSetRole{},
	)
}

// DefaultGenesis returns default genesis state as raw bytes
func (AppModuleBasic) DefaultGenesis(cdc codec.JSONCodec) json.RawMessage {
	bz, _ := json.Marshal(types.DefaultGenesis())
	return bz
}

// ValidateGenesis performs genesis state validation
func (AppModuleBasic) ValidateGenesis(cdc codec.JSONCodec, config client.TxEncodingConfig, bz json.RawMessage) error {
	gs, err := types.ParseGenesis(bz)
	if err != nil {
		return err
	}
	return gs.Validate()
}

// RegisterGRPCGatewayRoutes registers the gRPC Gateway routes for the module.
// The vault serves REST through the standalone API server instead.
func (AppModuleBasic) RegisterGRPCGatewayRoutes(clientCtx client.Context, mux *runtime.ServeMux) {}

// GetTxCmd returns the vault tx commands
func (AppModuleBasic) GetTxCmd() *cobra.Command {
	return cli.GetTxCmd()
}

// GetQueryCmd returns the vault query commands
func (AppModuleBasic) GetQueryCmd() *cobra.Command {
	return cli.GetQueryCmd()
}

// AppModule implements an application module for the vault module
type AppModule struct {
	AppModuleBasic
	keeper *keeper.Keeper
}

// NewAppModule creates a new AppModule object
func NewAppModule(k *keeper.Keeper) AppModule {
	return AppModule{
		AppModuleBasic: AppModuleBasic{},
		keeper:         k,
	}
}

// Name returns the module's name
func (am AppModule) Name() string {
	return ModuleName
}

// RegisterServices registers nothing. The vault has no generated Msg
// service; its messages are executed by the API engine.
func (am AppModule) RegisterServices(module.Configurator) {}

// InitGenesis applies the vault genesis
func (am AppModule) InitGenesis(ctx sdk.Context, cdc codec.JSONCodec, bz json.RawMessage) {
	gs, err := types.ParseGenesis(bz)
	if err != nil {
		panic(err)
	}
	if err := am.keeper.InitGenesisState(ctx, gs); err != nil {
		panic(err)
	}
}

// ExportGenesis exports params, the active strategy and keeper grants
func (am AppModule) ExportGenesis(ctx sdk.Context, cdc codec.JSONCodec) json.RawMessage {
	bz, _ := json.Marshal(am.keeper.ExportGenesis(ctx))
	return bz
}

// IsOnePerModuleType implements the depinject.OnePerModuleType interface
func (am AppModule) IsOnePerModuleType() {}

// IsAppModule implements the appmodule.AppModule interface
func (am AppModule) IsAppModule() {}

// EndBlocker checks the vault invariants at the end of each block
func (am AppModule) EndBlocker(ctx sdk.Context) error {
	return am.keeper.EndBlocker(ctx)
}
