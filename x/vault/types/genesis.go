package types

import (
	"encoding/json"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// GenesisState is the vault state at chain start
type GenesisState struct {
	Params Params `json:"params"`
	// ActiveStrategy names a registered strategy to activate at genesis
	ActiveStrategy string `json:"active_strategy,omitempty"`
	// Keepers are granted RoleKeeper at genesis
	Keepers []string `json:"keepers,omitempty"`
}

// DefaultGenesis returns the default genesis state
func DefaultGenesis() *GenesisState {
	return &GenesisState{Params: DefaultParams()}
}

// Validate checks the genesis params and keeper addresses
func (gs GenesisState) Validate() error {
	if err := gs.Params.Validate(); err != nil {
		return err
	}
	for _, account := range gs.Keepers {
		if _, err := sdk.AccAddressFromBech32(account); err != nil {
			return ErrInvalidAddress.Wrapf("keeper %q: %s", account, err)
		}
	}
	return nil
}

// ParseGenesis decodes a raw genesis message. An empty message yields the default.
func ParseGenesis(bz json.RawMessage) (*GenesisState, error) {
	if len(bz) == 0 {
		return DefaultGenesis(), nil
	}
	var gs GenesisState
	if err := json.Unmarshal(bz, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}
