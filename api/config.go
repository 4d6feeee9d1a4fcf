package api

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"cosmossdk.io/math"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	"gopkg.in/yaml.v3"

	"github.com/openalpha/yield-vault/api/bot"
	"github.com/openalpha/yield-vault/api/engine"
	"github.com/openalpha/yield-vault/api/middleware"
	"github.com/openalpha/yield-vault/api/websocket"
	"github.com/openalpha/yield-vault/x/vault/strategy"
	"github.com/openalpha/yield-vault/x/vault/types"
)

// Config holds the API service configuration
type Config struct {
	Server struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		DisableRateLimit bool          `yaml:"disable_rate_limit"`
	} `yaml:"server"`

	Vault struct {
		Admin          string            `yaml:"admin"`
		Params         ParamsConfig      `yaml:"params"`
		Strategies     []strategy.Config `yaml:"strategies"`
		ActiveStrategy string            `yaml:"active_strategy"`
		JournalSize    int               `yaml:"journal_size"`
	} `yaml:"vault"`

	Keeper struct {
		Enabled  bool         `yaml:"enabled"`
		Account  string       `yaml:"account"` // defaults to the admin
		Schedule bot.Schedule `yaml:"schedule"`
	} `yaml:"keeper"`

	// Simulation mounts the devnet controls under /v1/sim
	Simulation struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"simulation"`

	RateLimit middleware.RateLimitConfig `yaml:"rate_limit"`
	WebSocket websocket.HubConfig        `yaml:"websocket"`
}

// ParamsConfig mirrors types.Params with YAML friendly amounts
type ParamsConfig struct {
	Denom                   string        `yaml:"denom"`
	MinLockPeriod           time.Duration `yaml:"min_lock_period"`
	InvestPct               uint32        `yaml:"invest_pct"`
	ImmediateInvestLimitPct uint32        `yaml:"immediate_invest_limit_pct"`
	LossTolerancePct        uint32        `yaml:"loss_tolerance_pct"`
	PerfFeePct              uint32        `yaml:"perf_fee_pct"`
	Treasury                string        `yaml:"treasury"`
	MinRebalanceAmount      string        `yaml:"min_rebalance_amount"`
}

// Params converts the YAML params into vault params
func (p ParamsConfig) Params() (types.Params, error) {
	minRebalance, ok := math.NewIntFromString(p.MinRebalanceAmount)
	if !ok || minRebalance.IsNegative() {
		return types.Params{}, fmt.Errorf("min_rebalance_amount: invalid amount %q", p.MinRebalanceAmount)
	}
	params := types.Params{
		Denom:                   p.Denom,
		MinLockPeriod:           p.MinLockPeriod,
		InvestPct:               p.InvestPct,
		ImmediateInvestLimitPct: p.ImmediateInvestLimitPct,
		LossTolerancePct:        p.LossTolerancePct,
		PerfFeePct:              p.PerfFeePct,
		Treasury:                p.Treasury,
		MinRebalanceAmount:      minRebalance,
	}
	return params, params.Validate()
}

// DefaultConfig returns a single strategy devnet with the keeper bot and
// simulation endpoints enabled. The admin is the gov module account.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second

	params := types.DefaultParams()
	cfg.Vault.Admin = authtypes.NewModuleAddress("gov").String()
	cfg.Vault.Params = ParamsConfig{
		Denom:                   params.Denom,
		MinLockPeriod:           params.MinLockPeriod,
		InvestPct:               params.InvestPct,
		ImmediateInvestLimitPct: params.ImmediateInvestLimitPct,
		LossTolerancePct:        params.LossTolerancePct,
		PerfFeePct:              params.PerfFeePct,
		MinRebalanceAmount:      params.MinRebalanceAmount.String(),
	}
	cfg.Vault.Strategies = []strategy.Config{{Name: "default", Kind: strategy.KindSynchronous}}
	cfg.Vault.ActiveStrategy = "default"
	cfg.Vault.JournalSize = 10000

	cfg.Keeper.Enabled = true
	cfg.Keeper.Schedule = bot.DefaultSchedule()
	cfg.Simulation.Enabled = true

	cfg.RateLimit = *middleware.DefaultRateLimitConfig()
	cfg.WebSocket = *websocket.DefaultHubConfig()
	return cfg
}

// LoadConfig reads path over the defaults, then applies environment
// overrides. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// Environment variable overrides
	if v := os.Getenv("VAULT_API_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("VAULT_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("VAULT_API_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("VAULT_ADMIN"); v != "" {
		cfg.Vault.Admin = v
	}
	if v := os.Getenv("VAULT_TREASURY"); v != "" {
		cfg.Vault.Params.Treasury = v
	}
	if v := os.Getenv("VAULT_KEEPER_ADDRESS"); v != "" {
		cfg.Keeper.Account = v
	}
	if v := os.Getenv("VAULT_REBALANCE_CRON"); v != "" {
		cfg.Keeper.Schedule.UpdateInvested = v
	}
	if v := os.Getenv("VAULT_SIMULATION"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("VAULT_SIMULATION: %w", err)
		}
		cfg.Simulation.Enabled = enabled
	}

	if cfg.Keeper.Account == "" {
		cfg.Keeper.Account = cfg.Vault.Admin
	}
	return cfg, nil
}

// Validate checks the fields the engine cannot default
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Vault.Admin == "" {
		return fmt.Errorf("vault.admin is required")
	}
	if c.WebSocket.MaxClientsPerIP <= 0 || c.WebSocket.MaxSubscriptions <= 0 {
		return fmt.Errorf("websocket limits must be positive")
	}
	_, err := c.Vault.Params.Params()
	return err
}

// EngineConfig converts the vault section into an engine configuration
func (c *Config) EngineConfig() (engine.Config, error) {
	params, err := c.Vault.Params.Params()
	if err != nil {
		return engine.Config{}, err
	}
	cfg := engine.Config{
		Admin:          c.Vault.Admin,
		Params:         params,
		Strategies:     c.Vault.Strategies,
		ActiveStrategy: c.Vault.ActiveStrategy,
		JournalSize:    c.Vault.JournalSize,
	}
	if c.Keeper.Enabled && c.Keeper.Account != "" {
		cfg.Keepers = []string{c.Keeper.Account}
	}
	return cfg, nil
}
