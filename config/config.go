package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultService      = "turbo-sim"
	DefaultEnv          = "local"
	DefaultLogLevel     = "info"
	DefaultFundingAsset = "FEI"
	DefaultAdmin        = "admin"
)

// Config is the engine configuration shared by the simulator and the CLI.
// Assets, vaults and actors are referenced by name; the simulator derives
// their addresses.
type Config struct {
	Service      string `toml:"Service"`
	Env          string `toml:"Env"`
	LogLevel     string `toml:"LogLevel"`
	FundingAsset string `toml:"FundingAsset"`
	Admin        string `toml:"Admin"`
	Gibber       string `toml:"Gibber,omitempty"`

	Accountant Accountant `toml:"accountant"`
	Booster    Booster    `toml:"booster"`
	Pool       Pool       `toml:"pool"`
	Roles      Roles      `toml:"roles"`
	Pauses     Pauses     `toml:"pauses"`
}

// Load reads the TOML configuration at path. A missing file yields Default.
// Sections absent from an existing file stay empty; only scalar settings are
// defaulted. The result is normalised and validated.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	cfg := &Config{}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0].String())
	}

	cfg.EnsureDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with one allow-listed vault and one
// collateral market, enough to run a scenario end to end.
func Default() *Config {
	cfg := &Config{
		Service:      DefaultService,
		Env:          DefaultEnv,
		LogLevel:     DefaultLogLevel,
		FundingAsset: DefaultFundingAsset,
		Admin:        DefaultAdmin,
		Accountant: Accountant{
			DefaultFee: "10%",
		},
		Booster: Booster{
			Vaults: []Vault{{Name: "yvFEI", Cap: "1_000_000"}},
			CollateralCaps: map[string]string{
				"TRIBE": "1_000_000",
			},
		},
		Pool: Pool{
			Liquidity: "10_000_000",
			Markets: []Market{{
				Asset:               "TRIBE",
				CollateralFactorBps: 5_000,
				Price:               "1",
			}},
		},
	}
	cfg.EnsureDefaults()
	return cfg
}

// EnsureDefaults fills unset fields and trims names.
func (c *Config) EnsureDefaults() {
	if c == nil {
		return
	}
	c.Service = orDefault(c.Service, DefaultService)
	c.Env = orDefault(c.Env, DefaultEnv)
	c.LogLevel = strings.ToLower(orDefault(c.LogLevel, DefaultLogLevel))
	c.FundingAsset = strings.ToUpper(orDefault(c.FundingAsset, DefaultFundingAsset))
	c.Admin = orDefault(c.Admin, DefaultAdmin)
	c.Gibber = strings.TrimSpace(c.Gibber)
	c.Accountant.ensureDefaults()
	c.Booster.ensureDefaults(c.FundingAsset)
	c.Pool.ensureDefaults()
	c.Roles.ensureDefaults()
}

// Write persists cfg as TOML, creating parent directories as needed.
func Write(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
