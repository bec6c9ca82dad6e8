package config

import (
	"strings"

	"github.com/holiman/uint256"

	"turbo/native/fixed"
)

// Accountant seeds the fee schedule. Fees accept a WAD fraction ("0.2") or a
// percentage ("20%").
type Accountant struct {
	DefaultFee     string            `toml:"DefaultFee"`
	CollateralFees map[string]string `toml:"CollateralFees,omitempty"`
}

// Booster seeds the admission policy.
type Booster struct {
	Frozen         bool              `toml:"Frozen"`
	Vaults         []Vault           `toml:"vaults"`
	CollateralCaps map[string]string `toml:"CollateralCaps,omitempty"`
}

// Vault declares a vault the simulator instantiates. Asset defaults to the
// funding asset. Vaults with Disabled set exist but are not allow-listed.
type Vault struct {
	Name     string `toml:"Name"`
	Asset    string `toml:"Asset,omitempty"`
	Cap      string `toml:"Cap"`
	Disabled bool   `toml:"Disabled,omitempty"`
}

// Pool seeds the lending market.
type Pool struct {
	Liquidity string   `toml:"Liquidity"`
	Markets   []Market `toml:"markets"`
}

// Market lists a collateral asset. Price is the WAD value of one unit in
// funding asset.
type Market struct {
	Asset               string `toml:"Asset"`
	CollateralFactorBps uint64 `toml:"CollateralFactorBps"`
	Price               string `toml:"Price"`
}

// Roles names the identities granted keeper rights: they may slurp any Safe
// and run master-wide settlement. Anyone may create a Safe unless
// RestrictSafeCreation is set, in which case only the admin can.
type Roles struct {
	Keepers              []string `toml:"Keepers,omitempty"`
	RestrictSafeCreation bool     `toml:"RestrictSafeCreation"`
}

// DefaultFeeWad parses the default fee.
func (a Accountant) DefaultFeeWad() (*uint256.Int, error) {
	return fixed.ParseWad(a.DefaultFee)
}

// CollateralFeeWads parses every per-collateral override, keyed by upper-cased
// asset symbol.
func (a Accountant) CollateralFeeWads() (map[string]*uint256.Int, error) {
	out := make(map[string]*uint256.Int, len(a.CollateralFees))
	for asset, raw := range a.CollateralFees {
		fee, err := fixed.ParseWad(raw)
		if err != nil {
			return nil, err
		}
		out[strings.ToUpper(asset)] = fee
	}
	return out, nil
}

// CapAmount parses the vault cap. An empty cap is zero, which admits nothing.
func (v Vault) CapAmount() (*uint256.Int, error) {
	return parseOptionalAmount(v.Cap)
}

// PriceWad parses the collateral price.
func (m Market) PriceWad() (*uint256.Int, error) {
	return fixed.ParseWad(m.Price)
}

// LiquidityAmount parses the funding asset minted into the pool.
func (p Pool) LiquidityAmount() (*uint256.Int, error) {
	return parseOptionalAmount(p.Liquidity)
}

func (a *Accountant) ensureDefaults() {
	a.DefaultFee = strings.TrimSpace(a.DefaultFee)
	if a.DefaultFee == "" {
		a.DefaultFee = "0"
	}
	if len(a.CollateralFees) == 0 {
		return
	}
	normalized := make(map[string]string, len(a.CollateralFees))
	for asset, fee := range a.CollateralFees {
		normalized[strings.ToUpper(strings.TrimSpace(asset))] = strings.TrimSpace(fee)
	}
	a.CollateralFees = normalized
}

func (b *Booster) ensureDefaults(fundingAsset string) {
	for i := range b.Vaults {
		b.Vaults[i].Name = strings.TrimSpace(b.Vaults[i].Name)
		b.Vaults[i].Asset = strings.ToUpper(orDefault(b.Vaults[i].Asset, fundingAsset))
		b.Vaults[i].Cap = strings.TrimSpace(b.Vaults[i].Cap)
	}
	if len(b.CollateralCaps) == 0 {
		return
	}
	normalized := make(map[string]string, len(b.CollateralCaps))
	for asset, limit := range b.CollateralCaps {
		normalized[strings.ToUpper(strings.TrimSpace(asset))] = strings.TrimSpace(limit)
	}
	b.CollateralCaps = normalized
}

func (p *Pool) ensureDefaults() {
	p.Liquidity = strings.TrimSpace(p.Liquidity)
	for i := range p.Markets {
		p.Markets[i].Asset = strings.ToUpper(strings.TrimSpace(p.Markets[i].Asset))
		p.Markets[i].Price = strings.TrimSpace(p.Markets[i].Price)
	}
}

func (r *Roles) ensureDefaults() {
	keepers := make([]string, 0, len(r.Keepers))
	for _, keeper := range r.Keepers {
		if trimmed := strings.TrimSpace(keeper); trimmed != "" {
			keepers = append(keepers, trimmed)
		}
	}
	r.Keepers = keepers
}

func parseOptionalAmount(raw string) (*uint256.Int, error) {
	if strings.TrimSpace(raw) == "" {
		return new(uint256.Int), nil
	}
	return fixed.ParseAmount(raw)
}
