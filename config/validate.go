package config

import (
	"fmt"
	"strings"

	"turbo/native/fixed"
	"turbo/observability/logging"
)

// MaxCollateralFactorBps caps collateral factors at 100%.
const MaxCollateralFactorBps = uint64(10_000)

// Validate checks that every amount and ratio parses and that names are
// unique.
func Validate(c *Config) error {
	if c == nil {
		return fmt.Errorf("configuration is missing")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if err := validateAccountant(c.Accountant); err != nil {
		return fmt.Errorf("accountant: %w", err)
	}
	if err := validateBooster(c.Booster); err != nil {
		return fmt.Errorf("booster: %w", err)
	}
	if err := validatePool(c.Pool, c.FundingAsset); err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	return nil
}

func validateAccountant(a Accountant) error {
	fee, err := a.DefaultFeeWad()
	if err != nil {
		return fmt.Errorf("DefaultFee: %w", err)
	}
	if fee.Gt(fixed.WAD) {
		return fmt.Errorf("DefaultFee %s exceeds 100%%", a.DefaultFee)
	}
	fees, err := a.CollateralFeeWads()
	if err != nil {
		return fmt.Errorf("CollateralFees: %w", err)
	}
	for asset, fee := range fees {
		if fee.Gt(fixed.WAD) {
			return fmt.Errorf("CollateralFees[%s] exceeds 100%%", asset)
		}
	}
	return nil
}

func validateBooster(b Booster) error {
	seen := make(map[string]struct{}, len(b.Vaults))
	for i, v := range b.Vaults {
		if v.Name == "" {
			return fmt.Errorf("vaults[%d]: name required", i)
		}
		key := strings.ToLower(v.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("vaults[%d]: duplicate vault %q", i, v.Name)
		}
		seen[key] = struct{}{}
		if _, err := v.CapAmount(); err != nil {
			return fmt.Errorf("vaults[%d].Cap: %w", i, err)
		}
	}
	for asset, raw := range b.CollateralCaps {
		if _, err := parseOptionalAmount(raw); err != nil {
			return fmt.Errorf("CollateralCaps[%s]: %w", asset, err)
		}
	}
	return nil
}

func validatePool(p Pool, fundingAsset string) error {
	if _, err := p.LiquidityAmount(); err != nil {
		return fmt.Errorf("Liquidity: %w", err)
	}
	seen := make(map[string]struct{}, len(p.Markets))
	for i, m := range p.Markets {
		if m.Asset == "" {
			return fmt.Errorf("markets[%d]: asset required", i)
		}
		if m.Asset == fundingAsset {
			return fmt.Errorf("markets[%d]: funding asset %s cannot be collateral", i, m.Asset)
		}
		if _, dup := seen[m.Asset]; dup {
			return fmt.Errorf("markets[%d]: duplicate market %s", i, m.Asset)
		}
		seen[m.Asset] = struct{}{}
		if m.CollateralFactorBps > MaxCollateralFactorBps {
			return fmt.Errorf("markets[%d]: collateral factor %d above %d bps", i, m.CollateralFactorBps, MaxCollateralFactorBps)
		}
		if _, err := m.PriceWad(); err != nil {
			return fmt.Errorf("markets[%d].Price: %w", i, err)
		}
	}
	return nil
}
