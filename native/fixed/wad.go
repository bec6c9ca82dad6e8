// Package fixed implements the WAD (1e18) fixed-point arithmetic used for fee
// ratios. Products are computed with a 512-bit intermediate and truncated
// toward zero so repeated settlements never round in the protocol's favour.
package fixed

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

const wadDecimals = 18

var (
	// WAD is the fixed-point scale; a ratio of WAD equals 100%.
	WAD = uint256.NewInt(1_000_000_000_000_000_000)

	errEmptyRatio  = errors.New("fixed: empty value")
	errRatioDigits = errors.New("fixed: more than 18 fractional digits")
)

// Zero returns a fresh zero amount.
func Zero() *uint256.Int { return new(uint256.Int) }

// Clone returns a copy of v, treating nil as zero.
func Clone(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}

// MulWadDown returns floor(x*y/WAD). The boolean reports whether the result
// overflowed 256 bits.
func MulWadDown(x, y *uint256.Int) (*uint256.Int, bool) {
	if x == nil || y == nil {
		return new(uint256.Int), false
	}
	return new(uint256.Int).MulDivOverflow(x, y, WAD)
}

// MulBpsDown returns floor(x*bps/10_000).
func MulBpsDown(x *uint256.Int, bps uint64) (*uint256.Int, bool) {
	if x == nil {
		return new(uint256.Int), false
	}
	return new(uint256.Int).MulDivOverflow(x, uint256.NewInt(bps), uint256.NewInt(10_000))
}

// Min returns a copy of the smaller operand.
func Min(a, b *uint256.Int) *uint256.Int {
	if Clone(a).Cmp(Clone(b)) <= 0 {
		return Clone(a)
	}
	return Clone(b)
}

// IsZero reports whether v is nil or zero.
func IsZero(v *uint256.Int) bool { return v == nil || v.IsZero() }

// ParseAmount parses a base-10 integer amount. Underscores are accepted as
// digit separators.
func ParseAmount(value string) (*uint256.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), "_", "")
	if trimmed == "" {
		return nil, errEmptyRatio
	}
	amount, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("fixed: parse amount %q: %w", value, err)
	}
	return amount, nil
}

// ParseWad parses a decimal such as "0.2" or "1" into a WAD scaled value. A
// trailing "%" divides the value by one hundred.
func ParseWad(value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, errEmptyRatio
	}
	percent := strings.HasSuffix(trimmed, "%")
	if percent {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "%"))
	}
	whole, frac, _ := strings.Cut(trimmed, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > wadDecimals {
		return nil, errRatioDigits
	}
	digits := whole + frac + strings.Repeat("0", wadDecimals-len(frac))
	scaled, err := uint256.FromDecimal(strings.TrimLeft(digits, "0"))
	if err != nil {
		if strings.Trim(digits, "0") == "" {
			return new(uint256.Int), nil
		}
		return nil, fmt.Errorf("fixed: parse %q: %w", value, err)
	}
	if percent {
		scaled.Div(scaled, uint256.NewInt(100))
	}
	return scaled, nil
}

// FormatWad renders a WAD scaled value as a trimmed decimal string.
func FormatWad(v *uint256.Int) string {
	if IsZero(v) {
		return "0"
	}
	q, r := new(uint256.Int), new(uint256.Int)
	q.DivMod(v, WAD, r)
	if r.IsZero() {
		return q.Dec()
	}
	frac := r.Dec()
	frac = strings.Repeat("0", wadDecimals-len(frac)) + frac
	return q.Dec() + "." + strings.TrimRight(frac, "0")
}
