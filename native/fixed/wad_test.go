package fixed

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestMulWadDownTruncates(t *testing.T) {
	tests := []struct {
		name  string
		x     uint64
		ratio string
		want  uint64
	}{
		{name: "twenty percent", x: 100, ratio: "0.2", want: 20},
		{name: "truncates fraction", x: 99, ratio: "0.1", want: 9},
		{name: "one third", x: 10, ratio: "0.333333333333333333", want: 3},
		{name: "zero ratio", x: 1000, ratio: "0", want: 0},
		{name: "full ratio", x: 1000, ratio: "1", want: 1000},
		{name: "dust", x: 1, ratio: "0.999999999999999999", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratio, err := ParseWad(tt.ratio)
			require.NoError(t, err)
			got, overflow := MulWadDown(uint256.NewInt(tt.x), ratio)
			require.False(t, overflow)
			require.Equal(t, tt.want, got.Uint64())
		})
	}
}

func TestMulWadDownUsesWideIntermediate(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	got, overflow := MulWadDown(max, WAD)
	require.False(t, overflow)
	require.Equal(t, max, got)
}

func TestMulWadDownMonotonicInRatio(t *testing.T) {
	third := new(uint256.Int).Div(new(uint256.Int).SetAllOne(), uint256.NewInt(3))
	amounts := []*uint256.Int{
		uint256.NewInt(0),
		uint256.NewInt(1),
		uint256.NewInt(99),
		uint256.NewInt(137),
		new(uint256.Int).AddUint64(WAD, 7),
		third,
	}
	ratios := []string{"0", "0.000000000000000001", "0.01", "0.1", "0.2", "0.333333333333333333", "0.5", "0.9", "0.999999999999999999", "1"}
	for _, x := range amounts {
		t.Run(x.Dec(), func(t *testing.T) {
			prev := new(uint256.Int)
			for _, raw := range ratios {
				ratio, err := ParseWad(raw)
				require.NoError(t, err)
				got, overflow := MulWadDown(x, ratio)
				require.False(t, overflow)
				require.False(t, got.Lt(prev), "ratio %s lowered the product", raw)
				require.False(t, got.Gt(x), "ratio %s exceeded the amount", raw)
				prev = got
			}
			require.Equal(t, x, prev)
		})
	}
}

func TestParseWad(t *testing.T) {
	v, err := ParseWad("10%")
	require.NoError(t, err)
	require.Equal(t, "0.1", FormatWad(v))

	v, err = ParseWad(".05")
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(50_000_000_000_000_000), v)

	v, err = ParseWad("0.000")
	require.NoError(t, err)
	require.True(t, v.IsZero())

	_, err = ParseWad("0.1234567890123456789")
	require.Error(t, err)
	_, err = ParseWad("abc")
	require.Error(t, err)
	_, err = ParseWad("")
	require.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("1_000_000")
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), v.Uint64())

	_, err = ParseAmount("-5")
	require.Error(t, err)
}

func TestMinAndFormat(t *testing.T) {
	require.Equal(t, uint64(3), Min(uint256.NewInt(3), uint256.NewInt(5)).Uint64())
	require.Equal(t, uint64(0), Min(nil, uint256.NewInt(5)).Uint64())
	require.Equal(t, "1.5", FormatWad(uint256.NewInt(1_500_000_000_000_000_000)))
	require.Equal(t, "0", FormatWad(nil))
}
