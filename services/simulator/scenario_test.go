package simulator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeScenarioNormalizes(t *testing.T) {
	sc, err := DecodeScenario(strings.NewReader(`
name: " padded "
steps:
  - action: " Boost "
    actor: alice
    safe: s1
    vault: yvFEI
    amount: " 10 "
    expect:
      error: " WrongAsset "
`))
	require.NoError(t, err)
	require.Equal(t, "padded", sc.Name)
	require.Equal(t, "boost", sc.Steps[0].Action)
	require.Equal(t, "10", sc.Steps[0].Amount)
	require.Equal(t, "WrongAsset", sc.Steps[0].Expect.Error)
}

func TestDecodeScenarioRejects(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", ``, "empty"},
		{"no name", "steps:\n  - action: check\n", "name required"},
		{"no steps", "name: x\n", "no steps"},
		{"unknown action", "name: x\nsteps:\n  - action: teleport\n", "unknown action"},
		{"unknown field", "name: x\nsteps:\n  - action: check\n    colour: red\n", "colour"},
		{"missing amount", "name: x\nsteps:\n  - action: boost\n    actor: a\n    safe: s\n    vault: v\n", "amount required"},
		{"create without collateral", "name: x\nsteps:\n  - action: create_safe\n    actor: a\n    safe: s\n", "collateral"},
		{"bad scope", "name: x\nsteps:\n  - action: set_fee\n    actor: a\n    scope: galaxy\n    fee: \"1%\"\n", "scope"},
		{"scope target", "name: x\nsteps:\n  - action: set_fee\n    actor: a\n    scope: safe\n    fee: \"1%\"\n", "target required"},
		{"pause module", "name: x\nsteps:\n  - action: pause\n", "module required"},
		{"unknown kind", "name: x\nsteps:\n  - action: check\n    expect:\n      error: Exploded\n", "unknown error kind"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeScenario(strings.NewReader(tc.yaml))
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestDecodeScenarioAcceptsCollaboratorKinds(t *testing.T) {
	_, err := DecodeScenario(strings.NewReader("name: x\nsteps:\n  - action: set_fee\n    actor: a\n    scope: default\n    fee: \"2\"\n    expect:\n      error: FeeTooHigh\n"))
	require.NoError(t, err)
}

func TestLoadScenario(t *testing.T) {
	_, err := LoadScenario("")
	require.ErrorContains(t, err, "path required")

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "open scenario")

	path := filepath.Join(t.TempDir(), "ok.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: ok\nsteps:\n  - action: check\n"), 0o600))
	sc, err := LoadScenario(path)
	require.NoError(t, err)
	require.Equal(t, "ok", sc.Name)
}
