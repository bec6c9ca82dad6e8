package config

import "strings"

// Pauses lists the modules halted at start-up. It satisfies the
// native/common PauseView interface.
type Pauses struct {
	Turbo bool `toml:"Turbo"`
	Pool  bool `toml:"Pool"`
}

// IsPaused reports whether module is paused.
func (p Pauses) IsPaused(module string) bool {
	switch strings.ToLower(strings.TrimSpace(module)) {
	case "turbo":
		return p.Turbo
	case "pool":
		return p.Pool
	default:
		return false
	}
}

// Modules lists the paused module names.
func (p Pauses) Modules() []string {
	var out []string
	if p.Turbo {
		out = append(out, "turbo")
	}
	if p.Pool {
		out = append(out, "pool")
	}
	return out
}
