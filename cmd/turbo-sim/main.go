// turbo-sim replays YAML scenarios against an in-memory Turbo engine built
// from a TOML configuration.
package main

import (
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
