package main

import (
	"os"

	"github.com/polymerlab/m2pcalc/internal/interfaces/cli"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	// Inject build-time variables into the cli package.
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	// Execute already reported the error.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
