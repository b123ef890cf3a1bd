// Command claimsift is the CLI entry point.
package main

import (
	"os"

	"github.com/caselens/claimsift/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
