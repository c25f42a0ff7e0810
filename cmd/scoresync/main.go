// Command scoresync regenerates score and part PDFs when their sources change.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/scoresync/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
