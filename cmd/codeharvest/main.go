// Command codeharvest builds code datasets from public GitHub repositories.
package main

import (
	"os"

	"github.com/custodia-labs/codeharvest/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
