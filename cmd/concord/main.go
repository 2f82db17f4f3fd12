// Command concord runs the diplomatic influence and relationship-memory simulation.
package main

import (
	"fmt"
	"os"

	"github.com/talgya/concord/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
