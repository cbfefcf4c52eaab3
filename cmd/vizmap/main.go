// Command vizmap is a 2D map viewer for a robot's transform tree and pose
// estimate, fed over rosbridge.
package main

import (
	"fmt"
	"os"

	"github.com/phanxgames/vizmap/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
