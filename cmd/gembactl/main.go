// gembactl is an operator CLI for a running gemba server. It drives the
// admin HTTP API: weighting schemes, weight application, mismatch reports
// and descriptor restores.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
