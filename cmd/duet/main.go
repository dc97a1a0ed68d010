// Command duet runs the bi-directional speech translator: two engines
// (SENDER, RECEIVER) sharing a half-duplex interlock and a status sink.
// Grounded on the teacher's cmd/agent/main.go (malgo context/device wiring,
// signal-driven shutdown), generalized from one engine to two and from a
// flat main() to a Cobra command tree (NeboLoop-nebo's cmd/nebo layout).
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "duet: no .env file found, using system environment variables")
	}

	root := &cobra.Command{
		Use:   "duet",
		Short: "Real-time bi-directional speech translator",
	}

	root.AddCommand(runCmd())
	root.AddCommand(devicesCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
