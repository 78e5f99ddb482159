// Command alarmctl is an operator CLI for inspecting and mutating one
// compute unit's durable alarm store directly, without a running host
// process. It opens the same storage driver the unit's config names
// and talks to the Persistence Layer and Alarm Manager in-process.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "alarmctl",
	Short:         "Inspect and manage a compute unit's durable alarm store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "./config.yaml", "path to the unit's config file")
	rootCmd.AddCommand(listCmd, scheduleCmd, cancelCmd, armedCmd, drainCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
