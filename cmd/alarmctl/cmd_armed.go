package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var armedCmd = &cobra.Command{
	Use:   "armed",
	Short: "Show the wakeup slot's currently armed alarm",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := openUnit(cfgPath, 0)
		if err != nil {
			return err
		}
		defer u.Close()

		// Rearm first so armed state reflects the store rather than this
		// process's freshly-constructed, never-armed Manager.
		if err := u.am.Rearm(context.Background()); err != nil {
			return fmt.Errorf("rearm: %w", err)
		}

		armed, ok := u.am.GetCurrentArmed()
		if !ok {
			fmt.Println("Nothing armed.")
			return nil
		}

		at := time.UnixMilli(armed.Time)
		fmt.Printf("Armed: %s at %s (%s)\n", armed.ID, at.Format(time.RFC3339), humanize.Time(at))
		return nil
	},
}
