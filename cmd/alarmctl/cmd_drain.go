package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Run one drain pass over every currently due alarm",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		nowMs, _ := cmd.Flags().GetInt64("now")

		u, err := openUnit(cfgPath, nowMs)
		if err != nil {
			return err
		}
		defer u.Close()

		results, err := u.wh.Drain(context.Background())
		if err != nil {
			return fmt.Errorf("drain: %w", err)
		}
		if len(results) == 0 {
			fmt.Println("Nothing due.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tRESCHEDULED\tDELETED")
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%s\t%v\t%v\n", r.ID, r.Type, r.Rescheduled, r.Deleted)
		}
		return w.Flush()
	},
}

func init() {
	drainCmd.Flags().Int64("now", 0, "pin \"now\" to this absolute millisecond timestamp instead of the real clock")
}
