package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"wakeloop/internal/alarm"
	"wakeloop/internal/config"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending alarms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		typeFilter, _ := cmd.Flags().GetString("type")
		dueBefore, _ := cmd.Flags().GetString("due-before")

		u, err := openUnit(cfgPath, 0)
		if err != nil {
			return err
		}
		defer u.Close()

		var alarms []alarm.Alarm
		if dueBefore != "" {
			d, err := config.ParseDurationField("due-before", dueBefore)
			if err != nil {
				return err
			}
			alarms, err = u.am.ListDue(context.Background(), time.Now().Add(d).UnixMilli())
			if err != nil {
				return fmt.Errorf("list due: %w", err)
			}
		} else {
			alarms, err = u.am.ListPending(context.Background())
			if err != nil {
				return fmt.Errorf("list pending: %w", err)
			}
		}

		if typeFilter != "" {
			filtered := make([]alarm.Alarm, 0, len(alarms))
			for _, a := range alarms {
				if a.Type == typeFilter {
					filtered = append(filtered, a)
				}
			}
			alarms = filtered
		}

		if len(alarms) == 0 {
			fmt.Println("No pending alarms.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tSCHEDULED AT\tREPEAT\tPAYLOAD BYTES")
		for _, a := range alarms {
			at := time.UnixMilli(a.ScheduledAt)
			repeat := "-"
			if a.HasRepeat() {
				repeat = (time.Duration(a.RepeatInterval) * time.Millisecond).String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s (%s)\t%s\t%d\n",
				a.ID, a.Type, at.Format(time.RFC3339), humanize.Time(at), repeat, len(a.Payload))
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().String("type", "", "only show alarms of this type")
	listCmd.Flags().String("due-before", "", "only show alarms due within this duration from now, e.g. 1h")
}
