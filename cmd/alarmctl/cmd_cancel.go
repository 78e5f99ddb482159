package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel a pending alarm by id, or every alarm of a type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		alarmType, _ := cmd.Flags().GetString("type")

		if id == "" && alarmType == "" {
			return fmt.Errorf("one of --id or --type is required")
		}
		if id != "" && alarmType != "" {
			return fmt.Errorf("--id and --type are mutually exclusive")
		}

		u, err := openUnit(cfgPath, 0)
		if err != nil {
			return err
		}
		defer u.Close()

		ctx := context.Background()
		if id != "" {
			if err := u.am.Cancel(ctx, id); err != nil {
				return fmt.Errorf("cancel: %w", err)
			}
			fmt.Printf("Cancelled alarm %s.\n", id)
			return nil
		}

		if err := u.am.CancelByType(ctx, alarmType); err != nil {
			return fmt.Errorf("cancel by type: %w", err)
		}
		fmt.Printf("Cancelled all alarms of type %q.\n", alarmType)
		return nil
	},
}

func init() {
	cancelCmd.Flags().String("id", "", "alarm id to cancel")
	cancelCmd.Flags().String("type", "", "cancel every pending alarm of this type")
}
