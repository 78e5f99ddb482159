package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"wakeloop/internal/alarm"
	"wakeloop/internal/config"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Schedule a new alarm",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		alarmType, _ := cmd.Flags().GetString("type")
		in, _ := cmd.Flags().GetString("in")
		repeat, _ := cmd.Flags().GetString("repeat")
		payload, _ := cmd.Flags().GetString("payload")

		if alarmType == "" {
			return fmt.Errorf("--type is required")
		}
		if id == "" {
			id = uuid.NewString()
		}

		delay, err := config.ParseDurationField("in", in)
		if err != nil {
			return err
		}

		var repeatMs int64
		if repeat != "" {
			d, err := config.ParseDurationField("repeat", repeat)
			if err != nil {
				return err
			}
			repeatMs = d.Milliseconds()
		}

		var raw json.RawMessage
		if payload != "" {
			if !json.Valid([]byte(payload)) {
				return fmt.Errorf("--payload is not valid JSON")
			}
			raw = json.RawMessage(payload)
		} else {
			raw = json.RawMessage(`{}`)
		}

		u, err := openUnit(cfgPath, 0)
		if err != nil {
			return err
		}
		defer u.Close()

		now := time.Now()
		err = u.am.Schedule(context.Background(), alarm.ScheduleOptions{
			ID:             id,
			Type:           alarmType,
			ScheduledAt:    now.Add(delay).UnixMilli(),
			RepeatInterval: repeatMs,
			Payload:        raw,
		})
		if err != nil {
			return fmt.Errorf("schedule: %w", err)
		}

		fmt.Printf("Scheduled alarm %s (%s) for %s\n", id, alarmType, now.Add(delay).Format(time.RFC3339))
		return nil
	},
}

func init() {
	scheduleCmd.Flags().String("id", "", "alarm id (default: generated uuid)")
	scheduleCmd.Flags().String("type", "", "alarm type (required)")
	scheduleCmd.Flags().String("in", "0s", "delay from now until the alarm fires, e.g. 30s, 5m")
	scheduleCmd.Flags().String("repeat", "", "repeat interval, e.g. 1h (omit for a one-shot alarm)")
	scheduleCmd.Flags().String("payload", "", "JSON payload (default: {})")
}
