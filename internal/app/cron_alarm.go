package app

import (
	"context"
	"encoding/json"
	"time"

	"wakeloop/internal/alarm"
	"wakeloop/internal/cronspec"
	logx "wakeloop/pkg/logx"
)

// TypeCustomCron is the alarm type the cron-driven maintenance-sweep
// example registers itself under. It is dispatched through WH's
// user-handler slot like any other non-built-in type; AM's own
// repeat_interval mechanic is a fixed-millisecond-offset primitive and is
// never special-cased for cron here.
const TypeCustomCron = "custom-cron"

type cronAlarmPayload struct {
	Cron string `json:"cron"`
	Note string `json:"note,omitempty"`
}

// handleCustomCronAlarm runs the payload's cron field forward one step
// and re-schedules itself under the same id. It is registered with WH
// via wakeuphandler.WithUserHandler.
func (a *App) handleCustomCronAlarm(al alarm.Alarm) error {
	var p cronAlarmPayload
	if err := json.Unmarshal(al.Payload, &p); err != nil {
		a.log.Warn("custom-cron alarm payload decode failed", logx.String("id", al.ID), logx.Err(err))
		return nil
	}

	a.log.Info("custom-cron alarm fired", logx.String("id", al.ID), logx.String("note", p.Note))

	spec, err := cronspec.Parse(p.Cron)
	if err != nil {
		return err
	}
	next := spec.NextAfter(time.UnixMilli(a.clock.NowMillis()))

	// HandleDue has already deleted the fired row before invoking this
	// handler, so re-scheduling under the same id is a fresh insert, not
	// a duplicate. The user-handler contract carries no context, so this
	// uses a background context for the re-schedule write.
	return a.am.Schedule(context.Background(), alarm.ScheduleOptions{
		ID:          al.ID,
		Type:        al.Type,
		ScheduledAt: next.UnixMilli(),
		Payload:     al.Payload,
	})
}
