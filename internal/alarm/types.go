package alarm

import (
	"encoding/json"
	"time"
)

// Alarm is the AM-level view of a scheduled wakeup: the storage row plus
// its payload decoded from JSON at this boundary, never inside the
// Persistence Layer.
type Alarm struct {
	ID             string
	Type           string
	ScheduledAt    int64
	RepeatInterval int64
	Payload        json.RawMessage
	CreatedAt      int64
}

func (a Alarm) HasRepeat() bool { return a.RepeatInterval > 0 }

// ScheduleOptions is the argument to Schedule.
type ScheduleOptions struct {
	ID             string
	Type           string
	ScheduledAt    int64 // absolute ms since epoch
	RepeatInterval int64 // 0 means unset; must be > 0 when present
	Payload        json.RawMessage
}

// DrainResult is the deterministic per-alarm record handleDue returns,
// in drain order.
type DrainResult struct {
	ID          string
	Type        string
	Rescheduled bool
	Deleted     bool
}

// Armed describes the wakeup slot's last-requested state.
type Armed struct {
	ID   string
	Time int64
}

// Handler is invoked once per due alarm during a drain. Handler errors
// are caught by handleDue, logged with the alarm id, and swallowed: they
// never prevent the alarm's already-performed PL mutation, and never
// abort the rest of the drain.
type Handler func(a Alarm) error

// HistoryEntry is a bounded diagnostics record of one completed drain.
// It is never consulted by any correctness-bearing operation; it exists
// purely for operator visibility (cmd/alarmctl, logs).
type HistoryEntry struct {
	At          time.Time
	Now         int64
	Drained     int
	Rescheduled int
	Deleted     int
	Errors      int
}
