package storage

import "fmt"

// Alarm is a single scheduled wakeup, exactly as laid out in the data
// model: a client-supplied id, an open-for-extension/closed-for-dispatch
// type tag, an absolute millisecond deadline, an optional repeat interval,
// and an opaque JSON payload carried through intact.
type Alarm struct {
	ID             string
	Type           string
	ScheduledAt    int64 // absolute wall-clock ms since epoch
	RepeatInterval int64 // 0 means unset; spec requires > 0 when present
	Payload        string
	CreatedAt      int64
}

// HasRepeat reports whether this alarm reschedules on fire rather than
// being deleted.
func (a Alarm) HasRepeat() bool { return a.RepeatInterval > 0 }

// DuplicateAlarmIDError is returned by InsertAlarm when id already exists.
// AM surfaces this unchanged to its caller (no silent upsert).
type DuplicateAlarmIDError struct {
	ID string
}

func (e *DuplicateAlarmIDError) Error() string {
	return fmt.Sprintf("duplicate alarm id: %s", e.ID)
}

// InsertAlarmOptions is the argument to InsertAlarm.
type InsertAlarmOptions struct {
	ID             string
	Type           string
	ScheduledAt    int64
	RepeatInterval int64 // 0 means unset
	Payload        string
	CreatedAt      int64
}

// UpdateAlarmOptions is the argument to UpdateAlarm. It mutates
// scheduled_at, repeat_interval, and payload for an existing id; it is
// the intentional upsert-style channel for recurring alarms.
type UpdateAlarmOptions struct {
	ID             string
	ScheduledAt    int64
	RepeatInterval int64 // 0 means unset
	Payload        string
}
