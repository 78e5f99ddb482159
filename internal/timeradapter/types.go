package timeradapter

// ScheduledEventRef is the in-memory, advisory side index entry TA keeps
// per outstanding delayed event. Authoritative state always lives in the
// alarms table; on any inconsistency between this index and PL, PL wins.
// It MUST NOT be treated as surviving a restart on its own: it is always
// rebuilt from persisted alarms by RestoreScheduledEvents.
type ScheduledEventRef struct {
	SourceSessionID string
	TargetSessionID string
	Event           string
	EventData       map[string]any
	DelayMs         int64
	StartedAtMs     int64
}

// payload is the JSON shape stored on the alarm row and parsed back out
// on delivery. Field names are part of the persisted wire format.
type payload struct {
	Type            string         `json:"type"`
	SourceSessionID string         `json:"sourceSessionId"`
	TargetSessionID string         `json:"targetSessionId"`
	Event           string         `json:"event"`
	EventData       map[string]any `json:"eventData,omitempty"`
	ComposedID      string         `json:"composedId"`
	AlarmID         string         `json:"alarmId"`
}

const alarmType = "xstate-delay"
