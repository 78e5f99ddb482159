package alarm

import (
	"context"
	"fmt"
	"sync"

	"wakeloop/internal/eventbus"
	"wakeloop/internal/platform"
	"wakeloop/internal/storage"
	logx "wakeloop/pkg/logx"
)

const maxHistory = 50

// Manager is the Alarm Manager. It owns the union of the persisted queue
// (via storage.PL) and the single platform wakeup slot (via
// platform.WakeupSlot), and is the sole writer of the slot.
type Manager struct {
	pl    *storage.PL
	slot  platform.WakeupSlot
	clock platform.Clock
	bus   eventbus.Bus
	log   logx.Logger
	warn  *logx.RateLimited

	mu               sync.Mutex
	currentArmedID   string
	currentArmedTime int64
	currentArmedSet  bool
	history          []HistoryEntry
}

// Option configures a Manager at construction.
type Option func(*Manager)

func WithEventBus(bus eventbus.Bus) Option { return func(m *Manager) { m.bus = bus } }
func WithLogger(log logx.Logger) Option    { return func(m *Manager) { m.log = log } }

// New constructs an Alarm Manager over pl and slot. clock defaults to the
// real wall clock if nil.
func New(pl *storage.PL, slot platform.WakeupSlot, clock platform.Clock, opts ...Option) *Manager {
	if clock == nil {
		clock = platform.SystemClock{}
	}
	m := &Manager{pl: pl, slot: slot, clock: clock, log: logx.Nop()}
	for _, o := range opts {
		o(m)
	}
	m.log = m.log.For("alarm")
	m.warn = logx.NewRateLimited(m.log, 0, 0)
	return m
}

// Schedule inserts an alarm via PL, then rearms. It fails only if the PL
// insert fails (e.g. duplicate id); on failure the slot is left untouched.
func (m *Manager) Schedule(ctx context.Context, opts ScheduleOptions) error {
	if opts.RepeatInterval < 0 {
		return fmt.Errorf("alarm %s: repeat_interval must be >= 0", opts.ID)
	}
	payload := string(opts.Payload)
	if payload == "" {
		payload = "{}"
	}
	err := m.pl.InsertAlarm(ctx, storage.InsertAlarmOptions{
		ID:             opts.ID,
		Type:           opts.Type,
		ScheduledAt:    opts.ScheduledAt,
		RepeatInterval: opts.RepeatInterval,
		Payload:        payload,
		CreatedAt:      m.clock.NowMillis(),
	})
	if err != nil {
		return err
	}
	return m.Rearm(ctx)
}

// Cancel deletes the alarm via PL. It only rearms if the canceled id was
// the currently armed one; otherwise it is cheap.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	if err := m.pl.DeleteAlarm(ctx, id); err != nil {
		return err
	}
	m.mu.Lock()
	wasArmed := m.currentArmedSet && m.currentArmedID == id
	m.mu.Unlock()
	if wasArmed {
		return m.Rearm(ctx)
	}
	return nil
}

// CancelByType bulk-deletes every alarm of the given type, then
// unconditionally rearms.
func (m *Manager) CancelByType(ctx context.Context, alarmType string) error {
	if err := m.pl.DeleteAlarmsByType(ctx, alarmType); err != nil {
		return err
	}
	return m.Rearm(ctx)
}

// ListPending reads every alarm, read-through to PL, with payload parsed.
// It never rearms.
func (m *Manager) ListPending(ctx context.Context) ([]Alarm, error) {
	rows, err := m.pl.ListAlarms(ctx)
	if err != nil {
		return nil, err
	}
	return decodeRows(rows), nil
}

// ListDue reads every alarm due at or before "before" (now if 0), without
// mutating anything.
func (m *Manager) ListDue(ctx context.Context, before int64) ([]Alarm, error) {
	if before == 0 {
		before = m.clock.NowMillis()
	}
	rows, err := m.pl.DueAlarms(ctx, before)
	if err != nil {
		return nil, err
	}
	return decodeRows(rows), nil
}

func decodeRows(rows []storage.Alarm) []Alarm {
	out := make([]Alarm, 0, len(rows))
	for _, r := range rows {
		out = append(out, Alarm{
			ID:             r.ID,
			Type:           r.Type,
			ScheduledAt:    r.ScheduledAt,
			RepeatInterval: r.RepeatInterval,
			Payload:        []byte(r.Payload),
			CreatedAt:      r.CreatedAt,
		})
	}
	return out
}

// HandleDue is the core drain. now is captured once at entry and used for
// every decision made during this invocation.
//
// For each due alarm, in ascending scheduled_at order: a recurring alarm
// is rescheduled to now+repeat_interval via PL.UpdateAlarm; a one-shot
// alarm is removed via PL.DeleteAlarm. Either way the mutation happens
// before handler is invoked, so a panic or error in handler can never
// cause redelivery. Handler errors (and panics) are caught, logged with
// the alarm id, and swallowed; they never abort the drain.
func (m *Manager) HandleDue(ctx context.Context, handler Handler) ([]DrainResult, error) {
	now := m.clock.NowMillis()

	due, err := m.pl.DueAlarms(ctx, now)
	if err != nil {
		return nil, err
	}

	results := make([]DrainResult, 0, len(due))
	errCount := 0

	for _, row := range due {
		a := Alarm{
			ID:             row.ID,
			Type:           row.Type,
			ScheduledAt:    row.ScheduledAt,
			RepeatInterval: row.RepeatInterval,
			Payload:        []byte(row.Payload),
			CreatedAt:      row.CreatedAt,
		}

		var rescheduled, deleted bool
		if a.HasRepeat() {
			next := now + a.RepeatInterval
			if err := m.pl.UpdateAlarm(ctx, storage.UpdateAlarmOptions{
				ID: a.ID, ScheduledAt: next, RepeatInterval: a.RepeatInterval, Payload: string(a.Payload),
			}); err != nil {
				m.log.Error("drain: reschedule failed, skipping handler", logx.String("id", a.ID), logx.Err(err))
				errCount++
				continue
			}
			a.ScheduledAt = next
			rescheduled = true
		} else {
			if err := m.pl.DeleteAlarm(ctx, a.ID); err != nil {
				m.log.Error("drain: delete failed, skipping handler", logx.String("id", a.ID), logx.Err(err))
				errCount++
				continue
			}
			deleted = true
		}

		if err := m.invokeHandler(handler, a); err != nil {
			errCount++
			m.warn.Warn("handler:"+a.Type, "drain: handler failed", logx.String("id", a.ID), logx.String("type", a.Type), logx.Err(err))
		}

		results = append(results, DrainResult{ID: a.ID, Type: a.Type, Rescheduled: rescheduled, Deleted: deleted})
	}

	if err := m.Rearm(ctx); err != nil {
		return results, err
	}

	m.recordHistory(now, results, errCount)
	m.publishDrain(now, results, errCount)

	return results, nil
}

func (m *Manager) invokeHandler(handler Handler, a Alarm) (err error) {
	if handler == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler(a)
}

// Rearm reads the earliest pending alarm and, if its (id, time) differs
// from the slot's last-requested state, arms the slot and updates the
// volatile fields. If there is no pending alarm, the volatile fields are
// cleared but the slot itself is left as-is: the platform offers no
// disarm primitive, so a stale arm is tolerated and the drain must stay
// idempotent under an empty due set.
func (m *Manager) Rearm(ctx context.Context) error {
	earliest, ok, err := m.pl.EarliestAlarm(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !ok {
		m.currentArmedSet = false
		m.currentArmedID = ""
		m.currentArmedTime = 0
		return nil
	}

	if m.currentArmedSet && m.currentArmedID == earliest.ID && m.currentArmedTime == earliest.ScheduledAt {
		return nil
	}

	m.slot.SetWakeup(earliest.ScheduledAt)
	m.currentArmedSet = true
	m.currentArmedID = earliest.ID
	m.currentArmedTime = earliest.ScheduledAt
	return nil
}

// GetCurrentArmed returns the volatile {currentArmedId, currentArmedTime}.
func (m *Manager) GetCurrentArmed() (Armed, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.currentArmedSet {
		return Armed{}, false
	}
	return Armed{ID: m.currentArmedID, Time: m.currentArmedTime}, true
}

// History returns a copy of the bounded recent-drain diagnostics history,
// oldest first.
func (m *Manager) History() []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]HistoryEntry, len(m.history))
	copy(out, m.history)
	return out
}

func (m *Manager) recordHistory(now int64, results []DrainResult, errCount int) {
	var rescheduled, deleted int
	for _, r := range results {
		if r.Rescheduled {
			rescheduled++
		}
		if r.Deleted {
			deleted++
		}
	}
	entry := HistoryEntry{Now: now, Drained: len(results), Rescheduled: rescheduled, Deleted: deleted, Errors: errCount}

	m.mu.Lock()
	m.history = append(m.history, entry)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.mu.Unlock()
}

func (m *Manager) publishDrain(now int64, results []DrainResult, errCount int) {
	if m.bus == nil {
		return
	}
	rescheduled := 0
	for _, r := range results {
		if r.Rescheduled {
			rescheduled++
		}
	}
	m.bus.Publish(eventbus.Event{
		Type: "alarm.drain",
		Data: map[string]any{
			"now":         now,
			"drained":     len(results),
			"rescheduled": rescheduled,
			"errors":      errCount,
		},
	})
}
