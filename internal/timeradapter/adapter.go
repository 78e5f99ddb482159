package timeradapter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"wakeloop/internal/alarm"
	"wakeloop/internal/fsmhost"
	logx "wakeloop/pkg/logx"
)

// Adapter implements the FSM library's pluggable timer interface
// (schedule/cancel/cancelAll) on top of an Alarm Manager, and knows how
// to deliver a fired xstate-delay alarm back to the FSM actor it
// belongs to.
type Adapter struct {
	am  *alarm.Manager
	sys fsmhost.System
	log logx.Logger

	mu    sync.Mutex
	index map[string]ScheduledEventRef // keyed by composedId
}

// New constructs a Timer Adapter over am. sys is used only at delivery
// time to look up and relay to the target actor; it may be installed
// after construction via SetSystem if the FSM system isn't available
// yet when the adapter is built.
func New(am *alarm.Manager, sys fsmhost.System, log logx.Logger) *Adapter {
	return &Adapter{am: am, sys: sys, log: log.For("timeradapter"), index: map[string]ScheduledEventRef{}}
}

// SetSystem installs or replaces the FSM system used for delivery.
func (a *Adapter) SetSystem(sys fsmhost.System) {
	a.mu.Lock()
	a.sys = sys
	a.mu.Unlock()
}

// Schedule composes the alarm key from source.SessionID() and
// fsmEventKey (generating a random one if empty), records the in-memory
// index entry, and asks AM to schedule the backing alarm. If the AM
// call fails, the index entry is removed and the error is returned.
func (a *Adapter) Schedule(ctx context.Context, source, target fsmhost.ActorRef, evt fsmhost.Event, delayMs int64, fsmEventKey string, now int64) (string, error) {
	if fsmEventKey == "" {
		fsmEventKey = randomShortID()
	}
	composedID := source.SessionID() + "." + fsmEventKey
	alarmID := "xstate-" + composedID

	ref := ScheduledEventRef{
		SourceSessionID: source.SessionID(),
		TargetSessionID: target.SessionID(),
		Event:           evt.Type,
		EventData:       evt.Data,
		DelayMs:         delayMs,
		StartedAtMs:     now,
	}
	a.mu.Lock()
	a.index[composedID] = ref
	a.mu.Unlock()

	p := payload{
		Type:            alarmType,
		SourceSessionID: ref.SourceSessionID,
		TargetSessionID: ref.TargetSessionID,
		Event:           ref.Event,
		EventData:       ref.EventData,
		ComposedID:      composedID,
		AlarmID:         alarmID,
	}
	raw, err := json.Marshal(p)
	if err != nil {
		a.removeIndex(composedID)
		return "", fmt.Errorf("timeradapter: marshal payload for %s: %w", composedID, err)
	}

	err = a.am.Schedule(ctx, alarm.ScheduleOptions{
		ID:          alarmID,
		Type:        alarmType,
		ScheduledAt: now + delayMs,
		Payload:     raw,
	})
	if err != nil {
		a.removeIndex(composedID)
		a.log.Error("schedule failed", logx.String("composedId", composedID), logx.Err(err))
		return "", err
	}
	return fsmEventKey, nil
}

// Cancel derives the same composed id from source and fsmEventKey,
// drops the index entry, and cancels the backing alarm.
func (a *Adapter) Cancel(ctx context.Context, source fsmhost.ActorRef, fsmEventKey string) error {
	composedID := source.SessionID() + "." + fsmEventKey
	alarmID := "xstate-" + composedID
	a.removeIndex(composedID)
	return a.am.Cancel(ctx, alarmID)
}

// CancelAll scans the index for every entry whose source session id
// matches actorRef and cancels each one's backing alarm.
func (a *Adapter) CancelAll(ctx context.Context, actorRef fsmhost.ActorRef) error {
	sessionID := actorRef.SessionID()

	a.mu.Lock()
	var toCancel []string
	for composedID, ref := range a.index {
		if ref.SourceSessionID == sessionID {
			toCancel = append(toCancel, composedID)
			delete(a.index, composedID)
		}
	}
	a.mu.Unlock()

	var firstErr error
	for _, composedID := range toCancel {
		alarmID := "xstate-" + composedID
		if err := a.am.Cancel(ctx, alarmID); err != nil {
			a.log.Error("cancelAll: cancel failed", logx.String("composedId", composedID), logx.Err(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Deliver is invoked by the Wakeup Handler when an xstate-delay alarm
// fires. It parses the payload, removes the index entry for the
// composed id, and relays or sends the original event to the target
// actor. A target that can no longer be found is logged, not retried,
// consistent with at-most-once delivery.
func (a *Adapter) Deliver(ctx context.Context, raw []byte) error {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		a.log.Error("deliver: corrupt payload, dropping", logx.Err(err))
		return nil
	}
	a.removeIndex(p.ComposedID)

	a.mu.Lock()
	sys := a.sys
	a.mu.Unlock()
	if sys == nil {
		a.log.Error("deliver: no FSM system installed, dropping", logx.String("composedId", p.ComposedID))
		return nil
	}

	target, ok := sys.Lookup(p.TargetSessionID)
	if !ok {
		a.log.Error("deliver: target actor not found, dropping", logx.String("composedId", p.ComposedID), logx.String("targetSessionId", p.TargetSessionID))
		return nil
	}
	evt := fsmhost.Event{Type: p.Event, Data: p.EventData}
	if sys.Relay(target, target, evt) {
		return nil
	}
	target.Send(evt)
	return nil
}

// RestoreScheduledEvents rebuilds the in-memory index from persisted
// xstate-delay alarms after a cold start. Alarms whose deadline has
// already elapsed are intentionally left out of the index: the next
// drain delivers them directly, and Deliver removes any stale entry.
func (a *Adapter) RestoreScheduledEvents(ctx context.Context, now int64) error {
	pending, err := a.am.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("timeradapter: restore: %w", err)
	}

	rebuilt := map[string]ScheduledEventRef{}
	for _, al := range pending {
		if al.Type != alarmType {
			continue
		}
		if al.ScheduledAt <= now {
			continue
		}
		var p payload
		if err := json.Unmarshal(al.Payload, &p); err != nil {
			a.log.Error("restore: corrupt payload, skipping", logx.String("id", al.ID), logx.Err(err))
			continue
		}
		rebuilt[p.ComposedID] = ScheduledEventRef{
			SourceSessionID: p.SourceSessionID,
			TargetSessionID: p.TargetSessionID,
			Event:           p.Event,
			EventData:       p.EventData,
			DelayMs:         al.ScheduledAt - al.CreatedAt,
			StartedAtMs:     al.CreatedAt,
		}
	}

	a.mu.Lock()
	a.index = rebuilt
	a.mu.Unlock()
	return nil
}

// Lookup returns the in-memory index entry for composedId, for
// diagnostics and tests.
func (a *Adapter) Lookup(composedID string) (ScheduledEventRef, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ref, ok := a.index[composedID]
	return ref, ok
}

// IndexLen reports the number of entries currently in the in-memory
// index, for diagnostics and tests.
func (a *Adapter) IndexLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.index)
}

func (a *Adapter) removeIndex(composedID string) {
	a.mu.Lock()
	delete(a.index, composedID)
	a.mu.Unlock()
}

func randomShortID() string {
	return uuid.New().String()
}
