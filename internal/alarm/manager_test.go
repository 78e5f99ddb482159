package alarm

import (
	"context"
	"errors"
	"testing"

	"wakeloop/internal/platform"
	"wakeloop/internal/storage"
	logx "wakeloop/pkg/logx"
)

func newTestManager(t *testing.T) (*Manager, *storage.PL, *platform.FakeClock, *platform.RecordingWakeupSlot) {
	t.Helper()
	exec, err := platform.NewMemExecutor("")
	if err != nil {
		t.Fatalf("NewMemExecutor: %v", err)
	}
	pl := storage.New(exec, logx.Nop())
	clock := platform.NewFakeClock(1000)
	slot := &platform.RecordingWakeupSlot{}
	m := New(pl, slot, clock, WithLogger(logx.Nop()))
	return m, pl, clock, slot
}

func TestManager_SingleDelayNoHibernation(t *testing.T) {
	t.Parallel()
	m, _, clock, slot := newTestManager(t)
	ctx := context.Background()

	if err := m.Schedule(ctx, ScheduleOptions{ID: "a1", Type: "xstate-delay", ScheduledAt: 2000}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if d, ok := slot.Last(); !ok || d != 2000 {
		t.Fatalf("expected slot armed at 2000, got %v, %v", d, ok)
	}

	clock.Set(2000)
	var fired []string
	results, err := m.HandleDue(ctx, func(a Alarm) error {
		fired = append(fired, a.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("handleDue: %v", err)
	}
	if len(fired) != 1 || fired[0] != "a1" {
		t.Fatalf("expected a1 to fire, got %v", fired)
	}
	if len(results) != 1 || !results[0].Deleted || results[0].Rescheduled {
		t.Fatalf("unexpected drain result: %+v", results)
	}

	if _, ok := m.GetCurrentArmed(); ok {
		t.Fatalf("expected no alarm armed after single delay fires")
	}
}

func TestManager_RecurringAlarmReschedulesAtNowPlusInterval(t *testing.T) {
	t.Parallel()
	m, _, clock, _ := newTestManager(t)
	ctx := context.Background()

	if err := m.Schedule(ctx, ScheduleOptions{ID: "r1", Type: "cache-cleanup", ScheduledAt: 2000, RepeatInterval: 500}); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	clock.Set(2600) // fires late; missed-ticks policy: no catch-up
	results, err := m.HandleDue(ctx, func(a Alarm) error { return nil })
	if err != nil {
		t.Fatalf("handleDue: %v", err)
	}
	if len(results) != 1 || !results[0].Rescheduled || results[0].Deleted {
		t.Fatalf("expected reschedule, got %+v", results)
	}

	pending, err := m.ListPending(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("listPending = %+v, %v", pending, err)
	}
	if want := int64(2600 + 500); pending[0].ScheduledAt != want {
		t.Fatalf("expected rescheduled to now+interval=%d, got %d", want, pending[0].ScheduledAt)
	}

	armed, ok := m.GetCurrentArmed()
	if !ok || armed.Time != pending[0].ScheduledAt {
		t.Fatalf("expected rearm to new deadline, got %+v, %v", armed, ok)
	}
}

func TestManager_CancelBeforeFireNeverInvokesHandler(t *testing.T) {
	t.Parallel()
	m, _, clock, _ := newTestManager(t)
	ctx := context.Background()

	if err := m.Schedule(ctx, ScheduleOptions{ID: "c1", Type: "xstate-delay", ScheduledAt: 2000}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := m.Cancel(ctx, "c1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, ok := m.GetCurrentArmed(); ok {
		t.Fatalf("expected no alarm armed after canceling the only alarm")
	}

	clock.Set(2000)
	called := false
	if _, err := m.HandleDue(ctx, func(a Alarm) error { called = true; return nil }); err != nil {
		t.Fatalf("handleDue: %v", err)
	}
	if called {
		t.Fatalf("handler invoked for a canceled alarm")
	}
}

func TestManager_RearmCalledTwiceIssuesSetWakeupAtMostOnce(t *testing.T) {
	t.Parallel()
	m, _, _, slot := newTestManager(t)
	ctx := context.Background()

	if err := m.Schedule(ctx, ScheduleOptions{ID: "x", Type: "custom", ScheduledAt: 5000}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	before := len(slot.Calls())

	if err := m.Rearm(ctx); err != nil {
		t.Fatalf("rearm: %v", err)
	}
	if err := m.Rearm(ctx); err != nil {
		t.Fatalf("rearm: %v", err)
	}

	if after := len(slot.Calls()); after != before {
		t.Fatalf("expected no additional SetWakeup calls from redundant rearm, went from %d to %d", before, after)
	}
}

func TestManager_HandlerErrorIsSwallowedAndDoesNotAbortDrain(t *testing.T) {
	t.Parallel()
	m, _, clock, _ := newTestManager(t)
	ctx := context.Background()

	if err := m.Schedule(ctx, ScheduleOptions{ID: "bad", Type: "custom", ScheduledAt: 1000}); err != nil {
		t.Fatalf("schedule bad: %v", err)
	}
	if err := m.Schedule(ctx, ScheduleOptions{ID: "good", Type: "custom", ScheduledAt: 1000}); err != nil {
		t.Fatalf("schedule good: %v", err)
	}

	clock.Set(1000)
	var seen []string
	results, err := m.HandleDue(ctx, func(a Alarm) error {
		seen = append(seen, a.ID)
		if a.ID == "bad" {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("handleDue returned error even though handler errors must be swallowed: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected both alarms handled despite one erroring, got %v", seen)
	}
	if len(results) != 2 {
		t.Fatalf("expected both drain results recorded, got %+v", results)
	}
}

func TestManager_HandlerPanicIsRecoveredAndDoesNotAbortDrain(t *testing.T) {
	t.Parallel()
	m, _, clock, _ := newTestManager(t)
	ctx := context.Background()

	if err := m.Schedule(ctx, ScheduleOptions{ID: "panics", Type: "custom", ScheduledAt: 1000}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := m.Schedule(ctx, ScheduleOptions{ID: "fine", Type: "custom", ScheduledAt: 1000}); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	clock.Set(1000)
	var seen []string
	results, err := m.HandleDue(ctx, func(a Alarm) error {
		seen = append(seen, a.ID)
		if a.ID == "panics" {
			panic("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("handleDue: %v", err)
	}
	if len(seen) != 2 || len(results) != 2 {
		t.Fatalf("expected drain to continue past a panicking handler, seen=%v results=%+v", seen, results)
	}
}

func TestManager_CancelByTypeRemovesAllMatchingAndRearms(t *testing.T) {
	t.Parallel()
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()

	if err := m.Schedule(ctx, ScheduleOptions{ID: "d1", Type: "xstate-delay", ScheduledAt: 1500}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := m.Schedule(ctx, ScheduleOptions{ID: "d2", Type: "xstate-delay", ScheduledAt: 1600}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := m.Schedule(ctx, ScheduleOptions{ID: "k1", Type: "cache-cleanup", ScheduledAt: 1700}); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	if err := m.CancelByType(ctx, "xstate-delay"); err != nil {
		t.Fatalf("cancelByType: %v", err)
	}

	pending, err := m.ListPending(ctx)
	if err != nil || len(pending) != 1 || pending[0].ID != "k1" {
		t.Fatalf("listPending = %+v, %v", pending, err)
	}
	armed, ok := m.GetCurrentArmed()
	if !ok || armed.ID != "k1" {
		t.Fatalf("expected rearm to remaining alarm k1, got %+v, %v", armed, ok)
	}
}

func TestManager_ListDueDoesNotMutate(t *testing.T) {
	t.Parallel()
	m, _, clock, _ := newTestManager(t)
	ctx := context.Background()

	if err := m.Schedule(ctx, ScheduleOptions{ID: "z", Type: "custom", ScheduledAt: 1000}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	clock.Set(1000)

	due, err := m.ListDue(ctx, 0)
	if err != nil || len(due) != 1 {
		t.Fatalf("listDue = %+v, %v", due, err)
	}

	pending, err := m.ListPending(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected listDue to leave the alarm untouched: %+v, %v", pending, err)
	}
}
