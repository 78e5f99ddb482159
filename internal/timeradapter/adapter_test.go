package timeradapter

import (
	"context"
	"testing"

	"wakeloop/internal/alarm"
	"wakeloop/internal/fsmhost"
	"wakeloop/internal/platform"
	"wakeloop/internal/storage"
	logx "wakeloop/pkg/logx"
)

type fakeActor struct {
	sessionID string
	sent      []fsmhost.Event
}

func (f *fakeActor) SessionID() string { return f.sessionID }
func (f *fakeActor) Send(evt fsmhost.Event) { f.sent = append(f.sent, evt) }

type fakeSystem struct {
	actors     map[string]*fakeActor
	relayCalls int
	relayOK    bool
}

func newFakeSystem(relayOK bool, actors ...*fakeActor) *fakeSystem {
	m := map[string]*fakeActor{}
	for _, a := range actors {
		m[a.sessionID] = a
	}
	return &fakeSystem{actors: m, relayOK: relayOK}
}

func (s *fakeSystem) Lookup(sessionID string) (fsmhost.ActorRef, bool) {
	a, ok := s.actors[sessionID]
	if !ok {
		return nil, false
	}
	return a, true
}

func (s *fakeSystem) Relay(source, target fsmhost.ActorRef, evt fsmhost.Event) bool {
	s.relayCalls++
	if !s.relayOK {
		return false
	}
	target.(*fakeActor).sent = append(target.(*fakeActor).sent, evt)
	return true
}

func newTestAdapter(t *testing.T, sys fsmhost.System) (*Adapter, *alarm.Manager, *platform.FakeClock) {
	t.Helper()
	exec, err := platform.NewMemExecutor("")
	if err != nil {
		t.Fatalf("NewMemExecutor: %v", err)
	}
	pl := storage.New(exec, logx.Nop())
	clock := platform.NewFakeClock(1000)
	slot := &platform.RecordingWakeupSlot{}
	am := alarm.New(pl, slot, clock, alarm.WithLogger(logx.Nop()))
	return New(am, sys, logx.Nop()), am, clock
}

func TestAdapter_ScheduleThenDeliverRelays(t *testing.T) {
	t.Parallel()
	source := &fakeActor{sessionID: "sess-1"}
	target := &fakeActor{sessionID: "sess-1"}
	sys := newFakeSystem(true, source, target)
	ta, am, clock := newTestAdapter(t, sys)
	ctx := context.Background()

	key, err := ta.Schedule(ctx, source, target, fsmhost.Event{Type: "TICK"}, 500, "", clock.NowMillis())
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if key == "" {
		t.Fatalf("expected a generated fsmEventKey")
	}
	if ta.IndexLen() != 1 {
		t.Fatalf("expected one index entry, got %d", ta.IndexLen())
	}

	clock.Advance(500)
	results, err := am.HandleDue(ctx, func(a alarm.Alarm) error {
		return ta.Deliver(ctx, a.Payload)
	})
	if err != nil {
		t.Fatalf("handleDue: %v", err)
	}
	if len(results) != 1 || !results[0].Deleted {
		t.Fatalf("unexpected drain results: %+v", results)
	}
	if ta.IndexLen() != 0 {
		t.Fatalf("expected index entry removed after delivery")
	}
	if sys.relayCalls != 1 {
		t.Fatalf("expected relay to be attempted once, got %d", sys.relayCalls)
	}
	if len(target.sent) != 1 || target.sent[0].Type != "TICK" {
		t.Fatalf("expected target to receive TICK, got %+v", target.sent)
	}
}

func TestAdapter_DeliverFallsBackToSendWhenNoRelay(t *testing.T) {
	t.Parallel()
	source := &fakeActor{sessionID: "sess-1"}
	target := &fakeActor{sessionID: "sess-2"}
	sys := newFakeSystem(false, source, target)
	ta, am, clock := newTestAdapter(t, sys)
	ctx := context.Background()

	if _, err := ta.Schedule(ctx, source, target, fsmhost.Event{Type: "GO"}, 100, "evt1", clock.NowMillis()); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	clock.Advance(100)
	if _, err := am.HandleDue(ctx, func(a alarm.Alarm) error { return ta.Deliver(ctx, a.Payload) }); err != nil {
		t.Fatalf("handleDue: %v", err)
	}
	if len(target.sent) != 1 || target.sent[0].Type != "GO" {
		t.Fatalf("expected fallback Send to deliver GO, got %+v", target.sent)
	}
}

func TestAdapter_CancelRemovesIndexAndAlarm(t *testing.T) {
	t.Parallel()
	source := &fakeActor{sessionID: "sess-1"}
	target := &fakeActor{sessionID: "sess-1"}
	sys := newFakeSystem(true, source, target)
	ta, am, clock := newTestAdapter(t, sys)
	ctx := context.Background()

	if _, err := ta.Schedule(ctx, source, target, fsmhost.Event{Type: "TICK"}, 500, "fixed-key", clock.NowMillis()); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := ta.Cancel(ctx, source, "fixed-key"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if ta.IndexLen() != 0 {
		t.Fatalf("expected index empty after cancel")
	}

	clock.Advance(500)
	var invoked bool
	if _, err := am.HandleDue(ctx, func(a alarm.Alarm) error { invoked = true; return nil }); err != nil {
		t.Fatalf("handleDue: %v", err)
	}
	if invoked {
		t.Fatalf("expected canceled alarm to never fire")
	}
}

func TestAdapter_CancelAllMatchesBySourceSession(t *testing.T) {
	t.Parallel()
	source := &fakeActor{sessionID: "sess-1"}
	other := &fakeActor{sessionID: "sess-2"}
	target := &fakeActor{sessionID: "sess-1"}
	sys := newFakeSystem(true, source, other, target)
	ta, _, clock := newTestAdapter(t, sys)
	ctx := context.Background()

	if _, err := ta.Schedule(ctx, source, target, fsmhost.Event{Type: "A"}, 100, "k1", clock.NowMillis()); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if _, err := ta.Schedule(ctx, source, target, fsmhost.Event{Type: "B"}, 200, "k2", clock.NowMillis()); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if _, err := ta.Schedule(ctx, other, target, fsmhost.Event{Type: "C"}, 300, "k3", clock.NowMillis()); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	if err := ta.CancelAll(ctx, source); err != nil {
		t.Fatalf("cancelAll: %v", err)
	}
	if ta.IndexLen() != 1 {
		t.Fatalf("expected only other's entry to remain, got %d", ta.IndexLen())
	}
	if _, ok := ta.Lookup("sess-2.k3"); !ok {
		t.Fatalf("expected sess-2's entry untouched by cancelAll(source)")
	}
}

func TestAdapter_RestoreScheduledEventsSkipsPastDeadlines(t *testing.T) {
	t.Parallel()
	source := &fakeActor{sessionID: "sess-1"}
	target := &fakeActor{sessionID: "sess-1"}
	sys := newFakeSystem(true, source, target)
	ta, am, clock := newTestAdapter(t, sys)
	ctx := context.Background()

	if _, err := ta.Schedule(ctx, source, target, fsmhost.Event{Type: "FUTURE"}, 5000, "future", clock.NowMillis()); err != nil {
		t.Fatalf("schedule future: %v", err)
	}
	if _, err := ta.Schedule(ctx, source, target, fsmhost.Event{Type: "PAST"}, 1, "past", clock.NowMillis()); err != nil {
		t.Fatalf("schedule past: %v", err)
	}

	clock.Advance(2000) // past deadline has now elapsed; future has not

	fresh := New(am, sys, logx.Nop())
	if err := fresh.RestoreScheduledEvents(ctx, clock.NowMillis()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if fresh.IndexLen() != 1 {
		t.Fatalf("expected exactly the future entry restored, got %d", fresh.IndexLen())
	}
	if _, ok := fresh.Lookup("sess-1.future"); !ok {
		t.Fatalf("expected future entry present after restore")
	}
	if _, ok := fresh.Lookup("sess-1.past"); ok {
		t.Fatalf("expected past-deadline entry left out of restored index")
	}
}
