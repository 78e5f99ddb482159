package storage

import (
	"context"
	"testing"

	"wakeloop/internal/platform"
)

func newTestPL(t *testing.T) *PL {
	t.Helper()
	exec, err := platform.NewMemExecutor("")
	if err != nil {
		t.Fatalf("NewMemExecutor: %v", err)
	}
	return New(exec, testLogger())
}

func TestPL_InsertListDueEarliest(t *testing.T) {
	t.Parallel()
	pl := newTestPL(t)
	ctx := context.Background()

	if err := pl.InsertAlarm(ctx, InsertAlarmOptions{ID: "B", Type: "custom", ScheduledAt: 200, Payload: "{}", CreatedAt: 1}); err != nil {
		t.Fatalf("insert B: %v", err)
	}
	if err := pl.InsertAlarm(ctx, InsertAlarmOptions{ID: "A", Type: "custom", ScheduledAt: 100, Payload: "{}", CreatedAt: 1}); err != nil {
		t.Fatalf("insert A: %v", err)
	}

	all, err := pl.ListAlarms(ctx)
	if err != nil {
		t.Fatalf("listAlarms: %v", err)
	}
	if len(all) != 2 || all[0].ID != "A" || all[1].ID != "B" {
		t.Fatalf("listAlarms not ordered by scheduled_at: %+v", all)
	}

	earliest, ok, err := pl.EarliestAlarm(ctx)
	if err != nil || !ok || earliest.ID != "A" {
		t.Fatalf("earliestAlarm = %+v, %v, %v", earliest, ok, err)
	}

	due, err := pl.DueAlarms(ctx, 150)
	if err != nil {
		t.Fatalf("dueAlarms: %v", err)
	}
	if len(due) != 1 || due[0].ID != "A" {
		t.Fatalf("dueAlarms(150) = %+v", due)
	}
}

func TestPL_InsertDuplicateIDFails(t *testing.T) {
	t.Parallel()
	pl := newTestPL(t)
	ctx := context.Background()

	opts := InsertAlarmOptions{ID: "A", Type: "custom", ScheduledAt: 100, Payload: "{}", CreatedAt: 1}
	if err := pl.InsertAlarm(ctx, opts); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := pl.InsertAlarm(ctx, opts); err == nil {
		t.Fatalf("expected duplicate id error")
	}

	all, err := pl.ListAlarms(ctx)
	if err != nil {
		t.Fatalf("listAlarms: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one row retained, got %d", len(all))
	}
}

func TestPL_UpdateAlarmMutatesInPlace(t *testing.T) {
	t.Parallel()
	pl := newTestPL(t)
	ctx := context.Background()

	if err := pl.InsertAlarm(ctx, InsertAlarmOptions{ID: "R", Type: "cache-cleanup", ScheduledAt: 100, RepeatInterval: 500, Payload: "{}", CreatedAt: 1}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := pl.UpdateAlarm(ctx, UpdateAlarmOptions{ID: "R", ScheduledAt: 600, RepeatInterval: 500, Payload: "{}"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	all, err := pl.ListAlarms(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("listAlarms = %+v, %v", all, err)
	}
	if all[0].ScheduledAt != 600 || all[0].RepeatInterval != 500 {
		t.Fatalf("update not applied: %+v", all[0])
	}
}

func TestPL_UpdateAbsentIDIsNoop(t *testing.T) {
	t.Parallel()
	pl := newTestPL(t)
	if err := pl.UpdateAlarm(context.Background(), UpdateAlarmOptions{ID: "missing", ScheduledAt: 1, Payload: "{}"}); err != nil {
		t.Fatalf("update on absent id should not error: %v", err)
	}
}

func TestPL_DeleteAlarmAndByType(t *testing.T) {
	t.Parallel()
	pl := newTestPL(t)
	ctx := context.Background()

	for _, a := range []InsertAlarmOptions{
		{ID: "A", Type: "xstate-delay", ScheduledAt: 1, Payload: "{}", CreatedAt: 1},
		{ID: "B", Type: "xstate-delay", ScheduledAt: 2, Payload: "{}", CreatedAt: 1},
		{ID: "C", Type: "cache-cleanup", ScheduledAt: 3, Payload: "{}", CreatedAt: 1},
	} {
		if err := pl.InsertAlarm(ctx, a); err != nil {
			t.Fatalf("insert %s: %v", a.ID, err)
		}
	}

	if err := pl.DeleteAlarm(ctx, "A"); err != nil {
		t.Fatalf("deleteAlarm: %v", err)
	}
	if err := pl.DeleteAlarm(ctx, "missing"); err != nil {
		t.Fatalf("deleteAlarm on absent id should not error: %v", err)
	}
	if err := pl.DeleteAlarmsByType(ctx, "xstate-delay"); err != nil {
		t.Fatalf("deleteAlarmsByType: %v", err)
	}

	all, err := pl.ListAlarms(ctx)
	if err != nil {
		t.Fatalf("listAlarms: %v", err)
	}
	if len(all) != 1 || all[0].ID != "C" {
		t.Fatalf("expected only C left, got %+v", all)
	}
}

func TestPL_SchemaBootstrapRunsOnce(t *testing.T) {
	t.Parallel()
	exec := &countingExecutor{}
	pl := New(exec, testLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, _, err := pl.EarliestAlarm(ctx); err != nil {
			t.Fatalf("earliestAlarm: %v", err)
		}
	}
	if exec.createCalls != 4 {
		t.Fatalf("expected schema statements issued exactly once (4 calls), got %d", exec.createCalls)
	}
}

// countingExecutor wraps a MemExecutor and counts CREATE statements to
// verify bootstrap-once behavior independent of MemExecutor internals.
type countingExecutor struct {
	inner       *platform.MemExecutor
	createCalls int
}

func (c *countingExecutor) Exec(ctx context.Context, query string, args ...any) (platform.QueryResult, error) {
	if c.inner == nil {
		exec, err := platform.NewMemExecutor("")
		if err != nil {
			return platform.QueryResult{}, err
		}
		c.inner = exec
	}
	switch query {
	case platform.QueryCreateAlarms, platform.QueryCreateAlarmsIdx, platform.QueryCreateActorMeta, platform.QueryCreateSnapshots:
		c.createCalls++
	}
	return c.inner.Exec(ctx, query, args...)
}

func TestPL_ActorMetaAndSnapshotRoundTrip(t *testing.T) {
	t.Parallel()
	pl := newTestPL(t)
	ctx := context.Background()

	if err := pl.PutActorMeta(ctx, "unit-1", "state", "running", 10); err != nil {
		t.Fatalf("putActorMeta: %v", err)
	}
	v, ok, err := pl.GetActorMeta(ctx, "unit-1", "state")
	if err != nil || !ok || v != "running" {
		t.Fatalf("getActorMeta = %q, %v, %v", v, ok, err)
	}
	_, ok, err = pl.GetActorMeta(ctx, "unit-1", "missing")
	if err != nil || ok {
		t.Fatalf("expected missing key to be absent, got ok=%v err=%v", ok, err)
	}

	if err := pl.PutSnapshot(ctx, "unit-1", `{"state":"idle"}`, 20); err != nil {
		t.Fatalf("putSnapshot: %v", err)
	}
	snap, ok, err := pl.GetSnapshot(ctx, "unit-1")
	if err != nil || !ok || snap.Data != `{"state":"idle"}` {
		t.Fatalf("getSnapshot = %+v, %v, %v", snap, ok, err)
	}
	if err := pl.DeleteSnapshot(ctx, "unit-1"); err != nil {
		t.Fatalf("deleteSnapshot: %v", err)
	}
	_, ok, err = pl.GetSnapshot(ctx, "unit-1")
	if err != nil || ok {
		t.Fatalf("expected snapshot deleted, got ok=%v err=%v", ok, err)
	}
}
