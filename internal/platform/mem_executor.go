package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MemExecutor is the dependency-free SQLExecutor backend, used when the
// module is built without -tags sqlite. It understands exactly the fixed
// set of queries the Persistence Layer issues (matched by exact query
// text, not by parsing arbitrary SQL) and keeps the three tables as
// in-memory slices/maps, optionally journaled to a single JSON file on
// every mutating call so state survives a process restart the same way
// the teacher repo's dependency-free file store does for its own tables.
//
// It always answers in the ShapeBatches wire shape; the sqlite-backed
// executor answers in ShapeColumnNamesResults. Between the two, PL's
// result-normalization path is exercised against two of the three shapes
// at runtime; the third (ShapeCursor) is exercised directly in
// internal/platform's own tests since no driver in this module naturally
// emits it.
type MemExecutor struct {
	mu   sync.Mutex
	path string

	alarms    []memAlarmRow
	actorMeta map[string]map[string]memMetaValue
	snapshots map[string]memSnapshotRow
}

type memAlarmRow struct {
	ID             string
	Type           string
	ScheduledAt    int64
	RepeatInterval *int64
	Payload        string
	CreatedAt      int64
}

type memMetaValue struct {
	Value     string
	UpdatedAt int64
}

type memSnapshotRow struct {
	Data      string
	UpdatedAt int64
}

type memExecutorDump struct {
	Alarms    []memAlarmRow                      `json:"alarms"`
	ActorMeta map[string]map[string]memMetaValue `json:"actor_meta"`
	Snapshots map[string]memSnapshotRow          `json:"snapshots"`
}

// NewMemExecutor returns an in-memory executor. If path is non-empty, the
// executor loads its initial state from that file (if present) and
// rewrites it after every mutating call.
func NewMemExecutor(path string) (*MemExecutor, error) {
	e := &MemExecutor{
		path:      path,
		actorMeta: map[string]map[string]memMetaValue{},
		snapshots: map[string]memSnapshotRow{},
	}
	if path == "" {
		return e, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return e, nil
		}
		return nil, err
	}
	defer f.Close()
	var dump memExecutorDump
	if err := json.NewDecoder(f).Decode(&dump); err != nil {
		return nil, err
	}
	e.alarms = dump.Alarms
	if dump.ActorMeta != nil {
		e.actorMeta = dump.ActorMeta
	}
	if dump.Snapshots != nil {
		e.snapshots = dump.Snapshots
	}
	return e, nil
}

func (e *MemExecutor) persistLocked() error {
	if e.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return err
	}
	tmp := e.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	dump := memExecutorDump{Alarms: e.alarms, ActorMeta: e.actorMeta, Snapshots: e.snapshots}
	if err := json.NewEncoder(f).Encode(dump); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, e.path)
}

func emptyBatchResult() QueryResult {
	return QueryResult{Shape: ShapeBatches}
}

func batchResult(columns []string, rows [][]any) QueryResult {
	return QueryResult{Shape: ShapeBatches, Batches: []Batch{{Columns: columns, Rows: rows}}}
}

var alarmColumns = []string{"id", "type", "scheduled_at", "repeat_interval", "payload", "created_at"}

func (e *MemExecutor) alarmRowValues(r memAlarmRow) []any {
	var repeat any
	if r.RepeatInterval != nil {
		repeat = *r.RepeatInterval
	}
	return []any{r.ID, r.Type, r.ScheduledAt, repeat, r.Payload, r.CreatedAt}
}

func (e *MemExecutor) sortAlarmsLocked() {
	sort.SliceStable(e.alarms, func(i, j int) bool {
		return e.alarms[i].ScheduledAt < e.alarms[j].ScheduledAt
	})
}

// Exec implements SQLExecutor against the fixed query set PL issues. An
// unrecognized query is a programmer error in PL, not a runtime
// condition to recover from gracefully.
func (e *MemExecutor) Exec(ctx context.Context, query string, args ...any) (QueryResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch query {
	case QueryCreateAlarms, QueryCreateAlarmsIdx, QueryCreateActorMeta, QueryCreateSnapshots:
		return emptyBatchResult(), nil

	case QueryListAlarms:
		e.sortAlarmsLocked()
		rows := make([][]any, 0, len(e.alarms))
		for _, a := range e.alarms {
			rows = append(rows, e.alarmRowValues(a))
		}
		return batchResult(alarmColumns, rows), nil

	case QueryDueAlarms:
		before, err := asInt64(args, 0)
		if err != nil {
			return QueryResult{}, err
		}
		e.sortAlarmsLocked()
		rows := make([][]any, 0)
		for _, a := range e.alarms {
			if a.ScheduledAt <= before {
				rows = append(rows, e.alarmRowValues(a))
			}
		}
		return batchResult(alarmColumns, rows), nil

	case QueryEarliestAlarm:
		e.sortAlarmsLocked()
		if len(e.alarms) == 0 {
			return batchResult(alarmColumns, nil), nil
		}
		return batchResult(alarmColumns, [][]any{e.alarmRowValues(e.alarms[0])}), nil

	case QueryInsertAlarm:
		id, typ, scheduledAt, repeat, payload, createdAt, err := parseInsertAlarmArgs(args)
		if err != nil {
			return QueryResult{}, err
		}
		for _, a := range e.alarms {
			if a.ID == id {
				return QueryResult{}, fmt.Errorf("alarm already exists: %s", id)
			}
		}
		e.alarms = append(e.alarms, memAlarmRow{ID: id, Type: typ, ScheduledAt: scheduledAt, RepeatInterval: repeat, Payload: payload, CreatedAt: createdAt})
		if err := e.persistLocked(); err != nil {
			return QueryResult{}, err
		}
		return emptyBatchResult(), nil

	case QueryUpdateAlarm:
		scheduledAt, repeat, payload, id, err := parseUpdateAlarmArgs(args)
		if err != nil {
			return QueryResult{}, err
		}
		for i := range e.alarms {
			if e.alarms[i].ID == id {
				e.alarms[i].ScheduledAt = scheduledAt
				e.alarms[i].RepeatInterval = repeat
				e.alarms[i].Payload = payload
				break
			}
		}
		if err := e.persistLocked(); err != nil {
			return QueryResult{}, err
		}
		return emptyBatchResult(), nil

	case QueryDeleteAlarm:
		id, err := asString(args, 0)
		if err != nil {
			return QueryResult{}, err
		}
		out := e.alarms[:0]
		for _, a := range e.alarms {
			if a.ID != id {
				out = append(out, a)
			}
		}
		e.alarms = out
		if err := e.persistLocked(); err != nil {
			return QueryResult{}, err
		}
		return emptyBatchResult(), nil

	case QueryDeleteAlarmsByType:
		typ, err := asString(args, 0)
		if err != nil {
			return QueryResult{}, err
		}
		out := e.alarms[:0]
		for _, a := range e.alarms {
			if a.Type != typ {
				out = append(out, a)
			}
		}
		e.alarms = out
		if err := e.persistLocked(); err != nil {
			return QueryResult{}, err
		}
		return emptyBatchResult(), nil

	case QueryGetActorMeta:
		actorID, key, err := asTwoStrings(args)
		if err != nil {
			return QueryResult{}, err
		}
		if m, ok := e.actorMeta[actorID]; ok {
			if v, ok := m[key]; ok {
				return batchResult([]string{"value"}, [][]any{{v.Value}}), nil
			}
		}
		return batchResult([]string{"value"}, nil), nil

	case QueryListActorMeta:
		actorID, err := asString(args, 0)
		if err != nil {
			return QueryResult{}, err
		}
		rows := make([][]any, 0)
		for k, v := range e.actorMeta[actorID] {
			rows = append(rows, []any{k, v.Value})
		}
		return batchResult([]string{"key", "value"}, rows), nil

	case QueryPutActorMeta:
		actorID, key, value, updatedAt, err := parsePutActorMetaArgs(args)
		if err != nil {
			return QueryResult{}, err
		}
		if e.actorMeta[actorID] == nil {
			e.actorMeta[actorID] = map[string]memMetaValue{}
		}
		e.actorMeta[actorID][key] = memMetaValue{Value: value, UpdatedAt: updatedAt}
		if err := e.persistLocked(); err != nil {
			return QueryResult{}, err
		}
		return emptyBatchResult(), nil

	case QueryGetSnapshot:
		actorID, err := asString(args, 0)
		if err != nil {
			return QueryResult{}, err
		}
		if s, ok := e.snapshots[actorID]; ok {
			return batchResult([]string{"data", "updated_at"}, [][]any{{s.Data, s.UpdatedAt}}), nil
		}
		return batchResult([]string{"data", "updated_at"}, nil), nil

	case QueryPutSnapshot:
		actorID, data, updatedAt, err := parsePutSnapshotArgs(args)
		if err != nil {
			return QueryResult{}, err
		}
		e.snapshots[actorID] = memSnapshotRow{Data: data, UpdatedAt: updatedAt}
		if err := e.persistLocked(); err != nil {
			return QueryResult{}, err
		}
		return emptyBatchResult(), nil

	case QueryDeleteSnapshot:
		actorID, err := asString(args, 0)
		if err != nil {
			return QueryResult{}, err
		}
		delete(e.snapshots, actorID)
		if err := e.persistLocked(); err != nil {
			return QueryResult{}, err
		}
		return emptyBatchResult(), nil

	default:
		return QueryResult{}, fmt.Errorf("mem executor: unrecognized query: %s", query)
	}
}

func asString(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing bind argument %d", i)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("bind argument %d is not a string: %T", i, args[i])
	}
	return s, nil
}

func asInt64(args []any, i int) (int64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing bind argument %d", i)
	}
	switch v := args[i].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("bind argument %d is not an integer: %T", i, args[i])
	}
}

func asTwoStrings(args []any) (string, string, error) {
	a, err := asString(args, 0)
	if err != nil {
		return "", "", err
	}
	b, err := asString(args, 1)
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

func parseInsertAlarmArgs(args []any) (id, typ string, scheduledAt int64, repeat *int64, payload string, createdAt int64, err error) {
	if len(args) != 6 {
		return "", "", 0, nil, "", 0, fmt.Errorf("insertAlarm: expected 6 binds, got %d", len(args))
	}
	id, err = asString(args, 0)
	if err != nil {
		return
	}
	typ, err = asString(args, 1)
	if err != nil {
		return
	}
	scheduledAt, err = asInt64(args, 2)
	if err != nil {
		return
	}
	if args[3] != nil {
		v, ierr := asInt64(args, 3)
		if ierr != nil {
			err = ierr
			return
		}
		repeat = &v
	}
	payload, err = asString(args, 4)
	if err != nil {
		return
	}
	createdAt, err = asInt64(args, 5)
	return
}

func parseUpdateAlarmArgs(args []any) (scheduledAt int64, repeat *int64, payload, id string, err error) {
	if len(args) != 4 {
		return 0, nil, "", "", fmt.Errorf("updateAlarm: expected 4 binds, got %d", len(args))
	}
	scheduledAt, err = asInt64(args, 0)
	if err != nil {
		return
	}
	if args[1] != nil {
		v, ierr := asInt64(args, 1)
		if ierr != nil {
			err = ierr
			return
		}
		repeat = &v
	}
	payload, err = asString(args, 2)
	if err != nil {
		return
	}
	id, err = asString(args, 3)
	return
}

func parsePutActorMetaArgs(args []any) (actorID, key, value string, updatedAt int64, err error) {
	if len(args) != 4 {
		return "", "", "", 0, fmt.Errorf("putActorMeta: expected 4 binds, got %d", len(args))
	}
	actorID, err = asString(args, 0)
	if err != nil {
		return
	}
	key, err = asString(args, 1)
	if err != nil {
		return
	}
	value, err = asString(args, 2)
	if err != nil {
		return
	}
	updatedAt, err = asInt64(args, 3)
	return
}

func parsePutSnapshotArgs(args []any) (actorID, data string, updatedAt int64, err error) {
	if len(args) != 3 {
		return "", "", 0, fmt.Errorf("putSnapshot: expected 3 binds, got %d", len(args))
	}
	actorID, err = asString(args, 0)
	if err != nil {
		return
	}
	data, err = asString(args, 1)
	if err != nil {
		return
	}
	updatedAt, err = asInt64(args, 2)
	return
}
