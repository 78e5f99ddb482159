package storage

import (
	"context"
	"fmt"

	"wakeloop/internal/platform"
)

// ListAlarms returns all alarm rows ordered by scheduled_at ascending.
func (p *PL) ListAlarms(ctx context.Context) ([]Alarm, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}
	qr, err := p.db.Exec(ctx, platform.QueryListAlarms)
	if err != nil {
		return nil, err
	}
	return decodeAlarms(ctx, qr)
}

// DueAlarms returns alarm rows with scheduled_at <= before, ordered by
// scheduled_at ascending.
func (p *PL) DueAlarms(ctx context.Context, before int64) ([]Alarm, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}
	qr, err := p.db.Exec(ctx, platform.QueryDueAlarms, before)
	if err != nil {
		return nil, err
	}
	return decodeAlarms(ctx, qr)
}

// EarliestAlarm returns the alarm with the minimum scheduled_at, or
// ok=false if the table is empty.
func (p *PL) EarliestAlarm(ctx context.Context) (Alarm, bool, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return Alarm{}, false, err
	}
	qr, err := p.db.Exec(ctx, platform.QueryEarliestAlarm)
	if err != nil {
		return Alarm{}, false, err
	}
	alarms, err := decodeAlarms(ctx, qr)
	if err != nil {
		return Alarm{}, false, err
	}
	if len(alarms) == 0 {
		return Alarm{}, false, nil
	}
	return alarms[0], true, nil
}

// InsertAlarm inserts exactly one row. It fails with *DuplicateAlarmIDError
// if opts.ID already exists, and with the wrapped driver error otherwise.
func (p *PL) InsertAlarm(ctx context.Context, opts InsertAlarmOptions) error {
	if err := p.ensureSchema(ctx); err != nil {
		return err
	}
	var repeat any
	if opts.RepeatInterval > 0 {
		repeat = opts.RepeatInterval
	}
	_, err := p.db.Exec(ctx, platform.QueryInsertAlarm,
		opts.ID, opts.Type, opts.ScheduledAt, repeat, opts.Payload, opts.CreatedAt)
	if err != nil {
		if existing, lerr := p.ListAlarms(ctx); lerr == nil {
			for _, a := range existing {
				if a.ID == opts.ID {
					return &DuplicateAlarmIDError{ID: opts.ID}
				}
			}
		}
		return fmt.Errorf("insertAlarm %s: %w", opts.ID, err)
	}
	return nil
}

// UpdateAlarm mutates scheduled_at, repeat_interval, and payload in place
// for an existing id. It is not an error if id is absent.
func (p *PL) UpdateAlarm(ctx context.Context, opts UpdateAlarmOptions) error {
	if err := p.ensureSchema(ctx); err != nil {
		return err
	}
	var repeat any
	if opts.RepeatInterval > 0 {
		repeat = opts.RepeatInterval
	}
	_, err := p.db.Exec(ctx, platform.QueryUpdateAlarm,
		opts.ScheduledAt, repeat, opts.Payload, opts.ID)
	if err != nil {
		return fmt.Errorf("updateAlarm %s: %w", opts.ID, err)
	}
	return nil
}

// DeleteAlarm removes the row for id if present. Not an error if absent.
func (p *PL) DeleteAlarm(ctx context.Context, id string) error {
	if err := p.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := p.db.Exec(ctx, platform.QueryDeleteAlarm, id)
	if err != nil {
		return fmt.Errorf("deleteAlarm %s: %w", id, err)
	}
	return nil
}

// DeleteAlarmsByType removes every row with the given type, atomically.
func (p *PL) DeleteAlarmsByType(ctx context.Context, alarmType string) error {
	if err := p.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := p.db.Exec(ctx, platform.QueryDeleteAlarmsByType, alarmType)
	if err != nil {
		return fmt.Errorf("deleteAlarmsByType %s: %w", alarmType, err)
	}
	return nil
}

func decodeAlarms(ctx context.Context, qr platform.QueryResult) ([]Alarm, error) {
	records, err := platform.Normalize(ctx, qr)
	if err != nil {
		return nil, err
	}
	out := make([]Alarm, 0, len(records))
	for _, rec := range records {
		a, err := decodeAlarmRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func decodeAlarmRecord(rec platform.Record) (Alarm, error) {
	id, err := recordString(rec, "id")
	if err != nil {
		return Alarm{}, err
	}
	typ, err := recordString(rec, "type")
	if err != nil {
		return Alarm{}, err
	}
	scheduledAt, err := recordInt64(rec, "scheduled_at")
	if err != nil {
		return Alarm{}, err
	}
	repeat, err := recordOptionalInt64(rec, "repeat_interval")
	if err != nil {
		return Alarm{}, err
	}
	payload, err := recordString(rec, "payload")
	if err != nil {
		return Alarm{}, err
	}
	createdAt, err := recordInt64(rec, "created_at")
	if err != nil {
		return Alarm{}, err
	}
	return Alarm{
		ID:             id,
		Type:           typ,
		ScheduledAt:    scheduledAt,
		RepeatInterval: repeat,
		Payload:        payload,
		CreatedAt:      createdAt,
	}, nil
}

func recordString(rec platform.Record, key string) (string, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("column %s: expected string, got %T", key, v)
	}
	return s, nil
}

func recordInt64(rec platform.Record, key string) (int64, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return 0, nil
	}
	return coerceInt64(key, v)
}

func recordOptionalInt64(rec platform.Record, key string) (int64, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return 0, nil
	}
	return coerceInt64(key, v)
}

func coerceInt64(key string, v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("column %s: expected integer, got %T", key, v)
	}
}
