package storage

import (
	"context"

	"wakeloop/internal/platform"
)

// Snapshot is a single opaque serialized-FSM-state row. PL carries it
// through unparsed; the snapshot wire format belongs to the FSM
// collaborator, not to this layer.
type Snapshot struct {
	ActorID   string
	Data      string
	UpdatedAt int64
}

// GetSnapshot reads the snapshot row for actorID, if any.
func (p *PL) GetSnapshot(ctx context.Context, actorID string) (Snapshot, bool, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return Snapshot{}, false, err
	}
	qr, err := p.db.Exec(ctx, platform.QueryGetSnapshot, actorID)
	if err != nil {
		return Snapshot{}, false, err
	}
	records, err := platform.Normalize(ctx, qr)
	if err != nil {
		return Snapshot{}, false, err
	}
	if len(records) == 0 {
		return Snapshot{}, false, nil
	}
	data, err := recordString(records[0], "data")
	if err != nil {
		return Snapshot{}, false, err
	}
	updatedAt, err := recordInt64(records[0], "updated_at")
	if err != nil {
		return Snapshot{}, false, err
	}
	return Snapshot{ActorID: actorID, Data: data, UpdatedAt: updatedAt}, true, nil
}

// PutSnapshot upserts the snapshot row for actorID.
func (p *PL) PutSnapshot(ctx context.Context, actorID, data string, updatedAt int64) error {
	if err := p.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := p.db.Exec(ctx, platform.QueryPutSnapshot, actorID, data, updatedAt)
	return err
}

// DeleteSnapshot removes the snapshot row for actorID, if present.
func (p *PL) DeleteSnapshot(ctx context.Context, actorID string) error {
	if err := p.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := p.db.Exec(ctx, platform.QueryDeleteSnapshot, actorID)
	return err
}
