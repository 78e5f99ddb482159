package storage

import (
	"context"

	"wakeloop/internal/platform"
)

// GetActorMeta reads a single key for actorID, returning ok=false if
// absent. ActorMeta's lifecycle belongs to the surrounding runtime; PL
// only exposes plain key/value CRUD over it.
func (p *PL) GetActorMeta(ctx context.Context, actorID, key string) (string, bool, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return "", false, err
	}
	qr, err := p.db.Exec(ctx, platform.QueryGetActorMeta, actorID, key)
	if err != nil {
		return "", false, err
	}
	records, err := platform.Normalize(ctx, qr)
	if err != nil {
		return "", false, err
	}
	if len(records) == 0 {
		return "", false, nil
	}
	v, err := recordString(records[0], "value")
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// ListActorMeta returns every key/value pair stored for actorID.
func (p *PL) ListActorMeta(ctx context.Context, actorID string) (map[string]string, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}
	qr, err := p.db.Exec(ctx, platform.QueryListActorMeta, actorID)
	if err != nil {
		return nil, err
	}
	records, err := platform.Normalize(ctx, qr)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(records))
	for _, rec := range records {
		k, err := recordString(rec, "key")
		if err != nil {
			return nil, err
		}
		v, err := recordString(rec, "value")
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// PutActorMeta upserts a single key for actorID.
func (p *PL) PutActorMeta(ctx context.Context, actorID, key, value string, updatedAt int64) error {
	if err := p.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := p.db.Exec(ctx, platform.QueryPutActorMeta, actorID, key, value, updatedAt)
	return err
}
