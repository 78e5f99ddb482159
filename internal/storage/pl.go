package storage

import (
	"context"
	"sync"

	"wakeloop/internal/platform"
	logx "wakeloop/pkg/logx"
)

// PL is the Persistence Layer: the transactional, SQL-backed store over
// alarms, actor_meta, and snapshots. It is the sole owner of schema
// bootstrap and result-shape normalization; every other component talks
// to PL, never to the underlying platform.SQLExecutor directly.
type PL struct {
	db  platform.SQLExecutor
	log logx.Logger

	bootstrapOnce sync.Once
	bootstrapErr  error
}

// New wraps an already-open SQLExecutor as a Persistence Layer. Schema
// bootstrap does not run here; it runs lazily on first use (see
// ensureSchema), so opening a PL is always cheap.
func New(db platform.SQLExecutor, log logx.Logger) *PL {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &PL{db: db, log: log}
}

// ensureSchema issues the CREATE TABLE/INDEX IF NOT EXISTS statements
// exactly once per PL instance (one process incarnation owns exactly one
// PL instance per compute unit), regardless of how many operations are
// subsequently called. A failure here is logged and rethrown to every
// caller for the lifetime of the PL, since a broken schema statement is
// not self-healing on retry.
func (p *PL) ensureSchema(ctx context.Context) error {
	p.bootstrapOnce.Do(func() {
		for _, stmt := range []string{
			platform.QueryCreateAlarms,
			platform.QueryCreateAlarmsIdx,
			platform.QueryCreateActorMeta,
			platform.QueryCreateSnapshots,
		} {
			if _, err := p.db.Exec(ctx, stmt); err != nil {
				p.log.Error("schema bootstrap failed", logx.String("stmt", stmt), logx.Err(err))
				p.bootstrapErr = err
				return
			}
		}
	})
	return p.bootstrapErr
}
