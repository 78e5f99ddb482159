package platform

// These are the exact, fixed query strings the Persistence Layer issues
// against a SQLExecutor. They live here (rather than in internal/storage)
// so the dependency-free MemExecutor can recognize them by exact text
// without storage and platform importing each other in a cycle; the SQL
// schema they encode is still normative per the spec (column order, types,
// index definition) and is only ever written once from internal/storage.
const (
	QueryCreateAlarms    = `CREATE TABLE IF NOT EXISTS alarms (id TEXT PRIMARY KEY, type TEXT NOT NULL, scheduled_at INTEGER NOT NULL, repeat_interval INTEGER, payload TEXT NOT NULL, created_at INTEGER NOT NULL)`
	QueryCreateAlarmsIdx = `CREATE INDEX IF NOT EXISTS idx_alarms_scheduled_at ON alarms(scheduled_at)`
	QueryCreateActorMeta = `CREATE TABLE IF NOT EXISTS actor_meta (actor_id TEXT NOT NULL, key TEXT NOT NULL, value TEXT, updated_at INTEGER NOT NULL, PRIMARY KEY(actor_id, key))`
	QueryCreateSnapshots = `CREATE TABLE IF NOT EXISTS snapshots (actor_id TEXT PRIMARY KEY, data TEXT NOT NULL, updated_at INTEGER NOT NULL)`

	QueryListAlarms         = `SELECT id, type, scheduled_at, repeat_interval, payload, created_at FROM alarms ORDER BY scheduled_at ASC, created_at ASC`
	QueryDueAlarms          = `SELECT id, type, scheduled_at, repeat_interval, payload, created_at FROM alarms WHERE scheduled_at <= ? ORDER BY scheduled_at ASC, created_at ASC`
	QueryEarliestAlarm      = `SELECT id, type, scheduled_at, repeat_interval, payload, created_at FROM alarms ORDER BY scheduled_at ASC, created_at ASC LIMIT 1`
	QueryInsertAlarm        = `INSERT INTO alarms (id, type, scheduled_at, repeat_interval, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	QueryUpdateAlarm        = `UPDATE alarms SET scheduled_at = ?, repeat_interval = ?, payload = ? WHERE id = ?`
	QueryDeleteAlarm        = `DELETE FROM alarms WHERE id = ?`
	QueryDeleteAlarmsByType = `DELETE FROM alarms WHERE type = ?`

	QueryGetActorMeta  = `SELECT value FROM actor_meta WHERE actor_id = ? AND key = ?`
	QueryListActorMeta = `SELECT key, value FROM actor_meta WHERE actor_id = ?`
	QueryPutActorMeta  = `INSERT INTO actor_meta (actor_id, key, value, updated_at) VALUES (?, ?, ?, ?) ON CONFLICT(actor_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	QueryGetSnapshot    = `SELECT data, updated_at FROM snapshots WHERE actor_id = ?`
	QueryPutSnapshot    = `INSERT INTO snapshots (actor_id, data, updated_at) VALUES (?, ?, ?) ON CONFLICT(actor_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	QueryDeleteSnapshot = `DELETE FROM snapshots WHERE actor_id = ?`
)
