// Package storage implements the Persistence Layer: a thin, SQL-backed
// store over three tables (alarms, actor_meta, snapshots). It bootstraps
// its schema lazily and at most once per process incarnation, normalizes
// whatever row shape the underlying platform.SQLExecutor hands back, and
// always binds SQL parameters as individual scalars.
package storage
