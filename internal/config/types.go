package config

// Config is the host's configuration document, loaded from YAML or JSON
// and hot-reloaded by ConfigManager while the process runs.
type Config struct {
	Alarms  AlarmsConfig  `json:"alarms"`
	Storage StorageConfig `json:"storage"`
	Logging LoggingConfig `json:"logging"`
	Host    HostConfig    `json:"host"`
}

// AlarmsConfig mirrors the construction-time options named in the
// collaborator surface: whether the durable alarm core is active at
// all, whether snapshots are persisted, and the period of the built-in
// cache-cleanup recurring alarm.
type AlarmsConfig struct {
	EnableAlarms bool `json:"enable_alarms"`
	Persisted    bool `json:"persisted"`

	// RetentionIntervalMs is the cache-cleanup sweep period, in
	// milliseconds, matching the persisted alarm wire format rather
	// than a host-configuration duration string.
	RetentionIntervalMs int64 `json:"retention_interval_ms,omitempty"`
}

// StorageConfig selects and configures the Persistence Layer's backing
// SQLExecutor.
type StorageConfig struct {
	Driver string `json:"driver"` // "sqlite" | "file" | "mem"
	Path   string `json:"path"`
	// BusyTimeout is a Go duration string (e.g. "5s"), used only by the
	// sqlite driver.
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// LoggingConfig controls pkg/logx's console and file sinks.
type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// HostConfig names the compute unit and carries the wakeup_poll setting.
type HostConfig struct {
	UnitID string `json:"unit_id"`
	// WakeupPoll is a Go duration string. It is validated on load and
	// reload; the simulated wakeup slot does not read it.
	WakeupPoll string `json:"wakeup_poll,omitempty"`
}
