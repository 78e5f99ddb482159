package config

import (
	"sort"
	"strings"

	logx "wakeloop/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed top-level
// sections and safe structured attrs for logging (the config document
// carries no secrets, but we still avoid dumping whole sections at
// non-debug levels).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.Alarms != newCfg.Alarms {
		changed = append(changed, "alarms")
		attrs = append(attrs,
			logx.Bool("alarms.enable_alarms", newCfg.Alarms.EnableAlarms),
			logx.Bool("alarms.persisted", newCfg.Alarms.Persisted),
			logx.Int64("alarms.retention_interval_ms", newCfg.Alarms.RetentionIntervalMs),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(newCfg.Storage.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(newCfg.Storage.Path) != ""),
			logx.String("storage.busy_timeout", strings.TrimSpace(newCfg.Storage.BusyTimeout)),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Host != newCfg.Host {
		changed = append(changed, "host")
		attrs = append(attrs,
			logx.String("host.unit_id", newCfg.Host.UnitID),
			logx.String("host.wakeup_poll", strings.TrimSpace(newCfg.Host.WakeupPoll)),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
