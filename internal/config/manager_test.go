package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const baseYAML = `
alarms:
  enable_alarms: true
  persisted: true
  retention_interval_ms: 300000
storage:
  driver: mem
  path: ""
logging:
  level: info
  console: true
  file:
    enabled: false
host:
  unit_id: unit-a
`

func TestConfigManager_ParseYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", baseYAML)

	m := NewConfigManager(path)
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cfg.Alarms.EnableAlarms || !cfg.Alarms.Persisted {
		t.Fatalf("unexpected alarms config: %+v", cfg.Alarms)
	}
	if cfg.Storage.Driver != "mem" {
		t.Fatalf("unexpected storage driver: %q", cfg.Storage.Driver)
	}
	if cfg.Host.UnitID != "unit-a" {
		t.Fatalf("unexpected unit id: %q", cfg.Host.UnitID)
	}
}

func TestConfigManager_ParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", baseYAML+"\nbogus_section:\n  x: 1\n")

	m := NewConfigManager(path)
	if _, err := m.Parse(); err == nil {
		t.Fatalf("expected error for unknown top-level field")
	}
}

func TestConfigManager_LoadCommitsAndGet(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", baseYAML)

	m := NewConfigManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := m.Get(); got == nil || got.Host.UnitID != "unit-a" {
		t.Fatalf("unexpected committed config: %+v", got)
	}
}

func TestConfigManager_WatchPublishesOnChange(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", baseYAML)

	m := NewConfigManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	ch := m.Subscribe(4)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()

	// give the watcher goroutine time to register the directory watch.
	time.Sleep(150 * time.Millisecond)
	writeConfig(t, dir, "config.yaml", `
alarms:
  enable_alarms: true
  persisted: true
  retention_interval_ms: 300000
storage:
  driver: mem
  path: ""
logging:
  level: info
  console: true
  file:
    enabled: false
host:
  unit_id: unit-b
`)

	select {
	case cfg := <-ch:
		if cfg.Host.UnitID != "unit-b" {
			t.Fatalf("unexpected published config: %+v", cfg)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for config publish")
	}

	cancel()
	<-done
}

func TestConfigManager_ValidatorRejectsCommit(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", baseYAML)

	m := NewConfigManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	before := m.Get()

	m.SetValidator(func(ctx context.Context, cfg *Config) error {
		return os.ErrInvalid
	})

	ch := m.Subscribe(4)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()

	time.Sleep(150 * time.Millisecond)
	writeConfig(t, dir, "config.yaml", `
alarms:
  enable_alarms: false
  persisted: false
storage:
  driver: mem
  path: ""
logging:
  level: info
  console: true
  file:
    enabled: false
host:
  unit_id: unit-rejected
`)

	select {
	case cfg := <-ch:
		t.Fatalf("expected no publish after validator rejection, got %+v", cfg)
	case <-time.After(1200 * time.Millisecond):
		// expected: validator rejected the reload.
	}

	if got := m.Get(); got.Host.UnitID != before.Host.UnitID {
		t.Fatalf("committed config changed despite validator rejection: %+v", got)
	}

	cancel()
	<-done
}

func TestSummarizeConfigChange_DetectsPerSectionDelta(t *testing.T) {
	t.Parallel()
	oldCfg := &Config{
		Alarms:  AlarmsConfig{EnableAlarms: true, RetentionIntervalMs: 300000},
		Storage: StorageConfig{Driver: "mem"},
		Logging: LoggingConfig{Level: "info"},
		Host:    HostConfig{UnitID: "unit-a"},
	}
	newCfg := &Config{
		Alarms:  AlarmsConfig{EnableAlarms: true, RetentionIntervalMs: 600000},
		Storage: StorageConfig{Driver: "mem"},
		Logging: LoggingConfig{Level: "debug"},
		Host:    HostConfig{UnitID: "unit-a"},
	}

	changed, _ := SummarizeConfigChange(oldCfg, newCfg)
	if len(changed) != 2 || changed[0] != "alarms" || changed[1] != "logging" {
		t.Fatalf("unexpected changed sections: %v", changed)
	}
}

func TestSummarizeConfigChange_NoDeltaWhenEqual(t *testing.T) {
	t.Parallel()
	cfg := &Config{Host: HostConfig{UnitID: "unit-a"}}
	changed, _ := SummarizeConfigChange(cfg, cfg)
	if len(changed) != 0 {
		t.Fatalf("expected no changes, got %v", changed)
	}
}
