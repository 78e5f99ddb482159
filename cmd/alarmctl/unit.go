package main

import (
	"fmt"

	"wakeloop/internal/alarm"
	"wakeloop/internal/app"
	"wakeloop/internal/config"
	"wakeloop/internal/platform"
	"wakeloop/internal/storage"
	"wakeloop/internal/timeradapter"
	"wakeloop/internal/wakeuphandler"
	logx "wakeloop/pkg/logx"
)

// unit is a unit's store and component graph opened directly by the
// CLI, without a running host process. It never hosts a real FSM
// system (the Timer Adapter is built with sys=nil, which only matters
// for xstate-delay deliveries: drain still runs PL/AM's own mechanics
// fine) and it never arms a real platform timer: the wakeup slot is a
// RecordingWakeupSlot so AM's arm/rearm bookkeeping still runs, it just
// has nothing to actually wake.
type unit struct {
	pl   *storage.PL
	am   *alarm.Manager
	ta   *timeradapter.Adapter
	wh   *wakeuphandler.Handler
	db   platform.SQLExecutor
	cfg  *config.Config
	slot *platform.RecordingWakeupSlot
}

// openUnit opens the store named by cfgPath's storage config. nowOverrideMs,
// when non-zero, pins AM's notion of "now" to that absolute millisecond
// timestamp instead of the real wall clock, for alarmctl drain --now.
func openUnit(cfgPath string, nowOverrideMs int64) (*unit, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	_, log := logx.New(logx.Config{Level: "warn", Console: true})

	db, err := app.OpenStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	pl := storage.New(db, log.For("storage"))
	var clock platform.Clock = platform.SystemClock{}
	if nowOverrideMs != 0 {
		clock = platform.NewFakeClock(nowOverrideMs)
	}
	slot := &platform.RecordingWakeupSlot{}

	am := alarm.New(pl, slot, clock, alarm.WithLogger(log))
	ta := timeradapter.New(am, nil, log)

	retention := cfg.Alarms.RetentionIntervalMs
	if retention <= 0 {
		retention = 300000
	}
	wh := wakeuphandler.New(am, ta, pl, log, wakeuphandler.WithRetentionInterval(retention))

	return &unit{pl: pl, am: am, ta: ta, wh: wh, db: db, cfg: cfg, slot: slot}, nil
}

func (u *unit) Close() error {
	if closer, ok := u.db.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
