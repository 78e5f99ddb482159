// Package app wires one compute unit's full component graph (storage,
// Persistence Layer, Alarm Manager, Timer Adapter, Wakeup Handler) and
// owns its supervised lifecycle. cmd/host's main.go is a thin shell
// around this package: it parses flags/signals and delegates everything
// else to NewApp/Start/Stop.
package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"wakeloop/internal/alarm"
	"wakeloop/internal/eventbus"
	"wakeloop/internal/fsmhost"
	"wakeloop/internal/platform"
	"wakeloop/internal/storage"
	"wakeloop/internal/timeradapter"
	"wakeloop/internal/wakeuphandler"
	logx "wakeloop/pkg/logx"
)

// App wires and supervises one compute unit's component graph.
type App struct {
	cfgPath string

	cfgm *ConfigManager
	sup  *Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	db    platform.SQLExecutor
	pl    *storage.PL
	clock platform.Clock
	slot  *platform.TimerWakeupSlot

	sys *actorRegistry
	am  *alarm.Manager
	ta  *timeradapter.Adapter
	wh  *wakeuphandler.Handler

	// wakeupSignal hands a slot fire off from the timer's own goroutine
	// (platform.TimerWakeupSlot's onFire contract) to the supervised
	// drain loop. Buffered 1: a fire that arrives while a drain is
	// already in flight just needs to guarantee one more drain runs,
	// not queue up redundant ones.
	wakeupSignal chan struct{}
}

// NewApp loads configuration at cfgPath and constructs the full
// component graph leaves-first, per §10.4: storage, PL, AM (wiring the
// wakeup slot), TA, WH. It does not start the supervised run loop or run
// cold-start restore; call Start for that.
func NewApp(cfgPath string) (*App, error) {
	cfgm := NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("unit_id", cfg.Host.UnitID))

	bus := eventbus.New()

	db, err := openExecutor(cfg.Storage)
	if err != nil {
		return nil, err
	}
	pl := storage.New(db, log.For("storage"))

	var clock platform.Clock = platform.SystemClock{}

	a := &App{
		cfgPath:      cfgPath,
		cfgm:         cfgm,
		log:          log,
		logs:         logSvc,
		bus:          bus,
		db:           db,
		pl:           pl,
		clock:        clock,
		wakeupSignal: make(chan struct{}, 1),
	}

	a.slot = platform.NewTimerWakeupSlot(clock, a.onWakeup)
	a.am = alarm.New(pl, a.slot, clock, alarm.WithEventBus(bus), alarm.WithLogger(log))

	a.sys = newActorRegistry(log)
	a.ta = timeradapter.New(a.am, a.sys, log)

	a.wh = wakeuphandler.New(a.am, a.ta, pl, log,
		wakeuphandler.WithUserHandler(a.dispatchUserAlarm),
		wakeuphandler.WithRetentionInterval(effectiveRetentionMs(cfg)),
	)

	return a, nil
}

var errInvalidRetention = errors.New("alarms.retention_interval_ms must be >= 0")

func effectiveRetentionMs(cfg *Config) int64 {
	if cfg.Alarms.RetentionIntervalMs > 0 {
		return cfg.Alarms.RetentionIntervalMs
	}
	return 300000
}

// dispatchUserAlarm routes an alarm type the built-in dispatch table
// doesn't know about. Only TypeCustomCron is recognized today; anything
// else is logged and dropped, matching WH's own no-handler behavior.
func (a *App) dispatchUserAlarm(al alarm.Alarm) error {
	switch al.Type {
	case TypeCustomCron:
		return a.handleCustomCronAlarm(al)
	default:
		a.log.Warn("no user handler for alarm type, dropping", logx.String("id", al.ID), logx.String("type", al.Type))
		return nil
	}
}

// onWakeup is the simulated wakeup slot's fire callback, invoked on the
// timer's own goroutine. It never drains inline; it only signals the
// supervised drain loop.
func (a *App) onWakeup() {
	select {
	case a.wakeupSignal <- struct{}{}:
	default:
	}
}

// Bus exposes the event bus for external subscribers.
func (a *App) Bus() eventbus.Bus { return a.bus }

// AlarmManager exposes the Alarm Manager for callers that need to seed
// or inspect alarms directly.
func (a *App) AlarmManager() *alarm.Manager { return a.am }

// ReloadConfig re-parses the config file immediately and, if it
// validates and differs from the running config, publishes it to the
// reload loop. It exists for triggers that don't come from the file
// watcher, such as a SIGHUP handler in the host process.
func (a *App) ReloadConfig(ctx context.Context) error {
	return a.cfgm.Reload(ctx)
}

// RegisterActor registers a session-scoped actor that can receive
// xstate-delay deliveries through the Timer Adapter.
func (a *App) RegisterActor(sessionID string) fsmhost.ActorRef {
	return a.sys.Register(sessionID)
}

// Start runs cold-start restore (§5 hibernation) and then the supervised
// run loop: the drain loop fed by the simulated wakeup slot, and the
// config watcher. It returns once the graph is fully up; it does not
// block.
func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, WithLogger(a.log), WithCancelOnError(false))

	if a.cfgm.Get().Alarms.EnableAlarms {
		if err := a.coldStartRestore(ctx); err != nil {
			return err
		}
		a.sup.GoRestart0("wakeup.drain", a.drainLoop)
	} else {
		a.log.Info("alarms disabled via config; running config watch only")
	}

	if a.cfgm != nil {
		a.cfgm.SetLogger(a.log.For("config"))
		a.cfgm.SetValidator(a.validateConfig)
		sub := a.cfgm.Subscribe(8)
		a.sup.Go0("config.reload", func(c context.Context) { a.reloadLoop(c, sub) })
		a.sup.GoRestart("config.watch", a.cfgm.Watch)
	}

	a.log.Info("app started")
	return nil
}

// coldStartRestore rebuilds AM's volatile armed state and TA's in-memory
// delivery index from PL, then runs one drain so anything already due at
// boot is delivered immediately rather than waiting for the next timer
// fire.
func (a *App) coldStartRestore(ctx context.Context) error {
	now := a.clock.NowMillis()
	if err := a.ta.RestoreScheduledEvents(ctx, now); err != nil {
		return err
	}
	if err := a.am.Rearm(ctx); err != nil {
		return err
	}
	if _, err := a.wh.Drain(ctx); err != nil {
		return err
	}
	return nil
}

// SimulateHibernate tears down and rebuilds all in-memory state (AM's
// volatile armed fields via Rearm, TA's index via RestoreScheduledEvents)
// without touching the on-disk store, to exercise the cold-start path
// from a live process.
func (a *App) SimulateHibernate(ctx context.Context) error {
	a.log.Info("simulating hibernate/resume cycle")
	return a.coldStartRestore(ctx)
}

func (a *App) drainLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.wakeupSignal:
			results, err := a.wh.Drain(ctx)
			if err != nil {
				a.log.Error("drain failed", logx.Err(err))
				continue
			}
			if len(results) > 0 {
				a.log.Debug("drain complete", logx.Int("count", len(results)))
			}
		}
	}
}

func (a *App) reloadLoop(ctx context.Context, sub chan *Config) {
	defer a.cfgm.Unsubscribe(sub)
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config.
		drain:
			for {
				select {
				case newer, ok := <-sub:
					if !ok {
						break drain
					}
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}

			sections, attrs := SummarizeConfigChange(last, newCfg)
			last = newCfg
			if len(sections) == 0 {
				a.log.Debug("config reload received, no effective changes")
				continue
			}

			for _, s := range sections {
				if s == "storage" {
					a.log.Warn("storage config changed; restart required for changes to take effect")
				}
			}

			a.logs.Apply(logx.Config{
				Level:   newCfg.Logging.Level,
				Console: newCfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: newCfg.Logging.File.Enabled,
					Path:    newCfg.Logging.File.Path,
				},
			})

			fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
			a.log.Info("config reloaded", fields...)
		}
	}
}

func (a *App) validateConfig(ctx context.Context, cfg *Config) error {
	if cfg.Alarms.RetentionIntervalMs < 0 {
		return errInvalidRetention
	}
	if _, err := parseDurationOrDefault("host.wakeup_poll", cfg.Host.WakeupPoll, 0); err != nil {
		return err
	}
	return validateStorageConfig(cfg.Storage)
}

// Stop tears down the component graph in reverse of Start, each step
// bounded by its own timeout so a stuck component never blocks the rest
// of shutdown.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	a.sup.Cancel()
	a.slot.Stop()

	stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.sup.Wait(stopCtx)
	cancel()
	if err != nil {
		a.log.Warn("supervisor wait error", logx.Err(err))
	}

	if closer, ok := a.db.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.log.Warn("storage close error", logx.Err(err))
		}
	}

	a.log.Info("stopped")
	if a.logs != nil {
		return a.logs.Close()
	}
	return nil
}
