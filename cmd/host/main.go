// Command host runs one simulated compute-unit process: it loads a
// config file, wires the full component graph via internal/app, and
// runs until told to stop. With -units > 1 it instead runs a fleet of
// independent, unrelated compute units in the same process, each with
// its own component graph, to exercise the cold-start path at scale.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	yaml "go.yaml.in/yaml/v3"
	"golang.org/x/sync/semaphore"

	"wakeloop/internal/app"
)

func main() {
	var (
		cfgPath           string
		simulateHibernate bool
		units             int
		unitConcurrency   int64
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.BoolVar(&simulateHibernate, "simulate-hibernate", false, "run one hibernate/resume cycle shortly after startup")
	flag.IntVar(&units, "units", 1, "number of independent compute units to run in this process")
	flag.Int64Var(&unitConcurrency, "unit-concurrency", 4, "max compute units allowed to run cold-start restore concurrently")
	flag.Parse()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	reasonCh := make(chan app.StopReason, 1)
	reloadCh := make(chan struct{}, 1)
	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGHUP:
				select {
				case reloadCh <- struct{}{}:
				default:
				}
				continue
			case syscall.SIGTERM:
				reasonCh <- app.StopSIGTERM
			default:
				reasonCh <- app.StopSIGINT
			}
			cancel()
			return
		}
	}()
	defer cancel()

	var err error
	if units <= 1 {
		err = runSingle(ctx, reasonCh, reloadCh, cfgPath, simulateHibernate)
	} else {
		err = runFleet(ctx, reasonCh, reloadCh, cfgPath, units, unitConcurrency, simulateHibernate)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func runSingle(ctx context.Context, reasonCh <-chan app.StopReason, reloadCh <-chan struct{}, cfgPath string, simulateHibernate bool) error {
	a, err := app.NewApp(cfgPath)
	if err != nil {
		return fmt.Errorf("new app: %w", err)
	}

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	if simulateHibernate {
		go func() {
			time.Sleep(2 * time.Second)
			if err := a.SimulateHibernate(ctx); err != nil {
				fmt.Fprintln(os.Stderr, "simulate-hibernate:", err)
			}
		}()
	}

	go watchReloads(ctx, reloadCh, []*app.App{a})

	reason := waitForStop(ctx, reasonCh)

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.Stop(stopCtx, reason)
}

// runFleet runs units independent compute units in one process, each
// with its own full component graph and its own derived config (unit
// id and, where the storage driver writes to disk, storage path made
// unique per unit). A weighted semaphore bounds how many units may run
// cold-start restore concurrently; nothing else is shared between
// units' cores.
func runFleet(ctx context.Context, reasonCh <-chan app.StopReason, reloadCh <-chan struct{}, cfgPath string, units int, unitConcurrency int64, simulateHibernate bool) error {
	tmpDir, err := os.MkdirTemp("", "wakeloop-fleet-*")
	if err != nil {
		return fmt.Errorf("fleet tmp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	sem := semaphore.NewWeighted(unitConcurrency)
	apps := make([]*app.App, units)
	errs := make([]error, units)

	startCtx, startCancel := context.WithTimeout(ctx, 30*time.Second)
	for i := 0; i < units; i++ {
		idx := i
		if err := sem.Acquire(startCtx, 1); err != nil {
			startCancel()
			return fmt.Errorf("fleet start: %w", err)
		}
		go func() {
			defer sem.Release(1)
			apps[idx], errs[idx] = startFleetUnit(ctx, tmpDir, cfgPath, idx, simulateHibernate)
		}()
	}
	if err := sem.Acquire(startCtx, unitConcurrency); err != nil {
		startCancel()
		return fmt.Errorf("fleet start: %w", err)
	}
	sem.Release(unitConcurrency)
	startCancel()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("unit %d: %w", i, err)
		}
	}

	go watchReloads(ctx, reloadCh, apps)

	reason := waitForStop(ctx, reasonCh)

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for i, a := range apps {
		if a == nil {
			continue
		}
		if err := a.Stop(stopCtx, reason); err != nil {
			fmt.Fprintf(os.Stderr, "unit %d stop: %v\n", i, err)
		}
	}
	return nil
}

func startFleetUnit(ctx context.Context, tmpDir, basePath string, idx int, simulateHibernate bool) (*app.App, error) {
	unitPath, err := deriveUnitConfig(tmpDir, basePath, idx)
	if err != nil {
		return nil, err
	}

	a, err := app.NewApp(unitPath)
	if err != nil {
		return nil, fmt.Errorf("new app: %w", err)
	}
	if err := a.Start(ctx); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	if simulateHibernate {
		go func() {
			time.Sleep(2 * time.Second)
			_ = a.SimulateHibernate(ctx)
		}()
	}
	return a, nil
}

// deriveUnitConfig writes a per-unit copy of the base config file into
// dir, appending the unit index to host.unit_id and, when storage.path
// is non-empty, to the storage path as well, so file-backed units
// never collide on the same on-disk store.
func deriveUnitConfig(dir, basePath string, idx int) (string, error) {
	raw, err := os.ReadFile(basePath)
	if err != nil {
		return "", fmt.Errorf("read base config: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("parse base config: %w", err)
	}

	host, _ := doc["host"].(map[string]any)
	if host == nil {
		host = map[string]any{}
	}
	unitID := fmt.Sprint(host["unit_id"])
	host["unit_id"] = fmt.Sprintf("%s-%d", unitID, idx)
	doc["host"] = host

	if storage, ok := doc["storage"].(map[string]any); ok {
		if path, _ := storage["path"].(string); path != "" {
			ext := filepath.Ext(path)
			storage["path"] = fmt.Sprintf("%s.unit%d%s", path[:len(path)-len(ext)], idx, ext)
			doc["storage"] = storage
		}
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal unit config: %w", err)
	}

	unitPath := filepath.Join(dir, fmt.Sprintf("unit-%d.yaml", idx))
	if err := os.WriteFile(unitPath, out, 0o644); err != nil {
		return "", fmt.Errorf("write unit config: %w", err)
	}
	return unitPath, nil
}

// watchReloads drives an on-demand config reload for every unit in
// apps whenever a SIGHUP arrives, independent of (and in addition to)
// each unit's own file-watch-triggered reload loop.
func watchReloads(ctx context.Context, reloadCh <-chan struct{}, apps []*app.App) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-reloadCh:
			for i, a := range apps {
				if a == nil {
					continue
				}
				if err := a.ReloadConfig(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "unit %d reload: %v\n", i, err)
				}
			}
		}
	}
}

// waitForStop blocks until the signal goroutine reports which signal
// triggered shutdown, falling back to StopUnknown if the context was
// cancelled some other way (e.g. a fatal error upstream).
func waitForStop(ctx context.Context, reasonCh <-chan app.StopReason) app.StopReason {
	select {
	case reason := <-reasonCh:
		return reason
	case <-ctx.Done():
		return app.StopUnknown
	}
}
