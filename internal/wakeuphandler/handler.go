package wakeuphandler

import (
	"context"

	"wakeloop/internal/alarm"
	"wakeloop/internal/storage"
	"wakeloop/internal/timeradapter"
	logx "wakeloop/pkg/logx"
)

const (
	typeXStateDelay  = "xstate-delay"
	typeCacheCleanup = "cache-cleanup"
)

// UserHandler is invoked for any alarm type that is neither
// "xstate-delay" nor "cache-cleanup". If none is registered, such
// alarms are logged and dropped.
type UserHandler func(a alarm.Alarm) error

// Handler is the Wakeup Handler. It holds no state of its own beyond
// its collaborators: AM owns the queue, TA owns FSM delivery, PL owns
// the actor/snapshot rows the retention sweep touches.
type Handler struct {
	am   *alarm.Manager
	ta   *timeradapter.Adapter
	pl   *storage.PL
	log  logx.Logger
	user UserHandler

	retentionIntervalMs int64
}

// Option configures a Handler at construction.
type Option func(*Handler)

// WithUserHandler registers the fallback handler for unrecognized
// alarm types.
func WithUserHandler(h UserHandler) Option { return func(w *Handler) { w.user = h } }

// WithRetentionInterval sets the period the cache-cleanup sweep treats
// a snapshot as stale. Defaults to 300000ms (5 minutes) per the
// configuration default.
func WithRetentionInterval(ms int64) Option {
	return func(w *Handler) { w.retentionIntervalMs = ms }
}

// New constructs a Wakeup Handler over am, ta, and pl.
func New(am *alarm.Manager, ta *timeradapter.Adapter, pl *storage.PL, log logx.Logger, opts ...Option) *Handler {
	w := &Handler{am: am, ta: ta, pl: pl, log: log.For("wakeuphandler"), retentionIntervalMs: 300000}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Drain runs one complete wakeup-slot fire: dispatch every due alarm
// through AM.HandleDue and return the drain result vector unchanged.
// Called with a single in-flight invocation per compute unit; AM/TA
// calls made from within dispatch must never call back into Drain.
func (w *Handler) Drain(ctx context.Context) ([]alarm.DrainResult, error) {
	return w.am.HandleDue(ctx, func(a alarm.Alarm) error {
		return w.dispatch(ctx, a)
	})
}

func (w *Handler) dispatch(ctx context.Context, a alarm.Alarm) error {
	switch a.Type {
	case typeXStateDelay:
		return w.ta.Deliver(ctx, a.Payload)
	case typeCacheCleanup:
		return w.sweepRetention(ctx, a)
	default:
		if w.user != nil {
			return w.user(a)
		}
		w.log.Warn("no handler registered for alarm type, dropping", logx.String("id", a.ID), logx.String("type", a.Type))
		return nil
	}
}

// sweepRetention is the built-in cache-cleanup handler: it deletes the
// actor's snapshot if it has gone stale past the configured retention
// interval. Bounded to a single actor per unit and idempotent: running
// it twice against an already-deleted or already-fresh snapshot is a
// no-op either way.
func (w *Handler) sweepRetention(ctx context.Context, a alarm.Alarm) error {
	actorID, ok := actorIDFromPayload(a.Payload)
	if !ok {
		return nil
	}

	snap, ok, err := w.pl.GetSnapshot(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	// a.ScheduledAt has already been advanced to the next fire time by
	// the time the drain invokes this handler (HandleDue mutates before
	// dispatching), so the drain instant this alarm actually fired at is
	// recovered by subtracting the interval back out.
	firedAt := a.ScheduledAt - a.RepeatInterval
	if firedAt-snap.UpdatedAt < w.retentionIntervalMs {
		return nil
	}
	return w.pl.DeleteSnapshot(ctx, actorID)
}
