package platform

import (
	"sync"
	"time"
)

// WakeupSlot is the single platform-provided timer primitive AM multiplexes
// all logical alarms onto. There is deliberately no disarm method: once
// armed, the slot will fire at or after the given deadline, and the drain
// loop (internal/wakeuphandler) must tolerate a fire with nothing due.
type WakeupSlot interface {
	// SetWakeup arms the slot to fire at the given absolute wall-clock
	// deadline (milliseconds since epoch). Calling it again before the
	// previous deadline replaces it.
	SetWakeup(deadlineMs int64)
}

// TimerWakeupSlot is a single-process simulation of the platform wakeup
// slot, backed by one time.Timer. It is what cmd/host uses in place of a
// real hibernating-platform host: there is no such host available in this
// module, so the slot is simulated by resetting a timer to the next armed
// deadline and invoking onFire when it elapses.
//
// A deadline at or before "now" is clamped to fire on the next tick rather
// than rejected, matching the spec's stated assumption about how the
// platform behaves for past deadlines.
type TimerWakeupSlot struct {
	clock  Clock
	onFire func()

	mu    sync.Mutex
	timer *time.Timer
	armed int64
}

// NewTimerWakeupSlot constructs a simulated wakeup slot. onFire is called
// from the timer's own goroutine; callers that need serialization with the
// rest of the host loop must do it inside onFire.
func NewTimerWakeupSlot(clock Clock, onFire func()) *TimerWakeupSlot {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TimerWakeupSlot{clock: clock, onFire: onFire}
}

func (w *TimerWakeupSlot) SetWakeup(deadlineMs int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.armed = deadlineMs
	delay := time.Duration(deadlineMs-w.clock.NowMillis()) * time.Millisecond
	if delay < 0 {
		delay = 0
	}

	if w.timer == nil {
		w.timer = time.AfterFunc(delay, w.fire)
		return
	}
	w.timer.Reset(delay)
}

func (w *TimerWakeupSlot) fire() {
	if w.onFire != nil {
		w.onFire()
	}
}

// Armed returns the last deadline requested via SetWakeup, for diagnostics.
func (w *TimerWakeupSlot) Armed() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.armed
}

// Stop releases the underlying timer. Safe to call even if never armed.
func (w *TimerWakeupSlot) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// RecordingWakeupSlot is a test double that records every SetWakeup call
// instead of arming a real timer. Used to assert the rearm-coalescing and
// rearm-idempotence testable properties without races on a real timer.
type RecordingWakeupSlot struct {
	mu    sync.Mutex
	calls []int64
}

func (w *RecordingWakeupSlot) SetWakeup(deadlineMs int64) {
	w.mu.Lock()
	w.calls = append(w.calls, deadlineMs)
	w.mu.Unlock()
}

// Calls returns a copy of every deadline passed to SetWakeup, in order.
func (w *RecordingWakeupSlot) Calls() []int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]int64, len(w.calls))
	copy(out, w.calls)
	return out
}

// Last returns the most recent SetWakeup deadline, or (0, false) if none.
func (w *RecordingWakeupSlot) Last() (int64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.calls) == 0 {
		return 0, false
	}
	return w.calls[len(w.calls)-1], true
}
