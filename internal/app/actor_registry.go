package app

import (
	"sync"

	"wakeloop/internal/fsmhost"
	logx "wakeloop/pkg/logx"
)

// loggingActor is a minimal fsmhost.ActorRef that records and logs
// delivered events. Nothing in this module hosts a real FSM engine; this
// stands in for one so the Timer Adapter has a concrete target to
// deliver to outside of tests.
type loggingActor struct {
	sessionID string
	log       logx.Logger

	mu   sync.Mutex
	recv []fsmhost.Event
}

func newLoggingActor(sessionID string, log logx.Logger) *loggingActor {
	return &loggingActor{sessionID: sessionID, log: log}
}

func (a *loggingActor) SessionID() string { return a.sessionID }

func (a *loggingActor) Send(evt fsmhost.Event) {
	a.mu.Lock()
	a.recv = append(a.recv, evt)
	a.mu.Unlock()
	a.log.Info("actor received event", logx.String("session_id", a.sessionID), logx.String("event", evt.Type))
}

func (a *loggingActor) Received() []fsmhost.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]fsmhost.Event(nil), a.recv...)
}

// actorRegistry is a flat session-id-keyed fsmhost.System with no relay
// primitive of its own, so every delivery through it exercises the Timer
// Adapter's send fallback. It exists so cmd/host has a concrete System
// to construct the Timer Adapter against; it carries no FSM semantics.
type actorRegistry struct {
	mu     sync.Mutex
	actors map[string]*loggingActor
	log    logx.Logger
}

func newActorRegistry(log logx.Logger) *actorRegistry {
	return &actorRegistry{actors: map[string]*loggingActor{}, log: log.For("actor-registry")}
}

func (r *actorRegistry) Register(sessionID string) *loggingActor {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.actors[sessionID]
	if !ok {
		a = newLoggingActor(sessionID, r.log)
		r.actors[sessionID] = a
	}
	return a
}

func (r *actorRegistry) Lookup(sessionID string) (fsmhost.ActorRef, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.actors[sessionID]
	if !ok {
		return nil, false
	}
	return a, true
}

func (r *actorRegistry) Relay(source, target fsmhost.ActorRef, evt fsmhost.Event) bool {
	return false
}
