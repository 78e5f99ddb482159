package fsmhost

// Event is an opaque message delivered to an actor. Type is the only
// field the adapter inspects; the rest travels through untouched.
type Event struct {
	Type string
	Data map[string]any
}

// ActorRef is a handle to a running FSM actor, identified by the
// session id the adapter uses to compose alarm keys.
type ActorRef interface {
	SessionID() string
	Send(evt Event)
}

// Relay is the optional fast-path delivery primitive some FSM libraries
// expose on their system/registry object, letting an event be delivered
// as if it originated from the target itself rather than from an
// external sender. Not every FSM library exposes this; System.Relay
// reports whether it was available.
type Relay interface {
	Relay(source, target ActorRef, evt Event) bool
}

// System locates actors by session id and, when the underlying FSM
// library supports it, relays events through Relay. TA falls back to
// ActorRef.Send when Relay reports false; a target that Lookup cannot
// find is logged and dropped.
type System interface {
	Lookup(sessionID string) (ActorRef, bool)
	Relay
}

// NoopClock is the timer source installed on the FSM library in place
// of its native timer when the Timer Adapter is active. Every real
// delay flows through TA instead; this clock's methods are never
// expected to actually fire anything.
type NoopClock struct{}

// Token is the opaque handle NoopClock.SetTimeout returns. It is
// guaranteed non-zero so callers that treat 0 as "no timer" behave
// correctly, but it carries no other meaning.
type Token uint64

func (NoopClock) SetTimeout(fn func(), delayMs int64) Token { return 1 }

func (NoopClock) ClearTimeout(Token) {}
