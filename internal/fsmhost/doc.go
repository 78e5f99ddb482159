// Package fsmhost names the minimal external-collaborator surface the
// Timer Adapter and Wakeup Handler need from an FSM library: an actor
// reference, a relay-capable system, and the event shape delivered on
// fire. It deliberately implements no FSM evaluation semantics of its
// own; it exists only so internal/timeradapter has something concrete
// to compile against without depending on a specific FSM library.
package fsmhost
