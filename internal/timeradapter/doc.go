// Package timeradapter implements the Timer Adapter: the bridge between
// an FSM library's pluggable timer interface and the Alarm Manager's
// persistent queue. It translates schedule/cancel/cancelAll calls into
// AM operations keyed by composed session+event ids, and on fire,
// relays or sends the original event to the target actor named when it
// was scheduled.
package timeradapter
