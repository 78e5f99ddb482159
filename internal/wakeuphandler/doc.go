// Package wakeuphandler implements the Wakeup Handler: the dispatch
// table invoked by the host when the platform wakeup slot fires. It
// drains due alarms through the Alarm Manager, routes each by type to
// the Timer Adapter, the snapshot-retention sweep, or a user handler,
// and never recurses back into itself while handling a drain.
package wakeuphandler
