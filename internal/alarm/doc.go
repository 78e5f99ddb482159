// Package alarm implements the Alarm Manager: the logical scheduled-alarm
// queue on top of the Persistence Layer, multiplexed onto the single
// platform wakeup slot. AM is the only writer of the wakeup slot and the
// only component that decides when to rearm it.
package alarm
