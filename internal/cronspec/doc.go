// Package cronspec parses the small family of schedule strings the
// cron-driven custom alarm example accepts — cron expressions, HH:MM
// interval shorthand, and Go duration strings — and computes the next
// absolute fire time for each. It carries no scheduling engine of its
// own; internal/alarm's repeat_interval mechanic stays a fixed
// millisecond offset, and a cron-typed alarm re-schedules itself once
// per delivery using NextAfter.
package cronspec
