// Package platform defines the narrow set of collaborator interfaces the
// durable alarm core is built against: an abstract SQL executor that can
// hand back any of three driver result shapes, a clock, and the single
// platform wakeup slot. The core (internal/storage, internal/alarm,
// internal/timeradapter, internal/wakeuphandler) never imports a concrete
// driver directly; it depends on these interfaces, which keeps the
// three-shape normalization and the no-disarm wakeup semantics testable
// without a real database or a real timer.
package platform
