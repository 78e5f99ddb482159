// Package logx configures wakeloop's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Component-scoped sub-loggers, so a log line from the alarm manager
//     looks different from one out of the timer adapter without every
//     call site spelling out the component name
//   - A rate-limited warning helper, so a pathological empty-drain loop or
//     a repeatedly failing handler cannot flood the sink
package logx
