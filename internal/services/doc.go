// Package services defines shared utilities consumed by the conversion and
// upload components.
//
// Key responsibilities:
//   - Context helpers that stamp task IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can tell local
//     precondition failures apart from transcoding, remote, and network faults.
//
// Use these helpers when wiring new operations so error classification stays
// uniform across the CLI, the HTTP API, and the task tracker.
package services
