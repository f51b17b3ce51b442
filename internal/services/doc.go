// Package services defines shared utilities consumed by the alignment
// pipeline and the AI backend integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run, stage, and correlation identifiers for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     (transient backend trouble vs fatal run-aborting conditions).
//   - Token usage accounting shared by every backend client.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform across commands.
package services
