// Package services defines shared utilities consumed by the generation
// pipeline and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, row numbers, strategy names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that let callers classify
//     failures (configuration vs transient vs remote agent) with errors.Is.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform.
package services
