// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into validation, not-found, infrastructure, data-processing, and
//     application faults.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// classification, observability) stays uniform across the pipeline.
package services
