// Package services defines shared utilities consumed by the pipeline stage
// handlers and their external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp work item IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap/Details helpers that classify
//     failures (spawn failure, non-zero exit, cancellation, missing
//     precondition, collaborator failure) into a consistent shape.
//
// Use these helpers when wiring new stage logic so failure summaries and
// structured logs stay uniform across the pipeline.
package services
