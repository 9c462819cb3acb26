// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, size, bitrate, tags)
//
// Primary entry point:
//   - Inspect: executes ffprobe through a process.Runner and returns the
//     parsed Result
//
// Helper methods on Result provide convenient access to stream counts,
// duration parsing, bitrate extraction, and container tags.
package ffprobe
