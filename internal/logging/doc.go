// Package logging builds the slog loggers used across tunefetch.
//
// A run logs to tunefetch.log in the configured log directory, either in a
// compact console format or as JSON, and can mirror every record into a
// debug session log. Stage code derives its logger with WithContext so each
// line carries the item id and stage name set by the workflow manager.
package logging
