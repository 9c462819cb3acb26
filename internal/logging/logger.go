package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tunefetch/internal/config"
)

// RunLogName is the file the CLI appends to inside paths.log_dir.
const RunLogName = "tunefetch.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Outputs lists file paths or the names "stdout" and "stderr".
	// Duplicates are written once. Empty means stdout.
	Outputs     []string
	Development bool
}

// New builds a logger from opts. The returned closer releases any files the
// logger opened and must be called once logging is finished.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}
	if format != "console" && format != "json" {
		return nil, nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	writer, closer, err := openOutputs(opts.Outputs)
	if err != nil {
		return nil, nil, err
	}
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))
	addSource := opts.Development || level.Level() <= slog.LevelDebug

	if format == "json" {
		return slog.New(newJSONHandler(writer, level, addSource)), closer, nil
	}
	return slog.New(newPrettyHandler(writer, level, addSource)), closer, nil
}

// NewRunLogger returns the logger for one CLI run. Records go to
// tunefetch.log under the log directory since the terminal belongs to the
// progress display. When logging.session_log is set every record down to
// debug is also appended there as JSON. Without a log directory the logger
// discards records that are not headed for the session log.
func NewRunLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	logger, closers := NewNop(), closerList{}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		path := filepath.Join(dir, RunLogName)
		fileLogger, closer, err := New(Options{
			Level:   cfg.Logging.Level,
			Format:  cfg.Logging.Format,
			Outputs: []string{path},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init run log: %w", err)
		}
		logger = fileLogger
		closers = append(closers, closer)
	}
	if session := strings.TrimSpace(cfg.Logging.SessionLog); session != "" {
		handler, closer, err := NewSessionHandler(session)
		if err != nil {
			_ = closers.Close()
			return nil, nil, err
		}
		logger = TeeLogger(logger, handler)
		closers = append(closers, closer)
	}
	return logger, closers, nil
}

// NewSessionHandler opens path for appending and returns a JSON handler that
// records every level down to debug. The caller owns the returned closer.
func NewSessionHandler(path string) (slog.Handler, io.Closer, error) {
	file, err := openAppend(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open session log: %w", err)
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	return newJSONHandler(file, level, false), file, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openOutputs resolves the configured destinations into a single writer.
func openOutputs(outputs []string) (io.Writer, io.Closer, error) {
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}
	seen := make(map[string]bool, len(outputs))
	var (
		writers []io.Writer
		files   closerList
	)
	for _, raw := range outputs {
		target := strings.TrimSpace(raw)
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		switch target {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			file, err := openAppend(target)
			if err != nil {
				_ = files.Close()
				return nil, nil, err
			}
			writers = append(writers, file)
			files = append(files, file)
		}
	}
	switch len(writers) {
	case 0:
		return os.Stdout, files, nil
	case 1:
		return writers[0], files, nil
	default:
		return io.MultiWriter(writers...), files, nil
	}
}

func openAppend(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

// closerList closes every member and joins the errors.
type closerList []io.Closer

func (c closerList) Close() error {
	var errs []error
	for _, closer := range c {
		if closer == nil {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
