package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"tunefetch/internal/queue"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusSkip
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiGray   = "\x1b[90m"
	ansiClear  = "\r\x1b[2K"
)

const (
	statusLabelWidth = 12
	statusIndent     = "  "
)

var statusStyles = [...]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusSkip:  {"SKIP", ansiGray},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

// renderStatusLine formats "  label:       [KIND] message", coloured as a
// whole when colorize is set.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	if kind < statusInfo || int(kind) >= len(statusStyles) {
		kind = statusInfo
	}
	style := statusStyles[kind]
	var b strings.Builder
	fmt.Fprintf(&b, "%s%-*s [%s]", statusIndent, statusLabelWidth, label+":", style.label)
	if message != "" {
		b.WriteByte(' ')
		b.WriteString(message)
	}
	if colorize {
		return style.color + b.String() + ansiReset
	}
	return b.String()
}

func stepStatusKind(status queue.StepStatus) statusKind {
	switch status {
	case queue.StepCompleted:
		return statusOK
	case queue.StepSkipped:
		return statusSkip
	case queue.StepFailed:
		return statusError
	default:
		return statusInfo
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(line))
	if colorize {
		return []string{ansiBlue + line + ansiReset, ansiBlue + rule + ansiReset}
	}
	return []string{line, rule}
}

// isTerminal reports whether writer is an interactive terminal. The redrawn
// progress line depends on it.
func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// useColor is isTerminal unless NO_COLOR is set.
func useColor(writer io.Writer) bool {
	if _, off := os.LookupEnv("NO_COLOR"); off {
		return false
	}
	return isTerminal(writer)
}
