package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"tunefetch/internal/queue"
	"tunefetch/internal/workflow"
)

// consoleRenderer prints queue events for a person watching the run. On a
// terminal the running step is a single line redrawn in place; elsewhere only
// step and item outcomes are printed.
type consoleRenderer struct {
	workflow.NopListener

	mu       sync.Mutex
	out      io.Writer
	live     bool
	colorize bool
	drawn    bool
}

func newConsoleRenderer(out io.Writer) *consoleRenderer {
	tty := isTerminal(out)
	return &consoleRenderer{out: out, live: tty, colorize: useColor(out)}
}

func (r *consoleRenderer) OnEntryBegin(item *queue.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
	fmt.Fprintf(r.out, "%s (%s)\n", item.Source, item.Kind)
}

func (r *consoleRenderer) OnEntryStepBegin(item *queue.Item, step queue.Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live {
		r.drawLocked(step, 0)
	}
}

func (r *consoleRenderer) OnEntryStepProgress(item *queue.Item, step queue.Step, progress float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live {
		r.drawLocked(step, progress)
	}
}

func (r *consoleRenderer) OnEntryStepEnd(item *queue.Item, step queue.Step, elapsed time.Duration, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
	message := step.Summary
	if elapsed >= time.Second {
		message = fmt.Sprintf("%s (%s)", message, elapsed.Round(100*time.Millisecond))
	}
	fmt.Fprintln(r.out, renderStatusLine(step.Name, stepStatusKind(step.Status), strings.TrimSpace(message), r.colorize))
}

func (r *consoleRenderer) OnEntryEnd(item *queue.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
	snap := item.Snapshot()
	switch snap.Status {
	case queue.StatusCompleted:
		where := snap.Files[queue.FileFinal]
		if where == "" {
			where = snap.Files[queue.FileAudio]
		}
		fmt.Fprintln(r.out, renderStatusLine("done", statusOK, where, r.colorize))
	case queue.StatusFailed:
		fmt.Fprintln(r.out, renderStatusLine("failed", statusError, snap.ErrorMessage, r.colorize))
	}
}

func (r *consoleRenderer) OnQueueDrained(summary workflow.DrainSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
	fmt.Fprintf(r.out, "Finished %d item(s): %d completed, %d failed in %s\n",
		summary.Total, summary.Completed, summary.Failed, summary.Elapsed.Round(time.Second))
}

func (r *consoleRenderer) drawLocked(step queue.Step, progress float64) {
	fmt.Fprintf(r.out, "%s%s%-*s %s %3.0f%%", ansiClear, statusIndent, statusLabelWidth, step.Name+":", step.Description, progress*100)
	r.drawn = true
}

func (r *consoleRenderer) clearLocked() {
	if r.drawn {
		fmt.Fprint(r.out, ansiClear)
		r.drawn = false
	}
}
