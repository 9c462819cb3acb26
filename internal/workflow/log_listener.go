package workflow

import (
	"log/slog"
	"sync"
	"time"

	"tunefetch/internal/logging"
	"tunefetch/internal/queue"
)

// LogListener writes one structured line per lifecycle event. Progress lines
// are sampled so each step logs at most once per bucket.
type LogListener struct {
	logger *slog.Logger

	mu      sync.Mutex
	sampler *logging.ProgressSampler
}

// NewLogListener returns a listener that logs through logger.
func NewLogListener(logger *slog.Logger) *LogListener {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogListener{
		logger:  logging.NewComponentLogger(logger, "queue"),
		sampler: logging.NewProgressSampler(0.1),
	}
}

func (l *LogListener) itemLogger(item *queue.Item) *slog.Logger {
	return l.logger.With(
		logging.String(logging.FieldItemID, item.ID),
		logging.String(logging.FieldCorrelationID, item.RequestID),
	)
}

func (l *LogListener) OnEntryBegin(item *queue.Item) {
	l.mu.Lock()
	l.sampler.Reset()
	l.mu.Unlock()
	l.itemLogger(item).Info("begin",
		logging.String("source", item.Source),
		logging.Int("steps", item.Len()),
	)
}

func (l *LogListener) OnEntryStepBegin(item *queue.Item, step queue.Step) {
	l.itemLogger(item).Info(step.Description,
		logging.String(logging.FieldStage, step.Name),
		logging.Int("step", item.Cursor()+1),
		logging.Int("steps", item.Len()),
	)
}

func (l *LogListener) OnEntryStepProgress(item *queue.Item, step queue.Step, progress float64) {
	l.mu.Lock()
	emit := l.sampler.ShouldLog(step.Name, progress)
	l.mu.Unlock()
	if !emit {
		return
	}
	l.itemLogger(item).Debug("progress",
		logging.String(logging.FieldStage, step.Name),
		logging.Float64("percent", progress*100),
	)
}

func (l *LogListener) OnEntryStepEnd(item *queue.Item, step queue.Step, elapsed time.Duration, itemProgress float64) {
	logger := l.itemLogger(item)
	attrs := []logging.Attr{
		logging.String(logging.FieldStage, step.Name),
		logging.String("status", string(step.Status)),
		logging.String("summary", step.Summary),
		logging.Duration("elapsed", elapsed.Round(time.Millisecond)),
		logging.Float64("item_percent", itemProgress*100),
	}
	if step.Status == queue.StepFailed {
		logger.Warn("step failed", logging.Args(attrs...)...)
		return
	}
	logger.Info("step done", logging.Args(attrs...)...)
}

func (l *LogListener) OnEntryEnd(item *queue.Item) {
	logger := l.itemLogger(item)
	if item.Status() == queue.StatusFailed {
		logger.Warn("failed", logging.String("error_message", item.ErrorMessage()))
		return
	}
	logger.Info(string(item.Status()))
}

func (l *LogListener) OnQueueDrained(summary DrainSummary) {
	l.logger.Info("queue drained",
		logging.Int("total", summary.Total),
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", summary.Elapsed.Round(time.Second)),
	)
}

var (
	_ Listener      = (*LogListener)(nil)
	_ DrainListener = (*LogListener)(nil)
)
