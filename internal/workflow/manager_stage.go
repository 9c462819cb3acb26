package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"tunefetch/internal/logging"
	"tunefetch/internal/queue"
	"tunefetch/internal/services"
	"tunefetch/internal/stage"
)

func (m *Manager) processItem(runCtx, ctx context.Context, cancel context.CancelCauseFunc, e *entry) {
	defer cancel(nil)
	item := e.item
	logger := m.itemLogger(ctx, item)

	if err := item.Start(m.now()); err != nil {
		logger.Error("item could not start", logging.Error(err))
		m.finishEntry(runCtx, item, err)
		return
	}
	logger.Info("item started",
		logging.String("source", item.Source),
		logging.String("kind", string(item.Kind)),
		logging.Int("steps", item.Len()),
		logging.String(logging.FieldEventType, "item_start"),
	)
	m.emit("entry_begin", func(l Listener) { l.OnEntryBegin(item) })

	var failure error
	for cursor := item.Cursor(); cursor < item.Len(); cursor = item.Cursor() {
		if ctx.Err() != nil {
			failure = cancellationError(ctx, "")
			break
		}
		if cursor >= len(e.handlers) || e.handlers[cursor] == nil {
			failure = services.Wrap(services.ErrConfiguration, "workflow", "execute",
				fmt.Sprintf("no handler for step %d", cursor), nil)
			break
		}
		if err := m.executeStage(ctx, logger, e.handlers[cursor], item); err != nil {
			failure = err
			break
		}
	}

	now := m.now()
	if failure == nil {
		if err := item.Complete(now); err != nil {
			failure = err
		}
	}
	if failure != nil {
		_ = item.Fail(now, m.classifyItemFailure(ctx, failure))
	}
	m.logItemEnd(logger, item, failure)
	m.emit("entry_end", func(l Listener) { l.OnEntryEnd(item) })
	m.finishEntry(runCtx, item, failure)
}

// executeStage runs the handler under the cursor and resolves its step. The
// returned error is non-nil only when the step failed.
func (m *Manager) executeStage(ctx context.Context, itemLogger *slog.Logger, handler stage.Handler, item *queue.Item) error {
	name := handler.Descriptor().Name
	stageCtx := withStageContext(ctx, name, item)
	stageLogger := itemLogger.With(logging.String(logging.FieldStage, name))

	step, err := item.BeginStep(m.now())
	if err != nil {
		stageLogger.Error("stage could not begin", logging.Error(err))
		return err
	}
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("description", step.Description),
	)
	m.emit("step_begin", func(l Listener) { l.OnEntryStepBegin(item, step) })

	outcome, execErr := m.runHandler(stageCtx, stageLogger, handler, item)
	now := m.now()
	if execErr != nil {
		if ctx.Err() != nil {
			execErr = cancellationError(ctx, name)
		}
		message := classifyStageFailure(name, execErr)
		ended, stepErr := item.FailStep(now, message)
		if stepErr != nil {
			stageLogger.Error("stage failure could not be recorded", logging.Error(stepErr))
			return execErr
		}
		m.logStageFailure(stageLogger, execErr, message)
		m.emitStepEnd(item, ended)
		return execErr
	}

	ended, err := item.EndStep(now, outcome.Summary, outcome.Skipped)
	if err != nil {
		stageLogger.Error("stage result could not be recorded", logging.Error(err))
		return err
	}
	event := "stage_complete"
	msg := "stage completed"
	attrs := []logging.Attr{
		logging.String("summary", ended.Summary),
		logging.Float64("progress", ended.Progress),
		logging.Duration("stage_duration", ended.Elapsed()),
	}
	if outcome.Skipped {
		event = "stage_skipped"
		msg = "stage skipped"
		attrs = append(attrs, logging.String(logging.FieldErrorKind, services.Kind(services.ErrPreconditionMissing)))
	}
	stageLogger.Info(msg, logging.Args(append(attrs, logging.String(logging.FieldEventType, event))...)...)
	m.emitStepEnd(item, ended)
	return nil
}

func (m *Manager) emitStepEnd(item *queue.Item, step queue.Step) {
	elapsed := step.Elapsed()
	itemProgress := item.Progress()
	m.emit("step_end", func(l Listener) { l.OnEntryStepEnd(item, step, elapsed, itemProgress) })
}

// runHandler calls Execute and converts a panic into a stage error.
func (m *Manager) runHandler(ctx context.Context, logger *slog.Logger, handler stage.Handler, item *queue.Item) (outcome stage.Outcome, err error) {
	name := handler.Descriptor().Name
	defer func() {
		if r := recover(); r != nil {
			logger.Error("stage panicked",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldEventType, "stage_panic"),
				logging.Alert("stage_panic"),
			)
			outcome = stage.Outcome{}
			err = services.Wrap(services.ErrTransient, name, "execute", fmt.Sprintf("panic: %v", r), nil)
		}
	}()
	return handler.Execute(ctx, item, &stepReporter{manager: m, item: item})
}

// stepReporter forwards accepted progress values to listeners.
type stepReporter struct {
	manager *Manager
	item    *queue.Item
}

var _ stage.Reporter = (*stepReporter)(nil)

func (r *stepReporter) Report(fraction float64) {
	value, ok := r.item.ReportProgress(fraction)
	if !ok {
		return
	}
	step, ok := r.item.CurrentStep()
	if !ok {
		return
	}
	r.manager.emit("step_progress", func(l Listener) { l.OnEntryStepProgress(r.item, step, value) })
}

// finishEntry clears the active slot and updates the counters. When the
// queue is empty afterwards the drain listeners are told.
func (m *Manager) finishEntry(runCtx context.Context, item *queue.Item, failure error) {
	now := m.now()
	m.mu.Lock()
	m.active = nil
	m.activeCancel = nil
	m.finished++
	if failure != nil {
		m.failed++
		m.lastErr = failure
	} else {
		m.completed++
	}
	m.lastItem = item.ID
	drained := len(m.pending) == 0
	summary := DrainSummary{
		Total:     m.total,
		Completed: m.completed,
		Failed:    m.failed,
		Elapsed:   now.Sub(m.queueStart),
	}
	notify := !drained || runCtx.Err() != nil
	if notify {
		m.notifyChangedLocked()
	} else {
		m.settling = true
	}
	m.mu.Unlock()

	if notify {
		return
	}
	defer func() {
		m.mu.Lock()
		m.settling = false
		m.notifyChangedLocked()
		m.mu.Unlock()
	}()
	m.logger.Info("queue drained",
		logging.Int("total", summary.Total),
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", summary.Elapsed),
		logging.String(logging.FieldEventType, "queue_drained"),
	)
	m.emitDrained(summary)
}

func (m *Manager) logItemEnd(logger *slog.Logger, item *queue.Item, failure error) {
	elapsed := durationOrZero(item.StartedAt(), item.FinishedAt())
	if failure == nil {
		logger.Info("item completed",
			logging.Duration("item_duration", elapsed),
			logging.String(logging.FieldEventType, "item_complete"),
		)
		return
	}
	logger.Warn("item failed",
		logging.String("error_message", item.ErrorMessage()),
		logging.String(logging.FieldErrorKind, services.Kind(failure)),
		logging.Duration("item_duration", elapsed),
		logging.String(logging.FieldEventType, "item_failed"),
	)
}

// durationOrZero keeps log fields stable for steps that never began.
func durationOrZero(start, end time.Time) time.Duration {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	return end.Sub(start)
}
