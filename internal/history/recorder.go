package history

import (
	"context"
	"log/slog"
	"time"

	"tunefetch/internal/logging"
	"tunefetch/internal/queue"
	"tunefetch/internal/workflow"
)

const recordTimeout = 5 * time.Second

// Recorder is a queue listener that stores every item when it ends.
type Recorder struct {
	workflow.NopListener
	store  *Store
	logger *slog.Logger
}

// NewRecorder wraps store as a listener.
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recorder{store: store, logger: logging.NewComponentLogger(logger, "history")}
}

// OnEntryEnd persists the finished item. Failures are logged; they never
// affect the queue.
func (r *Recorder) OnEntryEnd(item *queue.Item) {
	if r.store == nil || item == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	snap := item.Snapshot()
	if err := r.store.Record(ctx, snap); err != nil {
		logging.WarnWithContext(r.logger, "history record failed", "history_record_failed",
			logging.String(logging.FieldItemID, snap.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.history_db"),
		)
		return
	}
	r.logger.Debug("history recorded",
		logging.String(logging.FieldItemID, snap.ID),
		logging.String("status", string(snap.Status)),
		logging.Any("result_keys", item.Results.Keys()),
	)
}
