package workflow

import (
	"context"
	"log/slog"

	"tunefetch/internal/logging"
	"tunefetch/internal/queue"
	"tunefetch/internal/services"
)

// itemLogger returns the manager logger tagged with the item's identifiers.
func (m *Manager) itemLogger(ctx context.Context, item *queue.Item) *slog.Logger {
	base := m.logger
	if base == nil {
		base = logging.NewNop()
	}
	return logging.WithContext(withStageContext(ctx, "", item), base)
}

func withStageContext(ctx context.Context, stageName string, item *queue.Item) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if item != nil {
		ctx = services.WithItemID(ctx, item.ID)
		ctx = services.WithRequestID(ctx, item.RequestID)
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	return ctx
}
