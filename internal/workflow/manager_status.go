package workflow

import (
	"context"

	"tunefetch/internal/queue"
	"tunefetch/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastItem    string
	Progress    float64
	QueueStats  map[queue.Status]int
	StageHealth map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastItem := m.lastItem
	handlers := m.pipeline.all()
	stats := make(map[queue.Status]int, 4)
	for _, e := range m.entries {
		stats[e.item.Status()]++
	}
	progress := m.progressLocked()
	m.mu.RUnlock()

	health := make(map[string]stage.Health, len(handlers))
	for _, handler := range handlers {
		name := handler.Descriptor().Name
		if _, seen := health[name]; seen {
			continue
		}
		health[name] = handler.HealthCheck(ctx)
	}

	summary := StatusSummary{
		Running:     running,
		LastItem:    lastItem,
		Progress:    progress,
		QueueStats:  stats,
		StageHealth: health,
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
