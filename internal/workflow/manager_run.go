package workflow

import (
	"context"
	"errors"

	"tunefetch/internal/logging"
)

// Start runs the preflight checks and then begins background processing.
// Items submitted before Start wait in the queue until it is called.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.RLock()
	running := m.running
	configured := len(m.pipeline.all()) > 0
	m.mu.RUnlock()
	if running {
		return errors.New("workflow already running")
	}
	if !configured {
		return errors.New("workflow stages not configured")
	}

	if !m.skipPreflight {
		if err := m.runPreflightChecks(ctx); err != nil {
			m.setLastError(err)
			return err
		}
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.runWorker(runCtx)
	m.logger.Info("workflow started", logging.String(logging.FieldEventType, "workflow_started"))
	return nil
}

// Stop terminates background processing and waits for completion. The
// active item, if any, is cancelled and ends failed; pending items stay
// queued and run after the next Start.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stopped"))
}

func (m *Manager) runWorker(ctx context.Context) {
	defer m.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		next, itemCtx, cancel := m.nextEntry(ctx)
		if next == nil {
			m.waitForItemOrShutdown(ctx)
			continue
		}
		m.processItem(ctx, itemCtx, cancel, next)
	}
}

// nextEntry pops the head of the queue and makes it the active item.
func (m *Manager) nextEntry(ctx context.Context) (*entry, context.Context, context.CancelCauseFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return nil, nil, nil
	}
	next := m.pending[0]
	m.pending[0] = entry{}
	m.pending = m.pending[1:]
	itemCtx, cancel := context.WithCancelCause(ctx)
	m.active = &next
	m.activeCancel = cancel
	m.notifyChangedLocked()
	return &next, itemCtx, cancel
}

func (m *Manager) waitForItemOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-m.wake:
	}
}
