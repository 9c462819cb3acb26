package workflow

import (
	"context"
	"errors"
	"fmt"

	"tunefetch/internal/logging"
	"tunefetch/internal/queue"
	"tunefetch/internal/services"
	"tunefetch/internal/stage"
)

// errCancelledByUser is the cancellation cause for Cancel on the active item.
var errCancelledByUser = errors.New("cancelled by user")

// Submit appends a new item for ref to the queue and wakes the worker. It
// returns immediately; the item runs when every earlier item has ended.
// Submitting a reference that is already pending or running is rejected.
func (m *Manager) Submit(ref string, kind queue.SourceKind) (*queue.Item, error) {
	m.mu.RLock()
	handlers := append([]stage.Handler(nil), m.pipeline.Stages(kind)...)
	m.mu.RUnlock()
	if len(handlers) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "submit",
			fmt.Sprintf("no stages configured for %s sources", kind), nil)
	}
	defs := make([]queue.StepDefinition, 0, len(handlers))
	for _, h := range handlers {
		if h == nil {
			return nil, services.Wrap(services.ErrConfiguration, "workflow", "submit", "nil stage handler", nil)
		}
		defs = append(defs, h.Descriptor().Definition())
	}

	scratch := ""
	if m.cfg != nil {
		scratch = m.cfg.Paths.ScratchDir
	}
	item, err := queue.NewItem(kind, ref, scratch, defs)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "workflow", "submit", "invalid submission", err)
	}

	m.mu.Lock()
	if existing := m.findQueuedLocked(item.ID); existing != nil {
		m.mu.Unlock()
		return nil, services.Wrap(services.ErrValidation, "workflow", "submit",
			fmt.Sprintf("%s is already queued", item.Source), nil)
	}
	if m.total == m.finished {
		m.queueStart = m.now()
	}
	e := entry{item: item, handlers: handlers}
	m.entries = append(m.entries, e)
	m.pending = append(m.pending, e)
	m.total++
	m.notifyChangedLocked()
	m.mu.Unlock()

	m.logger.Info("item queued",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("source", item.Source),
		logging.String("kind", string(item.Kind)),
		logging.Int("steps", len(defs)),
		logging.String(logging.FieldEventType, "item_queued"),
	)
	m.signalWorker()
	return item, nil
}

func (m *Manager) findQueuedLocked(id string) *queue.Item {
	if m.active != nil && m.active.item.ID == id {
		return m.active.item
	}
	for _, e := range m.pending {
		if e.item.ID == id {
			return e.item
		}
	}
	return nil
}

// Cancel stops the item with id. The active item has its context cancelled,
// which kills its running process, and ends failed. A pending item is removed
// from the queue without events and no longer counts toward the total.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	if m.active != nil && m.active.item.ID == id {
		cancel := m.activeCancel
		m.mu.Unlock()
		if cancel != nil {
			cancel(errCancelledByUser)
		}
		m.logger.Info("active item cancellation requested",
			logging.String(logging.FieldItemID, id),
			logging.String(logging.FieldEventType, "item_cancel_requested"),
		)
		return nil
	}
	for i, e := range m.pending {
		if e.item.ID != id {
			continue
		}
		m.pending = append(m.pending[:i:i], m.pending[i+1:]...)
		m.total--
		_ = e.item.Fail(m.now(), "cancelled before start")
		m.notifyChangedLocked()
		m.mu.Unlock()
		m.logger.Info("pending item removed",
			logging.String(logging.FieldItemID, id),
			logging.String(logging.FieldEventType, "item_removed"),
		)
		return nil
	}
	m.mu.Unlock()
	return services.Wrap(services.ErrValidation, "workflow", "cancel",
		fmt.Sprintf("no pending or running item %s", id), nil)
}

// CancelActive cancels whichever item is running. It reports whether one was.
func (m *Manager) CancelActive() bool {
	m.mu.RLock()
	var id string
	if m.active != nil {
		id = m.active.item.ID
	}
	m.mu.RUnlock()
	if id == "" {
		return false
	}
	return m.Cancel(id) == nil
}

// Progress returns overall queue progress in [0,1]: finished items plus the
// active item's fraction, over every item submitted. It is 0 when nothing was
// submitted.
func (m *Manager) Progress() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.progressLocked()
}

func (m *Manager) progressLocked() float64 {
	if m.total <= 0 {
		return 0
	}
	done := float64(m.finished)
	if m.active != nil {
		done += m.active.item.Progress()
	}
	p := done / float64(m.total)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// Snapshot copies every item submitted so far along with the queue counters.
func (m *Manager) Snapshot() QueueSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := QueueSnapshot{
		Items:    make([]queue.Snapshot, 0, len(m.entries)),
		Total:    m.total,
		Finished: m.finished,
		Pending:  len(m.pending),
		Progress: m.progressLocked(),
		TakenAt:  m.now(),
	}
	if m.active != nil {
		snap.ActiveID = m.active.item.ID
	}
	for _, e := range m.entries {
		snap.Items = append(snap.Items, e.item.Snapshot())
	}
	return snap
}

// WaitIdle blocks until no item is pending or running and drain listeners
// have returned, or ctx is done.
func (m *Manager) WaitIdle(ctx context.Context) error {
	for {
		m.mu.RLock()
		idle := len(m.pending) == 0 && m.active == nil && !m.settling
		changed := m.changed
		m.mu.RUnlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// notifyChangedLocked wakes every WaitIdle caller. m.mu must be held.
func (m *Manager) notifyChangedLocked() {
	close(m.changed)
	m.changed = make(chan struct{})
}

func (m *Manager) signalWorker() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}
