package workflow

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"tunefetch/internal/logging"
	"tunefetch/internal/queue"
)

// Listener observes item lifecycle events. Every method is called on the
// worker goroutine, so implementations must return quickly. Item accessors
// may be used freely; the item must not be mutated.
type Listener interface {
	OnEntryBegin(item *queue.Item)
	OnEntryStepBegin(item *queue.Item, step queue.Step)
	OnEntryStepProgress(item *queue.Item, step queue.Step, progress float64)
	OnEntryStepEnd(item *queue.Item, step queue.Step, elapsed time.Duration, itemProgress float64)
	OnEntryEnd(item *queue.Item)
}

// DrainListener is optionally implemented by listeners that want to know when
// the worker runs out of pending items.
type DrainListener interface {
	OnQueueDrained(summary DrainSummary)
}

// ListenerHandle identifies a registration for RemoveListener.
type ListenerHandle uint64

// NopListener ignores every event. Embed it to implement a subset.
type NopListener struct{}

func (NopListener) OnEntryBegin(*queue.Item)                                       {}
func (NopListener) OnEntryStepBegin(*queue.Item, queue.Step)                       {}
func (NopListener) OnEntryStepProgress(*queue.Item, queue.Step, float64)           {}
func (NopListener) OnEntryStepEnd(*queue.Item, queue.Step, time.Duration, float64) {}
func (NopListener) OnEntryEnd(*queue.Item)                                         {}

// ListenerFuncs adapts optional callbacks to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Begin        func(item *queue.Item)
	StepBegin    func(item *queue.Item, step queue.Step)
	StepProgress func(item *queue.Item, step queue.Step, progress float64)
	StepEnd      func(item *queue.Item, step queue.Step, elapsed time.Duration, itemProgress float64)
	End          func(item *queue.Item)
	Drained      func(summary DrainSummary)
}

func (f ListenerFuncs) OnEntryBegin(item *queue.Item) {
	if f.Begin != nil {
		f.Begin(item)
	}
}

func (f ListenerFuncs) OnEntryStepBegin(item *queue.Item, step queue.Step) {
	if f.StepBegin != nil {
		f.StepBegin(item, step)
	}
}

func (f ListenerFuncs) OnEntryStepProgress(item *queue.Item, step queue.Step, progress float64) {
	if f.StepProgress != nil {
		f.StepProgress(item, step, progress)
	}
}

func (f ListenerFuncs) OnEntryStepEnd(item *queue.Item, step queue.Step, elapsed time.Duration, itemProgress float64) {
	if f.StepEnd != nil {
		f.StepEnd(item, step, elapsed, itemProgress)
	}
}

func (f ListenerFuncs) OnEntryEnd(item *queue.Item) {
	if f.End != nil {
		f.End(item)
	}
}

func (f ListenerFuncs) OnQueueDrained(summary DrainSummary) {
	if f.Drained != nil {
		f.Drained(summary)
	}
}

type registration struct {
	handle   ListenerHandle
	listener Listener
}

// listenerSet is copy-on-write: readers load the current slice without
// locking, writers replace it under mu. Delivery iterates a snapshot, so a
// listener may add or remove listeners from inside a callback.
type listenerSet struct {
	mu      sync.Mutex
	next    ListenerHandle
	current atomic.Pointer[[]registration]
}

func (s *listenerSet) add(l Listener) ListenerHandle {
	if l == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	var old []registration
	if p := s.current.Load(); p != nil {
		old = *p
	}
	updated := make([]registration, len(old), len(old)+1)
	copy(updated, old)
	updated = append(updated, registration{handle: s.next, listener: l})
	s.current.Store(&updated)
	return s.next
}

func (s *listenerSet) remove(h ListenerHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.current.Load()
	if p == nil {
		return false
	}
	updated := make([]registration, 0, len(*p))
	found := false
	for _, r := range *p {
		if r.handle == h {
			found = true
			continue
		}
		updated = append(updated, r)
	}
	if found {
		s.current.Store(&updated)
	}
	return found
}

func (s *listenerSet) snapshot() []registration {
	if p := s.current.Load(); p != nil {
		return *p
	}
	return nil
}

// AddListener registers l and returns a handle for RemoveListener. A listener
// added while an item is running sees events from the next one emitted.
func (m *Manager) AddListener(l Listener) ListenerHandle {
	return m.listeners.add(l)
}

// RemoveListener unregisters h. It reports whether h was registered.
func (m *Manager) RemoveListener(h ListenerHandle) bool {
	return m.listeners.remove(h)
}

func (m *Manager) emit(event string, deliver func(Listener)) {
	for _, reg := range m.listeners.snapshot() {
		m.deliver(event, reg, deliver)
	}
}

func (m *Manager) deliver(event string, reg registration, deliver func(Listener)) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("listener panicked",
				logging.String("listener_event", event),
				logging.String("listener", fmt.Sprintf("%T", reg.listener)),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldEventType, "listener_panic"),
				logging.Alert("listener_panic"),
			)
		}
	}()
	deliver(reg.listener)
}

func (m *Manager) emitDrained(summary DrainSummary) {
	m.emit("queue_drained", func(l Listener) {
		if dl, ok := l.(DrainListener); ok {
			dl.OnQueueDrained(summary)
		}
	})
}
