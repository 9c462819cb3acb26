package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tunefetch/internal/config"
	"tunefetch/internal/logging"
)

// Manager coordinates queue processing using the configured pipeline.
type Manager struct {
	cfg           *config.Config
	logger        *slog.Logger
	listeners     listenerSet
	now           func() time.Time
	skipPreflight bool

	mu           sync.RWMutex
	pipeline     Pipeline
	entries      []entry
	pending      []entry
	active       *entry
	settling     bool
	activeCancel context.CancelCauseFunc
	total        int
	finished     int
	completed    int
	failed       int
	queueStart   time.Time
	running      bool
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	lastErr      error
	lastItem     string
	wake         chan struct{}
	changed      chan struct{}
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithListeners registers listeners before the worker starts.
func WithListeners(listeners ...Listener) ManagerOption {
	return func(m *Manager) {
		for _, l := range listeners {
			m.listeners.add(l)
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithoutPreflight skips the filesystem checks Start normally performs.
func WithoutPreflight() ManagerOption {
	return func(m *Manager) {
		m.skipPreflight = true
	}
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, pipeline Pipeline, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		now:      time.Now,
		pipeline: pipeline,
		wake:     make(chan struct{}, 1),
		changed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
