package queue

import (
	"time"
)

// Status represents the lifecycle of a work item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StepStatus represents the lifecycle of a single stage within an item.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	// StepSkipped is a completed variant used when a precondition file was absent.
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
)

// SourceKind selects the stage set an item runs through.
type SourceKind string

const (
	// SourceRemote items are downloaded from a media page URL.
	SourceRemote SourceKind = "remote"
	// SourceLocal items filter an existing audio file in place.
	SourceLocal SourceKind = "local"
)

// Valid reports whether k is a known kind.
func (k SourceKind) Valid() bool {
	return k == SourceRemote || k == SourceLocal
}

// StepDefinition names one stage of an item's pipeline.
type StepDefinition struct {
	Name        string
	Description string
}

// Step is the record of one stage's execution on one item. Values returned by
// Item accessors are copies.
type Step struct {
	Name        string
	Description string
	Status      StepStatus
	Progress    float64
	Summary     string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Elapsed returns the run time of a finished step, or the time since start for
// a running one.
func (s Step) Elapsed() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Snapshot is a point-in-time copy of an item suitable for rendering,
// persistence, and assertions.
type Snapshot struct {
	ID           string
	Kind         SourceKind
	Source       string
	RequestID    string
	Status       Status
	Cursor       int
	Lossless     bool
	ErrorMessage string
	Progress     float64
	Steps        []Step
	Results      map[string]any
	Files        map[string]string
	CreatedAt    time.Time
	StartedAt    time.Time
	FinishedAt   time.Time
}
