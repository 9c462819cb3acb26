package queue

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tunefetch/internal/textutil"
)

// ErrInvalidTransition is returned when a lifecycle method is called in a
// state that does not allow it.
var ErrInvalidTransition = errors.New("invalid item transition")

// Item is one submission moving through its stages. Identity fields are
// immutable after NewItem; everything else is reached through methods.
type Item struct {
	ID        string
	Kind      SourceKind
	Source    string
	RequestID string
	CreatedAt time.Time
	Results   *ResultStore
	Files     *WorkingFiles

	mu           sync.RWMutex
	steps        []Step
	cursor       int
	status       Status
	lossless     bool
	errorMessage string
	startedAt    time.Time
	finishedAt   time.Time
}

// ItemID derives the stable identifier for a source reference: the lowercase
// hex MD5 digest of the trimmed reference.
func ItemID(source string) string {
	return textutil.Checksum(source)
}

// NewItem builds a pending item whose working files live under scratchDir.
func NewItem(kind SourceKind, source, scratchDir string, steps []StepDefinition) (*Item, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, errors.New("source reference is empty")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
	id := ItemID(source)
	item := &Item{
		ID:        id,
		Kind:      kind,
		Source:    source,
		RequestID: uuid.NewString(),
		CreatedAt: time.Now(),
		Results:   NewResultStore(),
		Files:     NewWorkingFiles(scratchDir, id),
		steps:     make([]Step, len(steps)),
		cursor:    -1,
		status:    StatusPending,
	}
	for i, def := range steps {
		item.steps[i] = Step{Name: def.Name, Description: def.Description, Status: StepPending}
	}
	return item, nil
}

// Status returns the item lifecycle state.
func (i *Item) Status() Status {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.status
}

// Cursor returns the index of the executing step: -1 before start, len(steps)
// after success, the failed index after failure.
func (i *Item) Cursor() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.cursor
}

// Len returns the number of steps.
func (i *Item) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.steps)
}

// Steps returns a copy of every step record.
func (i *Item) Steps() []Step {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]Step, len(i.steps))
	copy(out, i.steps)
	return out
}

// Step returns a copy of the step at index.
func (i *Item) Step(index int) (Step, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if index < 0 || index >= len(i.steps) {
		return Step{}, false
	}
	return i.steps[index], true
}

// CurrentStep returns the step under the cursor, if any.
func (i *Item) CurrentStep() (Step, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.cursor < 0 || i.cursor >= len(i.steps) {
		return Step{}, false
	}
	return i.steps[i.cursor], true
}

// Lossless reports whether lossless stage variants are selected.
func (i *Item) Lossless() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.lossless
}

// SetLossless selects the lossless (FLAC) or lossy (MP3) stage variants.
func (i *Item) SetLossless(v bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status.IsTerminal() {
		return
	}
	i.lossless = v
}

// ErrorMessage returns the failure reason of a failed item.
func (i *Item) ErrorMessage() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.errorMessage
}

// StartedAt returns when the worker picked the item up.
func (i *Item) StartedAt() time.Time {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.startedAt
}

// FinishedAt returns when the item reached a terminal state.
func (i *Item) FinishedAt() time.Time {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.finishedAt
}

// Progress returns (cursor + current step progress) / len(steps), in [0,1].
func (i *Item) Progress() float64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.progressLocked()
}

func (i *Item) progressLocked() float64 {
	switch {
	case i.status == StatusCompleted:
		return 1
	case i.cursor < 0:
		return 0
	case len(i.steps) == 0:
		return 0
	}
	done := float64(i.cursor)
	if i.cursor < len(i.steps) {
		done += i.steps[i.cursor].Progress
	}
	return clamp01(done / float64(len(i.steps)))
}

// Start moves a pending item to running and positions the cursor on the
// first step.
func (i *Item) Start(now time.Time) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status != StatusPending {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, i.status)
	}
	i.status = StatusRunning
	i.cursor = 0
	i.startedAt = now
	return nil
}

// BeginStep marks the step under the cursor running with progress reset to 0.
func (i *Item) BeginStep(now time.Time) (Step, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status != StatusRunning || i.cursor < 0 || i.cursor >= len(i.steps) {
		return Step{}, fmt.Errorf("%w: begin step at cursor %d (%s)", ErrInvalidTransition, i.cursor, i.status)
	}
	step := &i.steps[i.cursor]
	if step.Status != StepPending {
		return Step{}, fmt.Errorf("%w: step %s already %s", ErrInvalidTransition, step.Name, step.Status)
	}
	step.Status = StepRunning
	step.Progress = 0
	step.StartedAt = now
	return *step, nil
}

// ReportProgress records a fraction for the running step. Values are clamped
// to [0,1]; values not greater than the current progress are dropped and
// reported as not accepted.
func (i *Item) ReportProgress(fraction float64) (float64, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status != StatusRunning || i.cursor < 0 || i.cursor >= len(i.steps) {
		return 0, false
	}
	step := &i.steps[i.cursor]
	if step.Status != StepRunning {
		return step.Progress, false
	}
	fraction = clamp01(fraction)
	if fraction <= step.Progress {
		return step.Progress, false
	}
	step.Progress = fraction
	return fraction, true
}

// EndStep completes (or skips) the running step and advances the cursor.
func (i *Item) EndStep(now time.Time, summary string, skipped bool) (Step, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	step, err := i.runningStepLocked()
	if err != nil {
		return Step{}, err
	}
	step.Status = StepCompleted
	if skipped {
		step.Status = StepSkipped
	}
	step.Summary = summary
	step.FinishedAt = now
	i.cursor++
	return *step, nil
}

// FailStep fails the running step. The cursor stays on it.
func (i *Item) FailStep(now time.Time, summary string) (Step, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	step, err := i.runningStepLocked()
	if err != nil {
		return Step{}, err
	}
	step.Status = StepFailed
	step.Summary = summary
	step.FinishedAt = now
	return *step, nil
}

func (i *Item) runningStepLocked() (*Step, error) {
	if i.status != StatusRunning || i.cursor < 0 || i.cursor >= len(i.steps) {
		return nil, fmt.Errorf("%w: no running step at cursor %d (%s)", ErrInvalidTransition, i.cursor, i.status)
	}
	step := &i.steps[i.cursor]
	if step.Status != StepRunning {
		return nil, fmt.Errorf("%w: step %s is %s", ErrInvalidTransition, step.Name, step.Status)
	}
	return step, nil
}

// Done reports whether every step has ended successfully or was skipped.
func (i *Item) Done() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.cursor >= len(i.steps)
}

// Complete marks a running item whose cursor reached the end as completed.
func (i *Item) Complete(now time.Time) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status != StatusRunning {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, i.status)
	}
	if i.cursor != len(i.steps) {
		return fmt.Errorf("%w: complete with cursor %d of %d", ErrInvalidTransition, i.cursor, len(i.steps))
	}
	i.status = StatusCompleted
	i.finishedAt = now
	return nil
}

// Fail marks a pending or running item as failed with message.
func (i *Item) Fail(now time.Time, message string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status.IsTerminal() {
		return fmt.Errorf("%w: fail from %s", ErrInvalidTransition, i.status)
	}
	i.status = StatusFailed
	i.errorMessage = strings.TrimSpace(message)
	i.finishedAt = now
	return nil
}

// Snapshot returns a deep copy of the item.
func (i *Item) Snapshot() Snapshot {
	i.mu.RLock()
	snap := Snapshot{
		ID:           i.ID,
		Kind:         i.Kind,
		Source:       i.Source,
		RequestID:    i.RequestID,
		Status:       i.status,
		Cursor:       i.cursor,
		Lossless:     i.lossless,
		ErrorMessage: i.errorMessage,
		Progress:     i.progressLocked(),
		Steps:        make([]Step, len(i.steps)),
		CreatedAt:    i.CreatedAt,
		StartedAt:    i.startedAt,
		FinishedAt:   i.finishedAt,
	}
	copy(snap.Steps, i.steps)
	i.mu.RUnlock()

	snap.Results = i.Results.Snapshot()
	snap.Files = i.Files.All()
	return snap
}

func clamp01(v float64) float64 {
	switch {
	case v != v:
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
