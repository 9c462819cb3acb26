package stage

import (
	"context"

	"tunefetch/internal/queue"
)

// Descriptor names a stage and describes it for presentation.
type Descriptor struct {
	Name        string
	Description string
}

// Definition converts the descriptor into the step definition stored on items.
func (d Descriptor) Definition() queue.StepDefinition {
	return queue.StepDefinition{Name: d.Name, Description: d.Description}
}

// Handler describes the contract the workflow manager needs from each stage.
// Handlers are stateless and shared by every item; per-item state lives on
// the item. Execute is only ever called from the queue worker.
type Handler interface {
	Descriptor() Descriptor
	Execute(ctx context.Context, item *queue.Item, progress Reporter) (Outcome, error)
	HealthCheck(context.Context) Health
}

// Outcome is the successful result of Execute.
type Outcome struct {
	Summary string
	// Skipped marks a stage that did nothing because a precondition file was
	// absent. A skipped stage counts as completed.
	Skipped bool
}

// Done returns a completed outcome with summary.
func Done(summary string) Outcome {
	return Outcome{Summary: summary}
}

// Skip returns a skipped outcome with the reason as summary.
func Skip(reason string) Outcome {
	return Outcome{Summary: reason, Skipped: true}
}

// Reporter receives progress fractions for the running stage. Values outside
// [0,1] are clamped and values lower than the last accepted one are dropped.
type Reporter interface {
	Report(fraction float64)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(fraction float64)

// Report calls f(fraction).
func (f ReporterFunc) Report(fraction float64) {
	if f != nil {
		f(fraction)
	}
}

// NopReporter discards progress.
var NopReporter Reporter = ReporterFunc(nil)
