package workflow_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"tunefetch/internal/logging"
	"tunefetch/internal/queue"
	"tunefetch/internal/stage"
	"tunefetch/internal/testsupport"
	"tunefetch/internal/workflow"
)

type stubStage struct {
	name     string
	execute  func(ctx context.Context, item *queue.Item, progress stage.Reporter) (stage.Outcome, error)
	progress []float64
	health   stage.Health
}

func newStubStage(name string, progress ...float64) *stubStage {
	return &stubStage{name: name, progress: progress, health: stage.Healthy(name)}
}

func (s *stubStage) Descriptor() stage.Descriptor {
	return stage.Descriptor{Name: s.name, Description: fmt.Sprintf("Runs %s.", s.name)}
}

func (s *stubStage) Execute(ctx context.Context, item *queue.Item, progress stage.Reporter) (stage.Outcome, error) {
	if s.execute != nil {
		return s.execute(ctx, item, progress)
	}
	for _, p := range s.progress {
		progress.Report(p)
	}
	return stage.Done(s.name + " done"), nil
}

func (s *stubStage) HealthCheck(context.Context) stage.Health {
	return s.health
}

type event struct {
	Kind   string
	Item   string
	Step   string
	Value  float64
	Cursor int
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) add(e event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

func (r *recorder) OnEntryBegin(item *queue.Item) {
	r.add(event{Kind: "begin", Item: item.Source, Cursor: item.Cursor()})
}

func (r *recorder) OnEntryStepBegin(item *queue.Item, step queue.Step) {
	r.add(event{Kind: "step_begin", Item: item.Source, Step: step.Name, Cursor: item.Cursor()})
}

func (r *recorder) OnEntryStepProgress(item *queue.Item, step queue.Step, progress float64) {
	r.add(event{Kind: "progress", Item: item.Source, Step: step.Name, Value: progress, Cursor: item.Cursor()})
}

func (r *recorder) OnEntryStepEnd(item *queue.Item, step queue.Step, _ time.Duration, itemProgress float64) {
	r.add(event{Kind: "step_end", Item: item.Source, Step: step.Name, Value: itemProgress, Cursor: item.Cursor()})
}

func (r *recorder) OnEntryEnd(item *queue.Item) {
	r.add(event{Kind: "end", Item: item.Source, Step: string(item.Status()), Cursor: item.Cursor()})
}

func newTestManager(t *testing.T, pipeline workflow.Pipeline, opts ...workflow.ManagerOption) *workflow.Manager {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	opts = append([]workflow.ManagerOption{workflow.WithoutPreflight()}, opts...)
	m := workflow.NewManager(cfg, pipeline, logging.NewNop(), opts...)
	t.Cleanup(m.Stop)
	return m
}

func submit(t *testing.T, m *workflow.Manager, ref string) *queue.Item {
	t.Helper()
	item, err := m.Submit(ref, queue.SourceRemote)
	if err != nil {
		t.Fatalf("Submit(%s): %v", ref, err)
	}
	return item
}

func runUntilIdle(t *testing.T, m *workflow.Manager) {
	t.Helper()
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitIdle(t, m)
}

func waitIdle(t *testing.T, m *workflow.Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := m.WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
}
