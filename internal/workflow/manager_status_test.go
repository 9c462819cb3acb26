package workflow_test

import (
	"context"
	"testing"
	"time"

	"tunefetch/internal/queue"
	"tunefetch/internal/services"
	"tunefetch/internal/stage"
	"tunefetch/internal/workflow"
)

func TestStatusReportsHealthAndLastFailure(t *testing.T) {
	shared := newStubStage("shared")
	failing := newStubStage("fail")
	failing.health = stage.Unhealthy("fail", "tool missing")
	failing.execute = func(context.Context, *queue.Item, stage.Reporter) (stage.Outcome, error) {
		return stage.Outcome{}, services.Wrap(services.ErrExternalTool, "fail", "run", "tool failed", nil)
	}
	stamp := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	m := newTestManager(t,
		workflow.Pipeline{Remote: []stage.Handler{shared, failing}, Local: []stage.Handler{shared}},
		workflow.WithClock(func() time.Time { return stamp }),
	)

	item := submit(t, m, "a")
	runUntilIdle(t, m)

	status := m.Status(context.Background())
	if !status.Running {
		t.Fatal("expected running workflow")
	}
	if status.LastItem != item.ID || status.LastError == "" {
		t.Fatalf("unexpected last item/error: %q %q", status.LastItem, status.LastError)
	}
	if status.QueueStats[queue.StatusFailed] != 1 || status.Progress != 1 {
		t.Fatalf("unexpected queue stats %v progress %v", status.QueueStats, status.Progress)
	}
	if len(status.StageHealth) != 2 || status.StageHealth["fail"].Ready || !status.StageHealth["shared"].Ready {
		t.Fatalf("unexpected stage health %+v", status.StageHealth)
	}
	if !item.FinishedAt().Equal(stamp) {
		t.Fatalf("expected injected clock on item, got %v", item.FinishedAt())
	}
}
