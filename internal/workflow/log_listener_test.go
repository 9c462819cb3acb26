package workflow_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"tunefetch/internal/stage"
	"tunefetch/internal/workflow"
)

func TestLogListenerWritesLifecycleLines(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	listener := workflow.NewLogListener(logger)

	progress := make([]float64, 0, 100)
	for i := 1; i <= 100; i++ {
		progress = append(progress, float64(i)/100)
	}
	m := newTestManager(t, workflow.Pipeline{Remote: []stage.Handler{newStubStage("download", progress...)}},
		workflow.WithListeners(listener))
	item := submit(t, m, "https://example.com/a")
	runUntilIdle(t, m)

	out := buf.String()
	for _, want := range []string{"msg=begin", "msg=\"Runs download.\"", "msg=\"step done\"", "msg=completed", "msg=\"queue drained\"", "item_id=" + item.ID} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in log output:\n%s", want, out)
		}
	}
	// 100 reports land in buckets 0 through 10.
	if got := strings.Count(out, "msg=progress"); got != 11 {
		t.Fatalf("expected 11 sampled progress lines, got %d", got)
	}
}
