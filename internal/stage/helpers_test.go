package stage

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"tunefetch/internal/queue"
	"tunefetch/internal/testsupport"
)

func TestRequireFile(t *testing.T) {
	item, err := queue.NewItem(queue.SourceLocal, "/music/a.mp3", t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	_, outcome, ok := RequireFile(item, queue.FileAudio)
	if ok || !outcome.Skipped || outcome.Summary != "No audio file." {
		t.Fatalf("expected skip outcome, got %+v ok=%v", outcome, ok)
	}

	path := testsupport.StageFile(t, item.Files, queue.FileAudio, "mp3", 1)
	got, _, ok := RequireFile(item, queue.FileAudio)
	if !ok || got != path {
		t.Fatalf("expected %s, got %s ok=%v", path, got, ok)
	}
}

func TestWithOptionalTimeout(t *testing.T) {
	ctx, cancel := WithOptionalTimeout(context.Background(), 0)
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatal("zero duration must not set a deadline")
	}
	ctx2, cancel2 := WithOptionalTimeout(context.Background(), time.Minute)
	defer cancel2()
	if _, ok := ctx2.Deadline(); !ok {
		t.Fatal("expected deadline")
	}
}

func TestParseObserverReportsParsedProgress(t *testing.T) {
	type state struct {
		percent float64
		seen    bool
	}
	parse := func(s state, line string) state {
		if v, err := strconv.ParseFloat(strings.TrimSuffix(line, "%"), 64); err == nil {
			s.percent = v
			s.seen = true
		}
		return s
	}
	var reported []float64
	obs := NewParseObserver(state{}, parse, func(s state) (float64, bool) {
		return s.percent / 100, s.seen
	}, ReporterFunc(func(f float64) { reported = append(reported, f) }))

	for _, line := range []string{"noise", "10%", "garbage", "55%"} {
		obs.OnLine(line)
	}
	if len(reported) != 3 || reported[0] != 0.1 || reported[2] != 0.55 {
		t.Fatalf("unexpected reports %v", reported)
	}
	if obs.State.percent != 55 {
		t.Fatalf("unexpected final state %+v", obs.State)
	}
}

func TestOutcomeConstructors(t *testing.T) {
	if o := Done("ok"); o.Skipped || o.Summary != "ok" {
		t.Fatalf("unexpected done outcome %+v", o)
	}
	if o := Skip("missing"); !o.Skipped {
		t.Fatalf("unexpected skip outcome %+v", o)
	}
	NopReporter.Report(0.5)
}

func TestToolHealth(t *testing.T) {
	tool := filepath.Join(t.TempDir(), "mp3gain")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if h := ToolHealth("normalize", tool); !h.Ready || h.Detail != tool {
		t.Fatalf("expected ready with resolved path, got %+v", h)
	}
	h := ToolHealth("normalize", filepath.Join(t.TempDir(), "missing"))
	if h.Ready || !strings.Contains(h.Detail, "not found") {
		t.Fatalf("expected not found, got %+v", h)
	}
	if h := ToolHealth("normalize", ""); h.Ready || h.Detail != "command not configured" {
		t.Fatalf("expected unconfigured, got %+v", h)
	}
}
