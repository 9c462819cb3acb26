package inspect

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tunefetch/internal/process"
	"tunefetch/internal/queue"
	"tunefetch/internal/services"
	"tunefetch/internal/stage"
	"tunefetch/internal/testsupport"
)

type probeRunner struct {
	output string
	err    error
}

func (r probeRunner) Run(_ context.Context, _ process.Command, observers ...process.LineObserver) (int, error) {
	if r.err != nil {
		return -1, r.err
	}
	for _, o := range observers {
		o.OnLine(r.output)
	}
	return 0, nil
}

func localItem(t *testing.T, scratch, source string) *queue.Item {
	t.Helper()
	item, err := queue.NewItem(queue.SourceLocal, source, scratch, []queue.StepDefinition{{Name: StageName}})
	if err != nil {
		t.Fatal(err)
	}
	return item
}

func TestExecuteAcceptsFLAC(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(testsupport.BaseDir(cfg), "song.flac")
	testsupport.WriteFile(t, path, 128)
	item := localItem(t, cfg.Paths.ScratchDir, path)
	runner := probeRunner{output: `{"streams":[{"index":0,"codec_name":"flac","codec_type":"audio"}],"format":{"duration":"125.2"}}`}

	outcome, err := NewInspectorWithDependencies(cfg, nil, runner).Execute(context.Background(), item, stage.NopReporter)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if outcome.Summary != "Found flac audio, 2m5s long." {
		t.Fatalf("summary = %q", outcome.Summary)
	}
	if got, ok := item.Files.Existing(queue.FileAudio); !ok || got != path {
		t.Fatalf("audio = %q", got)
	}
	if !item.Lossless() {
		t.Fatal("flac must be lossless")
	}
	if d, _ := item.Results.Number("inspect.duration"); d != 125.2 {
		t.Fatalf("duration = %v", d)
	}
}

func TestExecuteFallsBackToExtension(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(testsupport.BaseDir(cfg), "song.mp3")
	testsupport.WriteFile(t, path, 64)
	item := localItem(t, cfg.Paths.ScratchDir, path)
	runner := probeRunner{err: &process.ExitError{Binary: "ffprobe", Code: 1}}

	outcome, err := NewInspectorWithDependencies(cfg, nil, runner).Execute(context.Background(), item, stage.NopReporter)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.Lossless() || outcome.Summary != "Found mp3 audio." {
		t.Fatalf("unexpected result lossless=%v outcome=%+v", item.Lossless(), outcome)
	}
	if codec, _ := item.Results.String("inspect.codec"); codec != "mp3" {
		t.Fatalf("codec = %q", codec)
	}
}

func TestExecuteValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	wav := filepath.Join(base, "song.wav")
	testsupport.WriteFile(t, wav, 8)
	mismatch := filepath.Join(base, "fake.mp3")
	testsupport.WriteFile(t, mismatch, 8)
	if err := os.MkdirAll(filepath.Join(base, "dir.mp3"), 0o755); err != nil {
		t.Fatal(err)
	}
	flacProbe := probeRunner{output: `{"streams":[{"index":0,"codec_name":"flac","codec_type":"audio"}],"format":{}}`}

	tests := []struct {
		name   string
		source string
	}{
		{name: "missing", source: filepath.Join(base, "missing.mp3")},
		{name: "directory", source: filepath.Join(base, "dir.mp3")},
		{name: "unsupported", source: wav},
		{name: "codec mismatch", source: mismatch},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			item := localItem(t, cfg.Paths.ScratchDir, tc.source)
			_, err := NewInspectorWithDependencies(cfg, nil, flacProbe).Execute(context.Background(), item, stage.NopReporter)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := item.Files.Lookup(queue.FileAudio); ok {
				t.Fatal("audio must not be registered")
			}
		})
	}
}
