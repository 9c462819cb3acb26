package extraction

import (
	"context"
	"errors"
	"os"
	"slices"
	"testing"

	"tunefetch/internal/config"
	"tunefetch/internal/process"
	"tunefetch/internal/queue"
	"tunefetch/internal/services"
	"tunefetch/internal/stage"
	"tunefetch/internal/testsupport"
)

func TestParseProgressLine(t *testing.T) {
	state := ProgressState{Duration: 10}
	state = ParseProgressLine(state, "frame=0")
	if _, ok := state.Fraction(); ok {
		t.Fatal("unrelated key must not report")
	}
	state = ParseProgressLine(state, "out_time_us=2500000")
	if f, ok := state.Fraction(); !ok || f != 0.25 {
		t.Fatalf("Fraction() = %v, %v", f, ok)
	}
	state = ParseProgressLine(state, "out_time_us=N/A")
	if _, ok := state.Fraction(); ok || state.Elapsed != 2.5 {
		t.Fatalf("N/A must be ignored, got %+v", state)
	}
	state = ParseProgressLine(state, "progress=continue")
	if _, ok := state.Fraction(); ok {
		t.Fatal("progress=continue must not report")
	}
	state = ParseProgressLine(state, "out_time_us=99000000")
	if f, _ := state.Fraction(); f != 1 {
		t.Fatalf("overshoot must clamp, got %v", f)
	}
	state = ParseProgressLine(state, "progress=end")
	if f, ok := state.Fraction(); !ok || f != 1 || !state.Ended {
		t.Fatalf("end must report 1, got %v %v", f, ok)
	}
}

func TestParseProgressLineWithoutDuration(t *testing.T) {
	state := ParseProgressLine(ProgressState{}, "out_time_us=1000000")
	if _, ok := state.Fraction(); ok {
		t.Fatal("unknown duration must not report")
	}
}

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name     string
		codec    string
		lossless bool
		want     []string
	}{
		{name: "flac", codec: "opus", lossless: true, want: []string{"-c:a", "flac"}},
		{name: "mp3 copy", codec: "mp3", want: []string{"-c:a", "copy"}},
		{name: "lame", codec: "opus", want: []string{"-c:a", "libmp3lame", "-q:a", "2"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args := BuildArgs("in.webm", "out", 1, tc.codec, tc.lossless, 2)
			i := slices.Index(args, "-c:a")
			if i < 0 || !slices.Equal(args[i:i+len(tc.want)], tc.want) {
				t.Fatalf("args %v missing %v", args, tc.want)
			}
			if j := slices.Index(args, "-map"); args[j+1] != "0:a:1" {
				t.Fatalf("unexpected map in %v", args)
			}
			if args[len(args)-1] != "out" {
				t.Fatalf("output must be last: %v", args)
			}
		})
	}
}

const probeJSON = `{"streams":[{"index":0,"codec_name":"vp9","codec_type":"video"},{"index":1,"codec_name":"opus","codec_type":"audio","bit_rate":"160000","channels":2}],"format":{"duration":"4.0"}}`

type toolRunner struct {
	probe    string
	ffmpeg   []string
	ffmpegFn func(output string) error
	calls    []process.Command
}

func (r *toolRunner) Run(_ context.Context, cmd process.Command, observers ...process.LineObserver) (int, error) {
	r.calls = append(r.calls, cmd)
	lines := r.ffmpeg
	if cmd.Binary == "ffprobe" {
		lines = []string{r.probe}
	}
	for _, line := range lines {
		for _, o := range observers {
			o.OnLine(line)
		}
	}
	if cmd.Binary == "ffmpeg" && r.ffmpegFn != nil {
		if err := r.ffmpegFn(cmd.Args[len(cmd.Args)-1]); err != nil {
			return 1, err
		}
	}
	return 0, nil
}

type fractions []float64

func (f *fractions) Report(v float64) { *f = append(*f, v) }

func newItem(t *testing.T, cfg *config.Config) *queue.Item {
	t.Helper()
	item, err := queue.NewItem(queue.SourceRemote, "https://example.com/v", cfg.Paths.ScratchDir, []queue.StepDefinition{{Name: StageName}})
	if err != nil {
		t.Fatal(err)
	}
	return item
}

func TestExecuteSkipsWithoutDownload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &toolRunner{}
	outcome, err := NewExtractorWithDependencies(cfg, nil, runner).Execute(context.Background(), newItem(t, cfg), stage.NopReporter)
	if err != nil || !outcome.Skipped || outcome.Summary != "No download file." {
		t.Fatalf("expected skip, got %+v %v", outcome, err)
	}
	if len(runner.calls) != 0 {
		t.Fatal("no tool may run when skipping")
	}
}

func TestExecuteTranscodes(t *testing.T) {
	for _, tc := range []struct {
		format   string
		ext      string
		lossless bool
	}{
		{format: "mp3", ext: "mp3"},
		{format: "flac", ext: "flac", lossless: true},
		{format: "auto", ext: "mp3"},
	} {
		t.Run(tc.format, func(t *testing.T) {
			cfg := testsupport.NewConfig(t, testsupport.WithAudioFormat(tc.format))
			item := newItem(t, cfg)
			download := item.Files.Path(queue.FileDownload, "webm")
			if err := os.WriteFile(download, []byte("x"), 0o644); err != nil {
				t.Fatal(err)
			}
			item.Files.Register(queue.FileDownload, download)

			runner := &toolRunner{
				probe:  probeJSON,
				ffmpeg: []string{"out_time_us=1000000", "progress=continue", "out_time_us=3000000", "progress=end"},
				ffmpegFn: func(output string) error {
					return os.WriteFile(output, []byte("audio"), 0o644)
				},
			}
			var got fractions
			outcome, err := NewExtractorWithDependencies(cfg, nil, runner).Execute(context.Background(), item, &got)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if want := []float64{0.25, 0.75, 1}; !slices.Equal(got, want) {
				t.Fatalf("progress = %v, want %v", got, want)
			}
			audioPath, ok := item.Files.Existing(queue.FileAudio)
			if !ok || audioPath != item.Files.Path(queue.FileAudio, tc.ext) {
				t.Fatalf("audio = %q", audioPath)
			}
			if item.Lossless() != tc.lossless {
				t.Fatalf("lossless = %v", item.Lossless())
			}
			if codec, _ := item.Results.String("extract.codec"); codec != "opus" {
				t.Fatalf("codec = %q", codec)
			}
			if d, _ := item.Results.Number("extract.duration"); d != 4 {
				t.Fatalf("duration = %v", d)
			}
			if outcome.Summary == "" {
				t.Fatal("expected summary")
			}
			if args := runner.calls[1].Args; !slices.Contains(args, "0:a:0") {
				t.Fatalf("expected first audio stream mapped, got %v", args)
			}
		})
	}
}

func TestExecuteRejectsVideoOnlyDownload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	item := newItem(t, cfg)
	download := item.Files.Path(queue.FileDownload, "mp4")
	if err := os.WriteFile(download, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	item.Files.Register(queue.FileDownload, download)
	runner := &toolRunner{probe: `{"streams":[{"index":0,"codec_type":"video"}],"format":{}}`}
	_, err := NewExtractorWithDependencies(cfg, nil, runner).Execute(context.Background(), item, stage.NopReporter)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExecuteWrapsFFmpegFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	item := newItem(t, cfg)
	download := item.Files.Path(queue.FileDownload, "webm")
	if err := os.WriteFile(download, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	item.Files.Register(queue.FileDownload, download)
	runner := &toolRunner{probe: probeJSON, ffmpegFn: func(string) error {
		return &process.ExitError{Binary: "ffmpeg", Code: 1}
	}}
	_, err := NewExtractorWithDependencies(cfg, nil, runner).Execute(context.Background(), item, stage.NopReporter)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if _, ok := item.Files.Lookup(queue.FileAudio); ok {
		t.Fatal("audio must not be registered after failure")
	}
}
