package download

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"testing"

	"tunefetch/internal/config"
	"tunefetch/internal/logging"
	"tunefetch/internal/process"
	"tunefetch/internal/queue"
	"tunefetch/internal/services"
	"tunefetch/internal/stage"
	"tunefetch/internal/testsupport"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		percent float64
		has     bool
		file    string
	}{
		{name: "progress", line: "[download]  42.3% of    3.20MiB at  1.00MiB/s ETA 00:02", percent: 42.3, has: true},
		{name: "finished", line: "[download] 100% of    3.20MiB in 00:00:01 at 2.10MiB/s", percent: 100, has: true},
		{name: "destination", line: "[download] Destination: /tmp/x.webm"},
		{name: "extractor", line: "[youtube] abc: Downloading webpage"},
		{name: "marker", line: "file:/scratch/abc.download.webm", file: "/scratch/abc.download.webm"},
		{name: "empty marker", line: "file:   "},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseLine(State{}, tc.line)
			if got.HasPercent != tc.has || got.Percent != tc.percent || got.File != tc.file {
				t.Fatalf("ParseLine(%q) = %+v", tc.line, got)
			}
		})
	}
}

func TestParseLineKeepsStateOnNoise(t *testing.T) {
	state := ParseLine(State{}, "[download]  12.5% of 1MiB")
	state = ParseLine(state, "file:/a.opus")
	state = ParseLine(state, "WARNING: something odd")
	if state.Percent != 12.5 || state.File != "/a.opus" {
		t.Fatalf("unexpected state %+v", state)
	}
	if _, ok := state.Fraction(); ok {
		t.Fatal("a line without a percentage must not report progress")
	}
	state = ParseLine(state, "[download]  25% of 1MiB")
	if f, ok := state.Fraction(); !ok || f != 0.25 {
		t.Fatalf("Fraction() = %v, %v", f, ok)
	}
	if _, ok := (State{}).Fraction(); ok {
		t.Fatal("empty state must not report progress")
	}
}

func TestBuildArgs(t *testing.T) {
	args := BuildArgs(config.Download{ExtraArgs: []string{"--cookies-from-browser", " firefox "}}, "/s/id.download.%(ext)s", "https://example.com/watch?v=1")
	if args[len(args)-1] != "https://example.com/watch?v=1" || args[len(args)-2] != "--" {
		t.Fatalf("url must be last after --, got %v", args)
	}
	if i := slices.Index(args, "-f"); i < 0 || args[i+1] != "bestaudio/best" {
		t.Fatalf("expected default selector, got %v", args)
	}
	if !slices.Contains(args, "firefox") || !slices.Contains(args, "--write-info-json") {
		t.Fatalf("missing args in %v", args)
	}
}

type fakeRunner struct {
	run func(cmd process.Command, emit func(string)) error
	got process.Command
}

func (f *fakeRunner) Run(_ context.Context, cmd process.Command, observers ...process.LineObserver) (int, error) {
	f.got = cmd
	emit := func(line string) {
		for _, o := range observers {
			o.OnLine(line)
		}
	}
	if err := f.run(cmd, emit); err != nil {
		return 1, err
	}
	return 0, nil
}

type fractions []float64

func (f *fractions) Report(v float64) { *f = append(*f, v) }

func newItem(t *testing.T, scratch string) *queue.Item {
	t.Helper()
	item, err := queue.NewItem(queue.SourceRemote, "https://example.com/watch?v=1", scratch, []queue.StepDefinition{{Name: StageName}})
	if err != nil {
		t.Fatal(err)
	}
	return item
}

func TestExecuteRegistersFilesAndResults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	item := newItem(t, cfg.Paths.ScratchDir)
	media := item.Files.Path(queue.FileDownload, "webm")
	info := item.Files.Path(queue.FileDownload, "info.json")

	runner := &fakeRunner{run: func(cmd process.Command, emit func(string)) error {
		if err := os.WriteFile(media, []byte("audio"), 0o644); err != nil {
			return err
		}
		payload := `{"title":"Artist - Song (Official Video)","channel":"ArtistVEVO","thumbnail":"https://img/x.jpg","duration":201.5,"webpage_url":"https://example.com/watch?v=1","upload_date":"20190102"}`
		if err := os.WriteFile(info, []byte(payload), 0o644); err != nil {
			return err
		}
		emit("[youtube] 1: Downloading webpage")
		emit("[download]  10.0% of 5MiB")
		emit("[download]  55.5% of 5MiB")
		emit("[download] 100% of 5MiB in 00:01")
		emit("file:" + media)
		return nil
	}}
	var got fractions
	d := NewDownloaderWithDependencies(cfg, logging.NewNop(), runner)
	outcome, err := d.Execute(context.Background(), item, &got)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if outcome.Skipped || !strings.Contains(outcome.Summary, "Artist - Song") {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if want := []float64{0.1, 0.555, 1}; !slices.Equal(got, want) {
		t.Fatalf("progress = %v, want %v", got, want)
	}
	if runner.got.Binary != cfg.Tools.YTDLP || runner.got.Dir != cfg.Paths.ScratchDir {
		t.Fatalf("unexpected command %s (dir %s)", runner.got, runner.got.Dir)
	}
	if p, ok := item.Files.Lookup(queue.FileDownload); !ok || p != media {
		t.Fatalf("download file = %q", p)
	}
	if p, ok := item.Files.Lookup(queue.FileInfo); !ok || p != info {
		t.Fatalf("info file = %q", p)
	}
	if v, _ := item.Results.String("download.uploader"); v != "ArtistVEVO" {
		t.Fatalf("uploader = %q", v)
	}
	if v, _ := item.Results.Number("download.duration"); v != 201.5 {
		t.Fatalf("duration = %v", v)
	}
	if _, ok := item.Results.String("download.artist"); ok {
		t.Fatal("empty fields must not be published")
	}
}

func TestExecuteFindsFileWithoutMarker(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	item := newItem(t, cfg.Paths.ScratchDir)
	media := item.Files.Path(queue.FileDownload, "m4a")
	runner := &fakeRunner{run: func(process.Command, func(string)) error {
		if err := os.WriteFile(item.Files.Path(queue.FileDownload, "m4a.part"), []byte("x"), 0o644); err != nil {
			return err
		}
		return os.WriteFile(media, []byte("audio"), 0o644)
	}}
	d := NewDownloaderWithDependencies(cfg, nil, runner)
	if _, err := d.Execute(context.Background(), item, stage.NopReporter); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if p, _ := item.Files.Lookup(queue.FileDownload); p != media {
		t.Fatalf("download file = %q, want %q", p, media)
	}
	if _, ok := item.Files.Lookup(queue.FileInfo); ok {
		t.Fatal("info must not be registered when absent")
	}
}

func TestExecuteWrapsToolFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	item := newItem(t, cfg.Paths.ScratchDir)
	runner := &fakeRunner{run: func(process.Command, func(string)) error {
		return &process.ExitError{Binary: "yt-dlp", Code: 1, Stderr: "ERROR: Video unavailable"}
	}}
	d := NewDownloaderWithDependencies(cfg, nil, runner)
	_, err := d.Execute(context.Background(), item, stage.NopReporter)
	if !errors.Is(err, services.ErrExternalTool) || !errors.Is(err, services.ErrNonZeroExit) {
		t.Fatalf("expected external tool failure, got %v", err)
	}
	if details := services.Details(err); details.Message != "yt-dlp failed" {
		t.Fatalf("unexpected details %+v", details)
	}
}

func TestExecuteFailsWithoutOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	item := newItem(t, cfg.Paths.ScratchDir)
	runner := &fakeRunner{run: func(process.Command, func(string)) error { return nil }}
	d := NewDownloaderWithDependencies(cfg, nil, runner)
	if _, err := d.Execute(context.Background(), item, stage.NopReporter); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected missing output failure, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("yt-dlp"))
	if h := NewDownloader(cfg, nil).HealthCheck(context.Background()); !h.Ready {
		t.Fatalf("expected ready, got %+v", h)
	}
	cfg.Tools.YTDLP = "tunefetch-missing-ytdlp"
	if h := NewDownloader(cfg, nil).HealthCheck(context.Background()); h.Ready {
		t.Fatal("expected unhealthy for missing binary")
	}
}
