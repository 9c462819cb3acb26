package ffprobe

import (
	"context"
	"errors"
	"math"
	"testing"

	"tunefetch/internal/process"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "video", Disposition: map[string]int{"attached_pic": 1}},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
			BitRate:  "32000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}

type fakeRunner struct {
	lines []string
	err   error
	got   process.Command
}

func (f *fakeRunner) Run(_ context.Context, cmd process.Command, observers ...process.LineObserver) (int, error) {
	f.got = cmd
	for _, line := range f.lines {
		for _, o := range observers {
			o.OnLine(line)
		}
	}
	if f.err != nil {
		return 1, f.err
	}
	return 0, nil
}

func TestInspectParsesRunnerOutput(t *testing.T) {
	runner := &fakeRunner{lines: []string{
		`{"streams": [{"index": 0, "codec_name": "opus", "codec_type": "audio",`,
		`  "channels": 2, "tags": {"TITLE": "Song"}}],`,
		` "format": {"duration": "61.5", "format_name": "ogg", "tags": {}}}`,
	}}
	result, err := Inspect(context.Background(), runner, "", "/music/song.opus")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if runner.got.Binary != "ffprobe" || runner.got.Args[len(runner.got.Args)-1] != "/music/song.opus" {
		t.Fatalf("unexpected command %s", runner.got)
	}
	if result.DurationSeconds() != 61.5 || result.AudioStreams()[0].CodecName != "opus" {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := result.Tag("title"); got != "Song" {
		t.Fatalf("expected stream tag fallback, got %q", got)
	}
}

func TestInspectPropagatesRunnerError(t *testing.T) {
	boom := errors.New("exit 1")
	if _, err := Inspect(context.Background(), &fakeRunner{err: boom}, "ffprobe", "x.mp3"); !errors.Is(err, boom) {
		t.Fatalf("expected runner error, got %v", err)
	}
	if _, err := Inspect(context.Background(), &fakeRunner{}, "ffprobe", " "); err == nil {
		t.Fatal("expected empty path error")
	}
}
