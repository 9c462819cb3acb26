package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"tunefetch/internal/config"
	"tunefetch/internal/logging"
	"tunefetch/internal/media/audio"
	"tunefetch/internal/media/ffprobe"
	"tunefetch/internal/process"
	"tunefetch/internal/queue"
	"tunefetch/internal/services"
	"tunefetch/internal/stage"
	"tunefetch/internal/textutil"
)

// StageName identifies the extract stage.
const StageName = "extract"

// Result keys published by the extract stage.
const (
	ResultCodec    = "codec"
	ResultDuration = "duration"
	ResultFormat   = "format"
)

// Extractor turns a downloaded container into a plain audio file.
type Extractor struct {
	cfg    *config.Config
	logger *slog.Logger
	runner process.Runner
}

// NewExtractor constructs the extract stage handler using default dependencies.
func NewExtractor(cfg *config.Config, logger *slog.Logger) *Extractor {
	return NewExtractorWithDependencies(cfg, logger, process.NewExecRunner())
}

// NewExtractorWithDependencies allows injecting a process runner (used in tests).
func NewExtractorWithDependencies(cfg *config.Config, logger *slog.Logger, runner process.Runner) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{cfg: cfg, logger: logging.NewComponentLogger(logger, StageName), runner: runner}
}

func (e *Extractor) Descriptor() stage.Descriptor {
	return stage.Descriptor{Name: StageName, Description: "Extracts the audio track from the download."}
}

func (e *Extractor) Execute(ctx context.Context, item *queue.Item, progress stage.Reporter) (stage.Outcome, error) {
	logger := logging.WithContext(ctx, e.logger)
	input, skip, ok := stage.RequireFile(item, queue.FileDownload)
	if !ok {
		logger.Info("download file missing; skipping extraction", logging.String(logging.FieldEventType, "extract_skipped"))
		return skip, nil
	}

	probe, err := ffprobe.Inspect(ctx, e.runner, e.cfg.Tools.FFprobe, input)
	if err != nil {
		if errors.Is(err, services.ErrCancelled) {
			return stage.Outcome{}, err
		}
		return stage.Outcome{}, services.Wrap(services.ErrExternalTool, StageName, "probe download", "ffprobe failed", err)
	}
	selection := audio.Select(probe.Streams)
	if !selection.Found() {
		return stage.Outcome{}, services.Wrap(services.ErrValidation, StageName, "select stream", "No audio stream in download", nil)
	}
	lossless := e.cfg.Audio.WantLossless(selection.Lossless)
	codec := strings.ToLower(selection.Primary.CodecName)
	ext := textutil.Ternary(lossless, "flac", "mp3")
	output := item.Files.Path(queue.FileAudio, ext)

	cmd := process.Command{
		Binary: e.cfg.Tools.FFmpeg,
		Args:   BuildArgs(input, output, selection.AudioOrdinal, codec, lossless, e.cfg.Audio.MP3Quality),
		Dir:    item.Files.Dir(),
	}
	logger.Info("extracting audio",
		logging.String("input", input),
		logging.String("stream", selection.PrimaryLabel()),
		logging.Bool("lossless", lossless),
		logging.String("command", cmd.String()),
		logging.String(logging.FieldEventType, "extract_start"),
	)
	observer := stage.NewParseObserver(ProgressState{Duration: probe.DurationSeconds()}, ParseProgressLine, ProgressState.Fraction, progress)
	if _, err := e.runner.Run(ctx, cmd, observer); err != nil {
		_ = os.Remove(output)
		if errors.Is(err, services.ErrCancelled) {
			return stage.Outcome{}, err
		}
		return stage.Outcome{}, services.Wrap(services.ErrExternalTool, StageName, "run ffmpeg", "ffmpeg failed", err)
	}
	if info, err := os.Stat(output); err != nil || info.Size() == 0 {
		return stage.Outcome{}, services.Wrap(services.ErrExternalTool, StageName, "verify output", "ffmpeg produced no audio", err)
	}

	item.Files.Register(queue.FileAudio, output)
	item.SetLossless(lossless)
	item.Results.SetString(queue.ResultKey(StageName, ResultCodec), codec)
	item.Results.SetString(queue.ResultKey(StageName, ResultFormat), ext)
	if d := probe.DurationSeconds(); d > 0 {
		item.Results.SetNumber(queue.ResultKey(StageName, ResultDuration), d)
	}
	logger.Info("audio extracted",
		logging.String("output", output),
		logging.String(logging.FieldEventType, "extract_complete"),
	)
	return stage.Done(fmt.Sprintf("Extracted %s audio as %s.", codec, strings.ToUpper(ext))), nil
}

func (e *Extractor) HealthCheck(context.Context) stage.Health {
	if h := stage.ToolHealth(StageName, e.cfg.Tools.FFprobe); !h.Ready {
		return h
	}
	return stage.ToolHealth(StageName, e.cfg.Tools.FFmpeg)
}

// BuildArgs assembles the ffmpeg argument list. An MP3 source bound for MP3
// is stream-copied instead of re-encoded.
func BuildArgs(input, output string, audioOrdinal int, sourceCodec string, lossless bool, mp3Quality int) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", input,
		"-map", "0:a:" + strconv.Itoa(max(audioOrdinal, 0)),
		"-vn", "-map_metadata", "-1",
	}
	switch {
	case lossless:
		args = append(args, "-c:a", "flac", "-compression_level", "8")
	case sourceCodec == "mp3":
		args = append(args, "-c:a", "copy")
	default:
		args = append(args, "-c:a", "libmp3lame", "-q:a", strconv.Itoa(mp3Quality))
	}
	return append(args, "-progress", "pipe:1", "-nostats", output)
}
