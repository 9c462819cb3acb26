package inspect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tunefetch/internal/config"
	"tunefetch/internal/logging"
	"tunefetch/internal/media/audio"
	"tunefetch/internal/media/ffprobe"
	"tunefetch/internal/process"
	"tunefetch/internal/queue"
	"tunefetch/internal/services"
	"tunefetch/internal/stage"
)

// StageName identifies the inspect stage.
const StageName = "inspect"

// Result keys published by the inspect stage.
const (
	ResultCodec    = "codec"
	ResultDuration = "duration"
)

var supportedExtensions = map[string]bool{".mp3": true, ".flac": true}

// Inspector validates local audio files.
type Inspector struct {
	cfg    *config.Config
	logger *slog.Logger
	runner process.Runner
}

// NewInspector constructs the inspect stage handler using default dependencies.
func NewInspector(cfg *config.Config, logger *slog.Logger) *Inspector {
	return NewInspectorWithDependencies(cfg, logger, process.NewExecRunner())
}

// NewInspectorWithDependencies allows injecting a process runner (used in tests).
func NewInspectorWithDependencies(cfg *config.Config, logger *slog.Logger, runner process.Runner) *Inspector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Inspector{cfg: cfg, logger: logging.NewComponentLogger(logger, StageName), runner: runner}
}

func (i *Inspector) Descriptor() stage.Descriptor {
	return stage.Descriptor{Name: StageName, Description: "Checks the local audio file."}
}

func (i *Inspector) Execute(ctx context.Context, item *queue.Item, progress stage.Reporter) (stage.Outcome, error) {
	logger := logging.WithContext(ctx, i.logger)
	path, err := filepath.Abs(strings.TrimSpace(item.Source))
	if err != nil || strings.TrimSpace(item.Source) == "" {
		return stage.Outcome{}, services.Wrap(services.ErrValidation, StageName, "validate inputs", "Invalid source path", err)
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return stage.Outcome{}, services.Wrap(services.ErrValidation, StageName, "validate inputs", "Source file not found", err)
	case err != nil:
		return stage.Outcome{}, services.Wrap(services.ErrValidation, StageName, "validate inputs", "Source file unreadable", err)
	case info.IsDir():
		return stage.Outcome{}, services.Wrap(services.ErrValidation, StageName, "validate inputs", "Source is a directory", nil)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return stage.Outcome{}, services.Wrap(services.ErrValidation, StageName, "validate inputs",
			fmt.Sprintf("Unsupported file type %q; expected .mp3 or .flac", ext), nil)
	}

	lossless := audio.IsLosslessExtension(path)
	codec := strings.TrimPrefix(ext, ".")
	var (
		duration     float64
		audioStreams int
		videoStreams int
		sizeBytes    int64
	)
	probe, err := ffprobe.Inspect(ctx, i.runner, i.cfg.Tools.FFprobe, path)
	switch {
	case errors.Is(err, services.ErrCancelled):
		return stage.Outcome{}, err
	case err != nil:
		logging.WarnWithContext(logger, "ffprobe failed; using file extension", "inspect_probe_failed",
			logging.String("file", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check tools.ffprobe"),
		)
	default:
		selection := audio.Select(probe.Streams)
		if !selection.Found() {
			return stage.Outcome{}, services.Wrap(services.ErrValidation, StageName, "select stream", "No audio stream in file", nil)
		}
		if selection.Lossless != lossless {
			return stage.Outcome{}, services.Wrap(services.ErrValidation, StageName, "validate codec",
				fmt.Sprintf("Codec %s does not match extension %s", selection.Primary.CodecName, ext), nil)
		}
		codec = strings.ToLower(selection.Primary.CodecName)
		duration = probe.DurationSeconds()
		audioStreams, videoStreams = probe.AudioStreamCount(), probe.VideoStreamCount()
		sizeBytes = probe.SizeBytes()
	}
	progress.Report(1)

	item.Files.Register(queue.FileAudio, path)
	item.SetLossless(lossless)
	item.Results.SetString(queue.ResultKey(StageName, ResultCodec), codec)
	if duration > 0 {
		item.Results.SetNumber(queue.ResultKey(StageName, ResultDuration), duration)
	}
	logger.Info("local file accepted",
		logging.String("file", path),
		logging.String("codec", codec),
		logging.Bool("lossless", lossless),
		logging.Int("audio_streams", audioStreams),
		logging.Int("video_streams", videoStreams),
		logging.Int64("size_bytes", sizeBytes),
		logging.String(logging.FieldEventType, "inspect_complete"),
	)
	if duration > 0 {
		length := time.Duration(duration * float64(time.Second)).Round(time.Second)
		return stage.Done(fmt.Sprintf("Found %s audio, %s long.", codec, length)), nil
	}
	return stage.Done(fmt.Sprintf("Found %s audio.", codec)), nil
}

func (i *Inspector) HealthCheck(context.Context) stage.Health {
	return stage.ToolHealth(StageName, i.cfg.Tools.FFprobe)
}
