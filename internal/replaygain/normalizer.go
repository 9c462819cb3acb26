package replaygain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"tunefetch/internal/config"
	"tunefetch/internal/logging"
	"tunefetch/internal/process"
	"tunefetch/internal/queue"
	"tunefetch/internal/services"
	"tunefetch/internal/stage"
)

// StageName identifies the normalize stage.
const StageName = "normalize"

// ResultNamespace prefixes the results this stage publishes.
const ResultNamespace = "replaygain"

// Result keys published under ResultNamespace.
const (
	// ResultVolume is the gain in mp3gain steps, or "?" for FLAC files where
	// only tags are written.
	ResultVolume   = "volume"
	ResultDecibels = "db"
)

// Normalizer applies replay gain to the item's audio file.
type Normalizer struct {
	cfg    *config.Config
	logger *slog.Logger
	runner process.Runner
}

// NewNormalizer constructs the normalize stage handler using default dependencies.
func NewNormalizer(cfg *config.Config, logger *slog.Logger) *Normalizer {
	return NewNormalizerWithDependencies(cfg, logger, process.NewExecRunner())
}

// NewNormalizerWithDependencies allows injecting a process runner (used in tests).
func NewNormalizerWithDependencies(cfg *config.Config, logger *slog.Logger, runner process.Runner) *Normalizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Normalizer{cfg: cfg, logger: logging.NewComponentLogger(logger, StageName), runner: runner}
}

func (n *Normalizer) Descriptor() stage.Descriptor {
	return stage.Descriptor{Name: StageName, Description: "Normalizes the perceived audio volume."}
}

func (n *Normalizer) Execute(ctx context.Context, item *queue.Item, progress stage.Reporter) (stage.Outcome, error) {
	logger := logging.WithContext(ctx, n.logger)
	if !n.cfg.Normalize.Enabled {
		return stage.Skip("Normalization disabled."), nil
	}
	path, skip, ok := stage.RequireFile(item, queue.FileAudio)
	if !ok {
		logger.Info("audio file missing; skipping normalization", logging.String(logging.FieldEventType, "normalize_skipped"))
		return skip, nil
	}

	runCtx, cancel := stage.WithOptionalTimeout(ctx, n.cfg.NormalizeTimeout())
	defer cancel()

	if item.Lossless() {
		return n.tagFLAC(runCtx, logger, item, path, progress)
	}
	return n.adjustMP3(runCtx, logger, item, path, progress)
}

func (n *Normalizer) adjustMP3(ctx context.Context, logger *slog.Logger, item *queue.Item, path string, progress stage.Reporter) (stage.Outcome, error) {
	cmd := process.Command{Binary: n.cfg.Tools.MP3Gain, Args: []string{"/r", path}}
	observer := stage.NewParseObserver(State{}, ParseLine, State.Fraction, progress)
	logger.Info("applying mp3 gain", logging.String("file", path), logging.String(logging.FieldEventType, "normalize_start"))
	_, err := n.runner.Run(ctx, cmd, observer)
	state := observer.State

	item.Results.SetNumber(queue.ResultKey(ResultNamespace, ResultVolume), float64(state.Gain))
	item.Results.SetNumber(queue.ResultKey(ResultNamespace, ResultDecibels), state.Decibels())
	if err != nil {
		if outcome, ok := n.tolerate(logger, err, path); ok {
			return outcome, nil
		}
		return stage.Outcome{}, wrapRunError(err, "run mp3gain", "mp3gain failed")
	}
	logger.Info("mp3 gain applied",
		logging.Int("gain_steps", state.Gain),
		logging.Float64("gain_db", state.Decibels()),
		logging.Bool("gain_reported", state.GainKnown),
		logging.String(logging.FieldEventType, "normalize_complete"),
	)
	return stage.Done(Summary(state.Gain)), nil
}

func (n *Normalizer) tagFLAC(ctx context.Context, logger *slog.Logger, item *queue.Item, path string, progress stage.Reporter) (stage.Outcome, error) {
	cmd := process.Command{Binary: n.cfg.Tools.Metaflac, Args: []string{"--add-replay-gain", path}}
	logger.Info("adding flac replay gain", logging.String("file", path), logging.String(logging.FieldEventType, "normalize_start"))
	_, err := n.runner.Run(ctx, cmd)
	item.Results.SetString(queue.ResultKey(ResultNamespace, ResultVolume), "?")
	if err != nil {
		if outcome, ok := n.tolerate(logger, err, path); ok {
			return outcome, nil
		}
		return stage.Outcome{}, wrapRunError(err, "run metaflac", "metaflac failed")
	}
	progress.Report(1)
	return stage.Done("Replay gain tags added."), nil
}

// tolerate turns a non-zero tool exit into a completed outcome; the file is
// left as it was.
func (n *Normalizer) tolerate(logger *slog.Logger, err error, path string) (stage.Outcome, bool) {
	var exitErr *process.ExitError
	if !errors.As(err, &exitErr) {
		return stage.Outcome{}, false
	}
	logging.WarnWithContext(logger, "normalization tool exited non-zero", "normalize_tool_failed",
		logging.String("file", path),
		logging.Int("exit_code", exitErr.Code),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "volume left unchanged"),
	)
	return stage.Done(fmt.Sprintf("%s exited with code %d; volume unchanged.", exitErr.Binary, exitErr.Code)), true
}

func (n *Normalizer) HealthCheck(context.Context) stage.Health {
	if !n.cfg.Normalize.Enabled {
		return stage.Healthy(StageName)
	}
	if h := stage.ToolHealth(StageName, n.cfg.Tools.MP3Gain); !h.Ready {
		return h
	}
	if n.cfg.Audio.WantLossless(true) {
		return stage.ToolHealth(StageName, n.cfg.Tools.Metaflac)
	}
	return stage.Healthy(StageName)
}

// Summary renders the applied gain for the step record.
func Summary(gainSteps int) string {
	if gainSteps == 0 {
		return "No adjust needed."
	}
	db := float64(gainSteps) * DecibelsPerStep
	return "Adjust by " + strconv.FormatFloat(db, 'f', -1, 64) + " dB."
}

func wrapRunError(err error, op, msg string) error {
	switch {
	case errors.Is(err, services.ErrCancelled):
		return err
	case errors.Is(err, services.ErrTimeout):
		return services.Wrap(services.ErrTimeout, StageName, op, "Normalization timed out", err)
	default:
		return services.Wrap(services.ErrExternalTool, StageName, op, msg, err)
	}
}
