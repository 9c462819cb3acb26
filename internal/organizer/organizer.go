package organizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"tunefetch/internal/config"
	"tunefetch/internal/fileutil"
	"tunefetch/internal/logging"
	"tunefetch/internal/queue"
	"tunefetch/internal/services"
	"tunefetch/internal/stage"
)

// StageName identifies the organize stage.
const StageName = "organize"

// ResultPath is the result key holding the final library path.
const ResultPath = "path"

// Organizer moves finished audio into the library.
type Organizer struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewOrganizer constructs the organize stage handler.
func NewOrganizer(cfg *config.Config, logger *slog.Logger) *Organizer {
	stageLogger := logger
	if stageLogger == nil {
		stageLogger = logging.NewNop()
	}
	return &Organizer{cfg: cfg, logger: logging.NewComponentLogger(stageLogger, StageName)}
}

func (o *Organizer) Descriptor() stage.Descriptor {
	return stage.Descriptor{Name: StageName, Description: "Moves the audio file into the library."}
}

func (o *Organizer) Execute(ctx context.Context, item *queue.Item, progress stage.Reporter) (stage.Outcome, error) {
	logger := logging.WithContext(ctx, o.logger)
	source, skip, ok := stage.RequireFile(item, queue.FileAudio)
	if !ok {
		logger.Info("audio file missing; skipping organization", logging.String(logging.FieldEventType, "organize_skipped"))
		return skip, nil
	}
	libraryDir := strings.TrimSpace(o.cfg.Paths.LibraryDir)
	if libraryDir == "" {
		return stage.Outcome{}, services.Wrap(
			services.ErrConfiguration,
			StageName,
			"resolve library dir",
			"Library directory not configured; set paths.library_dir in your tunefetch config.toml",
			nil,
		)
	}
	if err := os.MkdirAll(libraryDir, 0o755); err != nil {
		return stage.Outcome{}, libraryError("ensure library dir", "Failed to create library directory", err)
	}
	info, err := os.Stat(source)
	if err != nil {
		return stage.Outcome{}, services.Wrap(services.ErrTransient, StageName, "stat audio", "Audio file disappeared", err)
	}

	artist, title := namesFor(item, source)
	target := fileutil.UniquePath(filepath.Join(libraryDir, TargetName(artist, title, filepath.Ext(source))))
	logger.Info("moving audio into library",
		logging.String("source", source),
		logging.String("target", target),
		logging.String(logging.FieldEventType, "organize_start"),
	)
	progress.Report(0.1)
	if err := fileutil.MoveFile(source, target); err != nil {
		return stage.Outcome{}, libraryError("move to library", "Failed to move audio into library", err)
	}
	if err := ValidateLibraryFile(target, info.Size(), logger); err != nil {
		return stage.Outcome{}, err
	}
	progress.Report(0.8)

	item.Files.Register(queue.FileFinal, target)
	item.Files.Register(queue.FileAudio, target)
	item.Results.SetString(queue.ResultKey(StageName, ResultPath), target)
	if err := item.Files.RemoveScratch(); err != nil {
		logging.WarnWithContext(logger, "scratch cleanup incomplete", "scratch_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove leftover files from paths.scratch_dir"),
		)
	}
	progress.Report(1)
	logger.Info("organization completed",
		logging.String("final_file", target),
		logging.String(logging.FieldEventType, "organize_complete"),
	)
	return stage.Done(fmt.Sprintf("Saved as %s.", filepath.Base(target))), nil
}

func (o *Organizer) HealthCheck(context.Context) stage.Health {
	dir := strings.TrimSpace(o.cfg.Paths.LibraryDir)
	if dir == "" {
		return stage.Unhealthy(StageName, "library directory not configured")
	}
	if info, err := os.Stat(dir); err != nil {
		if isLibraryUnavailable(err) {
			return stage.Unhealthy(StageName, fmt.Sprintf("library unavailable: %v", err))
		}
		return stage.Unhealthy(StageName, err.Error())
	} else if !info.IsDir() {
		return stage.Unhealthy(StageName, "library path is not a directory")
	}
	return stage.Healthy(StageName)
}

func libraryError(op, msg string, err error) error {
	if isLibraryUnavailable(err) {
		return services.Wrap(services.ErrConfiguration, StageName, op, msg+" (library unavailable)", err)
	}
	return services.Wrap(services.ErrTransient, StageName, op, msg, err)
}
