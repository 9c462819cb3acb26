package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"tunefetch/internal/config"
	"tunefetch/internal/logging"
	"tunefetch/internal/process"
	"tunefetch/internal/queue"
	"tunefetch/internal/services"
	"tunefetch/internal/stage"
)

// StageName identifies the download stage in steps, results and logs.
const StageName = "download"

// Downloader fetches remote media with yt-dlp.
type Downloader struct {
	cfg    *config.Config
	logger *slog.Logger
	runner process.Runner
}

// NewDownloader constructs the download stage handler using default dependencies.
func NewDownloader(cfg *config.Config, logger *slog.Logger) *Downloader {
	return NewDownloaderWithDependencies(cfg, logger, process.NewExecRunner())
}

// NewDownloaderWithDependencies allows injecting a process runner (used in tests).
func NewDownloaderWithDependencies(cfg *config.Config, logger *slog.Logger, runner process.Runner) *Downloader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Downloader{cfg: cfg, logger: logging.NewComponentLogger(logger, StageName), runner: runner}
}

func (d *Downloader) Descriptor() stage.Descriptor {
	return stage.Descriptor{Name: StageName, Description: "Downloads the media from the web page."}
}

func (d *Downloader) Execute(ctx context.Context, item *queue.Item, progress stage.Reporter) (stage.Outcome, error) {
	logger := logging.WithContext(ctx, d.logger)
	source := strings.TrimSpace(item.Source)
	if source == "" {
		return stage.Outcome{}, services.Wrap(services.ErrValidation, StageName, "validate inputs", "No source URL", nil)
	}

	runCtx, cancel := stage.WithOptionalTimeout(ctx, d.cfg.DownloadTimeout())
	defer cancel()

	cmd := process.Command{
		Binary: d.cfg.Tools.YTDLP,
		Args:   BuildArgs(d.cfg.Download, item.Files.Path(queue.FileDownload, "%(ext)s"), source),
		Dir:    item.Files.Dir(),
	}
	observer := stage.NewParseObserver(State{}, ParseLine, State.Fraction, progress)
	logger.Info("starting download",
		logging.String("url", source),
		logging.String("command", cmd.String()),
		logging.String(logging.FieldEventType, "download_start"),
	)
	if _, err := d.runner.Run(runCtx, cmd, observer); err != nil {
		switch {
		case errors.Is(err, services.ErrCancelled):
			return stage.Outcome{}, err
		case errors.Is(err, services.ErrTimeout):
			return stage.Outcome{}, services.Wrap(services.ErrTimeout, StageName, "run yt-dlp", "Download timed out", err)
		default:
			return stage.Outcome{}, services.Wrap(services.ErrExternalTool, StageName, "run yt-dlp", "yt-dlp failed", err)
		}
	}

	path := observer.State.File
	if path == "" || !fileExists(path) {
		path = findDownload(item.Files)
	}
	if path == "" {
		return stage.Outcome{}, services.Wrap(services.ErrExternalTool, StageName, "locate output", "yt-dlp produced no media file", nil)
	}
	item.Files.Register(queue.FileDownload, path)

	info := Info{}
	infoPath := item.Files.Path(queue.FileDownload, "info.json")
	if fileExists(infoPath) {
		item.Files.Register(queue.FileInfo, infoPath)
		parsed, err := ReadInfo(infoPath)
		if err != nil {
			logging.WarnWithContext(logger, "info json unreadable", "download_info_invalid",
				logging.String("path", infoPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "tags will fall back to the page URL"),
			)
		} else {
			info = parsed
			info.Publish(item.Results)
		}
	}

	size := int64(0)
	if stat, err := os.Stat(path); err == nil {
		size = stat.Size()
	}
	logger.Info("download completed",
		logging.String("file", path),
		logging.String("title", info.Title),
		logging.Int64("bytes", size),
		logging.String(logging.FieldEventType, "download_complete"),
	)
	label := info.Title
	if strings.TrimSpace(label) == "" {
		label = filepath.Base(path)
	}
	return stage.Done(fmt.Sprintf("Downloaded %s (%s).", label, humanize.IBytes(uint64(size)))), nil
}

func (d *Downloader) HealthCheck(context.Context) stage.Health {
	return stage.ToolHealth(StageName, d.cfg.Tools.YTDLP)
}

// BuildArgs assembles the yt-dlp argument list for one download.
func BuildArgs(cfg config.Download, outputTemplate, url string) []string {
	selector := strings.TrimSpace(cfg.FormatSelector)
	if selector == "" {
		selector = "bestaudio/best"
	}
	args := []string{
		"--newline",
		"--progress",
		"--no-playlist",
		"-f", selector,
		"--write-info-json",
		"--print", "after_move:" + FileMarker + "%(filepath)s",
		"-o", outputTemplate,
	}
	for _, extra := range cfg.ExtraArgs {
		if extra = strings.TrimSpace(extra); extra != "" {
			args = append(args, extra)
		}
	}
	return append(args, "--", url)
}

// findDownload locates the media file when yt-dlp did not print its path.
func findDownload(files *queue.WorkingFiles) string {
	pattern := filepath.Join(files.Dir(), files.Prefix()+queue.FileDownload+".*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return ""
	}
	for _, match := range matches {
		name := filepath.Base(match)
		if strings.HasSuffix(name, ".info.json") || strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") {
			continue
		}
		if fileExists(match) {
			return match
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
