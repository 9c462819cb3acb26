package tagging

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tunefetch/internal/config"
	"tunefetch/internal/download"
	"tunefetch/internal/fetch"
	"tunefetch/internal/logging"
	"tunefetch/internal/process"
	"tunefetch/internal/queue"
	"tunefetch/internal/services"
	"tunefetch/internal/stage"
	"tunefetch/internal/tags"
)

// StageName identifies the tag stage.
const StageName = "tag"

// Result keys published by the tag stage.
const (
	ResultArtist = "artist"
	ResultTitle  = "title"
)

// Metadata is the tag set the stage writes.
type Metadata struct {
	Title   string
	Artist  string
	Album   string
	Comment string
	Year    string
	Artwork string
}

// Tagger writes metadata and artwork into the item's audio file.
type Tagger struct {
	cfg     *config.Config
	logger  *slog.Logger
	editor  tags.Editor
	fetcher fetch.Client
}

// NewTagger constructs the tag stage handler using default dependencies.
func NewTagger(cfg *config.Config, logger *slog.Logger) *Tagger {
	return NewTaggerWithDependencies(cfg, logger, tags.NewEditor(cfg, process.NewExecRunner(), logger), fetch.NewHTTPClient(cfg))
}

// NewTaggerWithDependencies allows injecting the tag editor and fetch client (used in tests).
func NewTaggerWithDependencies(cfg *config.Config, logger *slog.Logger, editor tags.Editor, fetcher fetch.Client) *Tagger {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tagger{cfg: cfg, logger: logging.NewComponentLogger(logger, StageName), editor: editor, fetcher: fetcher}
}

func (t *Tagger) Descriptor() stage.Descriptor {
	return stage.Descriptor{Name: StageName, Description: "Writes title, artist and artwork tags."}
}

func (t *Tagger) Execute(ctx context.Context, item *queue.Item, progress stage.Reporter) (stage.Outcome, error) {
	logger := logging.WithContext(ctx, t.logger)
	path, skip, ok := stage.RequireFile(item, queue.FileAudio)
	if !ok {
		logger.Info("audio file missing; skipping tagging", logging.String(logging.FieldEventType, "tag_skipped"))
		return skip, nil
	}

	handle := t.editor.Open(ctx, path)
	defer handle.Close()
	progress.Report(0.2)

	var (
		meta    Metadata
		written int
	)
	if item.Kind == queue.SourceRemote {
		meta = RemoteMetadata(item)
		written = t.writeRemote(ctx, logger, item, handle, meta, progress)
	} else {
		meta, written = fillLocal(handle, item.Source)
	}
	progress.Report(0.8)

	if written > 0 {
		if err := handle.Commit(ctx); err != nil {
			if errors.Is(err, services.ErrCancelled) || ctx.Err() != nil {
				return stage.Outcome{}, err
			}
			logging.WarnWithContext(logger, "tag commit failed", "tag_commit_failed",
				logging.String("file", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the file keeps its previous tags"),
			)
			item.Results.SetString(queue.ResultKey(StageName, ResultArtist), meta.Artist)
			item.Results.SetString(queue.ResultKey(StageName, ResultTitle), meta.Title)
			return stage.Done("Tags could not be written."), nil
		}
	}
	progress.Report(1)

	item.Results.SetString(queue.ResultKey(StageName, ResultArtist), meta.Artist)
	item.Results.SetString(queue.ResultKey(StageName, ResultTitle), meta.Title)
	logger.Info("tags written",
		logging.String("artist", meta.Artist),
		logging.String("title", meta.Title),
		logging.Int("fields", written),
		logging.String(logging.FieldEventType, "tag_complete"),
	)
	if written == 0 {
		return stage.Done("Tags already complete."), nil
	}
	return stage.Done(fmt.Sprintf("Tagged as %s - %s.", meta.Artist, meta.Title)), nil
}

func (t *Tagger) HealthCheck(context.Context) stage.Health {
	if t.cfg.Audio.WantLossless(true) {
		return stage.ToolHealth(StageName, t.cfg.Tools.Metaflac)
	}
	return stage.Healthy(StageName)
}

// RemoteMetadata derives tags from the download results. Platform music
// metadata wins over values parsed from the page title.
func RemoteMetadata(item *queue.Item) Metadata {
	get := func(name string) string {
		v, _ := item.Results.String(queue.ResultKey(download.StageName, name))
		return strings.TrimSpace(v)
	}
	pageTitle := get(download.ResultTitle)
	if pageTitle == "" {
		pageTitle = strings.TrimSuffix(filepath.Base(item.Source), filepath.Ext(item.Source))
	}
	artist, title := SplitTitle(pageTitle, get(download.ResultUploader))
	if v := get(download.ResultArtist); v != "" {
		artist = v
	}
	if v := get(download.ResultTrack); v != "" {
		title = v
	}
	comment := get(download.ResultWebpageURL)
	if comment == "" {
		comment = item.Source
	}
	return Metadata{
		Title:   title,
		Artist:  artist,
		Album:   get(download.ResultAlbum),
		Comment: comment,
		Year:    Year(get(download.ResultUploadDate)),
		Artwork: get(download.ResultThumbnail),
	}
}

func (t *Tagger) writeRemote(ctx context.Context, logger *slog.Logger, item *queue.Item, handle tags.Handle, meta Metadata, progress stage.Reporter) int {
	written := 0
	for _, field := range []struct {
		name  tags.Field
		value string
	}{
		{tags.Title, meta.Title},
		{tags.Artist, meta.Artist},
		{tags.Album, meta.Album},
		{tags.Comment, meta.Comment},
		{tags.Year, meta.Year},
	} {
		if field.value == "" {
			continue
		}
		handle.Write(field.name, field.value)
		written++
	}
	progress.Report(0.4)
	img := t.artwork(ctx, logger, meta.Artwork)
	handle.SetArtwork(img, stageArtwork(logger, item, img))
	return written + 1
}

// stageArtwork writes img as the item's PNG artwork working file. It returns
// "" when the file could not be written; the handle then encodes img itself.
func stageArtwork(logger *slog.Logger, item *queue.Item, img image.Image) string {
	path := item.Files.Path(queue.FileArtwork, "png")
	f, err := os.Create(path)
	if err == nil {
		err = png.Encode(f, img)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}
	if err != nil {
		_ = os.Remove(path)
		logger.Debug("artwork working file not written", logging.String("file", path), logging.Error(err))
		return ""
	}
	item.Files.Register(queue.FileArtwork, path)
	return path
}

func (t *Tagger) artwork(ctx context.Context, logger *slog.Logger, url string) image.Image {
	if url == "" || t.fetcher == nil {
		logger.Debug("no thumbnail; using placeholder artwork")
		return fetch.Placeholder()
	}
	img, format, err := fetch.FetchImage(ctx, t.fetcher, url)
	if err != nil {
		logging.WarnWithContext(logger, "artwork download failed; using placeholder", "artwork_fetch_failed",
			logging.String("url", url),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access or fetch.timeout_seconds"),
		)
		return fetch.Placeholder()
	}
	logger.Debug("artwork downloaded", logging.String("url", url), logging.String("format", format))
	return img
}

// fillLocal writes a title and artist derived from the source file name when
// the file has none.
func fillLocal(handle tags.Handle, source string) (Metadata, int) {
	meta := Metadata{
		Title:  handle.Read(tags.Title),
		Artist: handle.Read(tags.Artist),
	}
	if meta.Title != "" && meta.Artist != "" {
		return meta, 0
	}
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	artist, title := SplitTitle(stem, "")
	written := 0
	if meta.Title == "" && title != "" {
		meta.Title = title
		handle.Write(tags.Title, title)
		written++
	}
	if meta.Artist == "" && artist != "" {
		meta.Artist = artist
		handle.Write(tags.Artist, artist)
		written++
	}
	return meta, written
}
