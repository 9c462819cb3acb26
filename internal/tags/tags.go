package tags

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"path/filepath"
	"strings"

	"tunefetch/internal/config"
	"tunefetch/internal/logging"
	"tunefetch/internal/process"
)

// ErrNotTaggable is returned by Commit on files the editor cannot write.
var ErrNotTaggable = errors.New("file cannot be tagged")

// Field names a metadata field independent of the container format.
type Field string

const (
	Title   Field = "title"
	Artist  Field = "artist"
	Album   Field = "album"
	Comment Field = "comment"
	Year    Field = "year"
	Genre   Field = "genre"
	Track   Field = "track"
)

// Handle is an open tag set. Writes are buffered until Commit.
type Handle interface {
	// Read returns the field value, or "" when absent.
	Read(field Field) string
	Write(field Field, value string)
	// Artwork returns the embedded front cover, or nil when there is none.
	Artwork() image.Image
	// SetArtwork replaces the front cover. file optionally names a PNG
	// encoding of img already on disk.
	SetArtwork(img image.Image, file string)
	Commit(ctx context.Context) error
	// Close releases the handle without writing. It is safe after Commit.
	Close() error
}

// Editor opens tag handles.
type Editor interface {
	Open(ctx context.Context, path string) Handle
}

// FileEditor picks an implementation by file extension.
type FileEditor struct {
	runner   process.Runner
	metaflac string
	logger   *slog.Logger
}

// NewEditor builds the default editor. metaflac is taken from cfg.Tools.
func NewEditor(cfg *config.Config, runner process.Runner, logger *slog.Logger) *FileEditor {
	if runner == nil {
		runner = process.NewExecRunner()
	}
	metaflac := "metaflac"
	if cfg != nil && strings.TrimSpace(cfg.Tools.Metaflac) != "" {
		metaflac = cfg.Tools.Metaflac
	}
	return &FileEditor{
		runner:   runner,
		metaflac: metaflac,
		logger:   logging.NewComponentLogger(loggerOrNop(logger), "tags"),
	}
}

// Open returns a handle for path. It never returns nil.
func (e *FileEditor) Open(ctx context.Context, path string) Handle {
	logger := logging.WithContext(ctx, e.logger).With(logging.String("file", path))
	var (
		h   Handle
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		h, err = openID3(path, logger)
	case ".flac":
		h, err = openFLAC(ctx, e.runner, e.metaflac, path, logger)
	default:
		err = errors.New("unsupported container")
	}
	if err != nil {
		logging.WarnWithContext(logger, "tags unavailable", "tags_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the file keeps its existing tags"),
		)
		return nopHandle{}
	}
	return h
}

func loggerOrNop(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return logging.NewNop()
	}
	return logger
}

type nopHandle struct{}

func (nopHandle) Read(Field) string              { return "" }
func (nopHandle) Write(Field, string)            {}
func (nopHandle) Artwork() image.Image           { return nil }
func (nopHandle) SetArtwork(image.Image, string) {}
func (nopHandle) Commit(context.Context) error   { return ErrNotTaggable }
func (nopHandle) Close() error                   { return nil }
