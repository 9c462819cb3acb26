package tags

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tunefetch/internal/logging"
	"tunefetch/internal/process"
	"tunefetch/internal/textutil"
)

var vorbisKeys = map[Field]string{
	Title:   "TITLE",
	Artist:  "ARTIST",
	Album:   "ALBUM",
	Comment: "COMMENT",
	Year:    "DATE",
	Genre:   "GENRE",
	Track:   "TRACKNUMBER",
}

// flacHandle buffers Vorbis comment edits and applies them with metaflac.
type flacHandle struct {
	runner   process.Runner
	metaflac string
	path     string
	logger   *slog.Logger

	current map[string]string
	pending map[string]string
	art     image.Image
	artFile string
	artRead bool
	artSet  bool
}

func openFLAC(ctx context.Context, runner process.Runner, metaflac, path string, logger *slog.Logger) (*flacHandle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open flac: %w", err)
	}
	var out process.Collector
	cmd := process.Command{Binary: metaflac, Args: []string{"--export-tags-to=-", path}}
	if _, err := runner.Run(ctx, cmd, &out); err != nil {
		return nil, fmt.Errorf("read vorbis comments: %w", err)
	}
	return &flacHandle{
		runner:   runner,
		metaflac: metaflac,
		path:     path,
		logger:   logger,
		current:  ParseVorbisComments(out.Lines),
		pending:  make(map[string]string),
	}, nil
}

// ParseVorbisComments folds metaflac --export-tags-to output into a map with
// upper-case keys. The first value of a repeated key wins.
func ParseVorbisComments(lines []string) map[string]string {
	out := make(map[string]string, len(lines))
	for _, line := range lines {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		if _, seen := out[key]; !seen {
			out[key] = textutil.CleanValue(value)
		}
	}
	return out
}

func (h *flacHandle) Read(field Field) string {
	key, ok := vorbisKeys[field]
	if !ok {
		return ""
	}
	if v, ok := h.pending[key]; ok {
		return v
	}
	return h.current[key]
}

func (h *flacHandle) Write(field Field, value string) {
	key, ok := vorbisKeys[field]
	if !ok {
		h.logger.Debug("ignoring unknown tag field", logging.String("field", string(field)))
		return
	}
	h.pending[key] = textutil.CleanValue(value)
}

// Artwork exports the first picture block on first use.
func (h *flacHandle) Artwork() image.Image {
	if h.artSet || h.artRead {
		return h.art
	}
	h.artRead = true
	exported, err := h.exportPicture(context.Background())
	if err != nil {
		h.logger.Debug("no embedded artwork", logging.Error(err))
		return nil
	}
	defer os.Remove(exported)
	f, err := os.Open(exported)
	if err != nil {
		return nil
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		h.logger.Debug("embedded artwork unreadable", logging.Error(err))
		return nil
	}
	h.art = img
	return img
}

// SetArtwork replaces the embedded pictures on Commit. file, when set, holds
// img encoded as PNG and is imported as is.
func (h *flacHandle) SetArtwork(img image.Image, file string) {
	if img == nil {
		return
	}
	h.art = img
	h.artFile = file
	h.artSet = true
}

// Commit writes pending comments and the new picture in one metaflac call.
// The existing picture is exported before the PICTURE blocks are removed and
// is imported again when the write fails.
func (h *flacHandle) Commit(ctx context.Context) error {
	if len(h.pending) == 0 && !h.artSet {
		return nil
	}

	args := make([]string, 0, 2*len(h.pending)+2)
	keys := make([]string, 0, len(h.pending))
	for key := range h.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "--remove-tag="+key)
		if value := h.pending[key]; value != "" {
			args = append(args, "--set-tag="+key+"="+value)
		}
	}

	var backup string
	if h.artSet {
		artPath := h.artFile
		if artPath == "" {
			staged, err := h.stagePNG()
			if err != nil {
				return fmt.Errorf("stage flac artwork: %w", err)
			}
			defer os.Remove(staged)
			artPath = staged
		}
		if exported, err := h.exportPicture(ctx); err == nil {
			backup = exported
			defer os.Remove(backup)
		}
		remove := process.Command{Binary: h.metaflac, Args: []string{"--remove", "--block-type=PICTURE", h.path}}
		if _, err := h.runner.Run(ctx, remove); err != nil {
			return fmt.Errorf("remove flac pictures: %w", err)
		}
		args = append(args, "--import-picture-from=3|image/png|Front cover||"+artPath)
	}

	args = append(args, h.path)
	if _, err := h.runner.Run(ctx, process.Command{Binary: h.metaflac, Args: args}); err != nil {
		if backup != "" {
			h.restorePicture(backup)
		}
		return fmt.Errorf("write vorbis comments: %w", err)
	}
	for key, value := range h.pending {
		h.current[key] = value
	}
	clear(h.pending)
	h.artSet = false
	h.artRead = true
	return nil
}

func (h *flacHandle) Close() error {
	return nil
}

// exportPicture copies the first picture block into a file next to the audio
// file and returns its path. The caller removes it.
func (h *flacHandle) exportPicture(ctx context.Context) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(h.path), filepath.Base(h.path)+".picture-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	cmd := process.Command{Binary: h.metaflac, Args: []string{"--export-picture-to=" + tmpPath, h.path}}
	if _, err := h.runner.Run(ctx, cmd); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	if info, err := os.Stat(tmpPath); err != nil || info.Size() == 0 {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("no picture exported")
	}
	return tmpPath, nil
}

// restorePicture re-imports a picture exported before a failed write. It runs
// on a fresh context so a cancelled commit still puts the cover back.
func (h *flacHandle) restorePicture(backup string) {
	cmd := process.Command{Binary: h.metaflac, Args: []string{"--import-picture-from=3||||" + backup, h.path}}
	if _, err := h.runner.Run(context.Background(), cmd); err != nil {
		logging.WarnWithContext(h.logger, "previous artwork could not be restored", "flac_artwork_restore_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "re-run the tag stage on this file"),
		)
		return
	}
	h.logger.Debug("previous artwork restored after failed write")
}

// stagePNG encodes the pending artwork next to the audio file.
func (h *flacHandle) stagePNG() (string, error) {
	f, err := os.CreateTemp(filepath.Dir(h.path), filepath.Base(h.path)+".cover-*.png")
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, h.art); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
