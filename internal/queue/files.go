package queue

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Well-known working file names.
const (
	FileDownload = "download"
	FileInfo     = "info"
	FileAudio    = "audio"
	FileArtwork  = "artwork"
	FileFinal    = "final"
)

// WorkingFiles maps logical file names to paths for one item. Scratch paths
// are deterministic: <scratch>/<item-id>.<name>.<ext>.
type WorkingFiles struct {
	dir    string
	itemID string

	mu    sync.RWMutex
	paths map[string]string
}

// NewWorkingFiles returns an empty registry rooted at dir.
func NewWorkingFiles(dir, itemID string) *WorkingFiles {
	return &WorkingFiles{dir: strings.TrimSpace(dir), itemID: itemID, paths: make(map[string]string)}
}

// Dir returns the scratch directory.
func (w *WorkingFiles) Dir() string {
	return w.dir
}

// Prefix returns the file name prefix shared by all scratch files of the item.
func (w *WorkingFiles) Prefix() string {
	return w.itemID + "."
}

// Path returns the scratch path for name with extension ext (without dot).
func (w *WorkingFiles) Path(name, ext string) string {
	base := w.itemID + "." + name
	if ext = strings.TrimPrefix(strings.TrimSpace(ext), "."); ext != "" {
		base += "." + ext
	}
	return filepath.Join(w.dir, base)
}

// Register records path under name, replacing any earlier registration.
func (w *WorkingFiles) Register(name, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paths[name] = path
}

// Lookup returns the registered path for name.
func (w *WorkingFiles) Lookup(name string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	path, ok := w.paths[name]
	return path, ok && path != ""
}

// Existing returns the registered path for name only when a regular file is
// present there.
func (w *WorkingFiles) Existing(name string) (string, bool) {
	path, ok := w.Lookup(name)
	if !ok {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// All copies the registry.
func (w *WorkingFiles) All() map[string]string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]string, len(w.paths))
	for k, v := range w.paths {
		out[k] = v
	}
	return out
}

// RemoveScratch deletes every file in the scratch directory that carries the
// item prefix, except keep. Missing files are not an error.
func (w *WorkingFiles) RemoveScratch(keep ...string) error {
	if w.dir == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(w.dir, globEscape(w.Prefix())+"*"))
	if err != nil {
		return fmt.Errorf("list scratch files: %w", err)
	}
	skip := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		skip[filepath.Clean(k)] = struct{}{}
	}
	var errs []error
	for _, match := range matches {
		if _, ok := skip[filepath.Clean(match)]; ok {
			continue
		}
		if err := os.Remove(match); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func globEscape(s string) string {
	replacer := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)
	return replacer.Replace(s)
}
