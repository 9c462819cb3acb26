package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// ScratchFiles is the part of an item's working file set the helpers need.
type ScratchFiles interface {
	Path(name, ext string) string
	Register(name, path string)
}

// WriteFile creates path with size filler bytes, making parent directories.
// A size <= 0 writes a single byte so the file is never empty.
func WriteFile(t testing.TB, path string, size int64) string {
	t.Helper()
	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteAged writes path like WriteFile and backdates its modification time.
func WriteAged(t testing.TB, path string, size int64, age time.Duration) string {
	t.Helper()
	WriteFile(t, path, size)
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
	return path
}

// StageFile writes the named working file with the given extension and
// registers it, as a finished stage would.
func StageFile(t testing.TB, files ScratchFiles, name, ext string, size int64) string {
	t.Helper()
	path := WriteFile(t, files.Path(name, ext), size)
	files.Register(name, path)
	return path
}
