package scratch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tunefetch/internal/logging"
	"tunefetch/internal/testsupport"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestListGroupsByItem(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteAged(t, filepath.Join(dir, "aaa.download.webm"), 100, 3*time.Hour)
	testsupport.WriteAged(t, filepath.Join(dir, "aaa.audio.mp3"), 50, 2*time.Hour)
	testsupport.WriteAged(t, filepath.Join(dir, "bbb.download.m4a"), 10, time.Minute)
	testsupport.WriteAged(t, filepath.Join(dir, ".tunefetch.lock"), 0, 5*time.Hour)
	if err := os.Mkdir(filepath.Join(dir, "ccc.dir"), 0o755); err != nil {
		t.Fatal(err)
	}

	groups, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	type summary struct {
		ID    string
		Files int
		Size  int64
	}
	var got []summary
	for _, g := range groups {
		got = append(got, summary{g.ItemID, len(g.Files), g.Size})
	}
	want := []summary{{"aaa", 2, 150}, {"bbb", 1, 10}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanStaleRemovesOldItems(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteAged(t, filepath.Join(dir, "old.download.webm"), 100, 3*time.Hour)
	testsupport.WriteAged(t, filepath.Join(dir, "old.download.info.json"), 20, 3*time.Hour)
	testsupport.WriteAged(t, filepath.Join(dir, "new.download.webm"), 100, time.Minute)
	// An item with one fresh file stays whole.
	testsupport.WriteAged(t, filepath.Join(dir, "mix.download.webm"), 100, 3*time.Hour)
	testsupport.WriteAged(t, filepath.Join(dir, "mix.audio.mp3"), 100, time.Minute)
	testsupport.WriteAged(t, filepath.Join(dir, ".tunefetch.lock"), 0, 3*time.Hour)

	result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())

	if diff := cmp.Diff([]string{"old"}, result.Removed); diff != "" {
		t.Fatalf("removed mismatch (-want +got):\n%s", diff)
	}
	if result.Freed != 120 {
		t.Fatalf("expected 120 bytes freed, got %d", result.Freed)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors %v", result.Errors)
	}
	for _, name := range []string{"new.download.webm", "mix.download.webm", "mix.audio.mp3", ".tunefetch.lock"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s should remain: %v", name, err)
		}
	}
}

func TestCleanStaleStopsWhenCancelled(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteAged(t, filepath.Join(dir, "old.download.webm"), 1, 3*time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := CleanStale(ctx, dir, time.Hour, nil)
	if len(result.Removed) != 0 {
		t.Fatalf("expected nothing removed, got %v", result.Removed)
	}
}
