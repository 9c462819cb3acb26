package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tunefetch/internal/logging"
	"tunefetch/internal/queue"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func finishedItem(t *testing.T, source string, fail bool) *queue.Item {
	t.Helper()
	item, err := queue.NewItem(queue.SourceRemote, source, t.TempDir(), []queue.StepDefinition{
		{Name: "download", Description: "Downloads."},
		{Name: "tag", Description: "Tags."},
	})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := item.Start(now); err != nil {
		t.Fatal(err)
	}
	if _, err := item.BeginStep(now); err != nil {
		t.Fatal(err)
	}
	if _, err := item.EndStep(now.Add(time.Second), "Downloaded.", false); err != nil {
		t.Fatal(err)
	}
	if _, err := item.BeginStep(now.Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	item.Results.SetString("tag.title", "Song")
	item.Results.SetNumber("download.duration", 201.5)
	item.Files.Register(queue.FileFinal, "/library/A - Song.mp3")
	if fail {
		if _, err := item.FailStep(now.Add(2*time.Second), "boom"); err != nil {
			t.Fatal(err)
		}
		if err := item.Fail(now.Add(2*time.Second), "tag: boom"); err != nil {
			t.Fatal(err)
		}
		return item
	}
	if _, err := item.EndStep(now.Add(2*time.Second), "Tagged.", false); err != nil {
		t.Fatal(err)
	}
	if err := item.Complete(now.Add(3 * time.Second)); err != nil {
		t.Fatal(err)
	}
	return item
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	item := finishedItem(t, "https://example.com/a", false)
	if err := store.Record(ctx, item.Snapshot()); err != nil {
		t.Fatalf("Record: %v", err)
	}
	// Recording again replaces the row instead of duplicating it.
	if err := store.Record(ctx, item.Snapshot()); err != nil {
		t.Fatalf("Record twice: %v", err)
	}

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	got := entries[0]
	if got.ItemID != item.ID || got.Status != queue.StatusCompleted || got.FinalPath != "/library/A - Song.mp3" {
		t.Fatalf("unexpected entry %+v", got)
	}
	if diff := cmp.Diff(map[string]any{"tag.title": "Song", "download.duration": 201.5}, got.Results); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
	wantSteps := []StepRecord{
		{Name: "download", Status: queue.StepCompleted, Summary: "Downloaded."},
		{Name: "tag", Status: queue.StepCompleted, Summary: "Tagged."},
	}
	if diff := cmp.Diff(wantSteps, got.Steps, cmp.FilterPath(func(p cmp.Path) bool {
		name := p.Last().String()
		return name == ".StartedAt" || name == ".FinishedAt"
	}, cmp.Ignore())); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}
	if got.Elapsed() != 3*time.Second {
		t.Fatalf("elapsed = %v", got.Elapsed())
	}
}

func TestRecorderListener(t *testing.T) {
	store := openTestStore(t)
	rec := NewRecorder(store, logging.NewNop())
	ok := finishedItem(t, "https://example.com/ok", false)
	bad := finishedItem(t, "https://example.com/bad", true)
	rec.OnEntryEnd(ok)
	rec.OnEntryEnd(bad)

	entries, err := store.ForItem(context.Background(), bad.ID)
	if err != nil {
		t.Fatalf("ForItem: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != queue.StatusFailed || entries[0].ErrorMessage != "tag: boom" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[0].Steps[1].Status != queue.StepFailed {
		t.Fatalf("failed step not recorded: %+v", entries[0].Steps)
	}

	all, err := store.Recent(context.Background(), 1)
	if err != nil || len(all) != 1 {
		t.Fatalf("limit not applied: %d %v", len(all), err)
	}
	removed, err := store.Clear(context.Background())
	if err != nil || removed != 2 {
		t.Fatalf("Clear = %d, %v", removed, err)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Record(context.Background(), finishedItem(t, "https://example.com/x", false).Snapshot()); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	entries, err := reopened.Recent(context.Background(), 0)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected persisted entry, got %d %v", len(entries), err)
	}
}

func TestOpenRejectsOtherSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.db.Exec("PRAGMA user_version = 7"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = store.Close()

	if _, err := Open(path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
