package organizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tunefetch/internal/config"
	"tunefetch/internal/logging"
	"tunefetch/internal/queue"
	"tunefetch/internal/services"
	"tunefetch/internal/stage"
	"tunefetch/internal/testsupport"
)

func itemWithAudio(t *testing.T, cfg *config.Config, source string) *queue.Item {
	t.Helper()
	item, err := queue.NewItem(queue.SourceRemote, source, cfg.Paths.ScratchDir, []queue.StepDefinition{{Name: StageName}})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{queue.FileDownload, queue.FileAudio} {
		testsupport.StageFile(t, item.Files, name, "mp3", 2048)
	}
	return item
}

func TestTargetName(t *testing.T) {
	tests := []struct {
		artist, title, ext, want string
	}{
		{"Daft Punk", "Around the World", ".mp3", "Daft Punk - Around the World.mp3"},
		{"", "Solo", "flac", "Solo.flac"},
		{"AC/DC", "What? <Live>", ".MP3", "ACDC - What Live.mp3"},
		{"Artist", "", ".mp3", "Artist - Unknown.mp3"},
		{"Line\nBreak", "T", "", "Line Break - T"},
	}
	for _, tc := range tests {
		if got := TargetName(tc.artist, tc.title, tc.ext); got != tc.want {
			t.Errorf("TargetName(%q, %q, %q) = %q, want %q", tc.artist, tc.title, tc.ext, got, tc.want)
		}
	}
}

func TestExecuteMovesIntoLibraryAndCleansScratch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	item := itemWithAudio(t, cfg, "https://example.com/a")
	item.Results.SetString("tag.artist", "Daft Punk")
	item.Results.SetString("tag.title", "Around the World")
	scratchAudio, _ := item.Files.Lookup(queue.FileAudio)

	outcome, err := NewOrganizer(cfg, logging.NewNop()).Execute(context.Background(), item, stage.NopReporter)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := filepath.Join(cfg.Paths.LibraryDir, "Daft Punk - Around the World.mp3")
	if got, ok := item.Files.Existing(queue.FileFinal); !ok || got != want {
		t.Fatalf("final = %q, want %q", got, want)
	}
	if outcome.Summary != "Saved as Daft Punk - Around the World.mp3." {
		t.Fatalf("summary = %q", outcome.Summary)
	}
	if _, err := os.Stat(scratchAudio); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("scratch audio must be gone, stat err = %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(cfg.Paths.ScratchDir, item.ID+".*"))
	if len(matches) != 0 {
		t.Fatalf("scratch files left behind: %v", matches)
	}
	if got, _ := item.Results.String("organize.path"); got != want {
		t.Fatalf("organize.path = %q", got)
	}
}

func TestExecuteAvoidsCollisions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	existing := filepath.Join(cfg.Paths.LibraryDir, "A - B.mp3")
	testsupport.WriteFile(t, existing, 10)

	item := itemWithAudio(t, cfg, "https://example.com/b")
	item.Results.SetString("tag.artist", "A")
	item.Results.SetString("tag.title", "B")
	if _, err := NewOrganizer(cfg, nil).Execute(context.Background(), item, stage.NopReporter); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got, _ := item.Files.Lookup(queue.FileFinal); got != filepath.Join(cfg.Paths.LibraryDir, "A - B (2).mp3") {
		t.Fatalf("final = %q", got)
	}
	if info, err := os.Stat(existing); err != nil || info.Size() != 10 {
		t.Fatal("existing library file must be untouched")
	}
}

func TestExecuteFallsBackToDownloadTitle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	item := itemWithAudio(t, cfg, "https://example.com/c")
	item.Results.SetString("download.title", "Page: Title")
	if _, err := NewOrganizer(cfg, nil).Execute(context.Background(), item, stage.NopReporter); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got, _ := item.Files.Lookup(queue.FileFinal); filepath.Base(got) != "Page Title.mp3" {
		t.Fatalf("final = %q", got)
	}
}

func TestExecuteSkipsWithoutAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	item, err := queue.NewItem(queue.SourceRemote, "https://example.com/d", cfg.Paths.ScratchDir, nil)
	if err != nil {
		t.Fatal(err)
	}
	outcome, err := NewOrganizer(cfg, nil).Execute(context.Background(), item, stage.NopReporter)
	if err != nil || !outcome.Skipped || outcome.Summary != "No audio file." {
		t.Fatalf("expected skip, got %+v %v", outcome, err)
	}
}

func TestExecuteRequiresLibraryDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.LibraryDir = " "
	item := itemWithAudio(t, cfg, "https://example.com/e")
	_, err := NewOrganizer(cfg, nil).Execute(context.Background(), item, stage.NopReporter)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestValidateLibraryFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.mp3")
	testsupport.WriteFile(t, path, 100)
	if err := ValidateLibraryFile(path, 100, logging.NewNop()); err != nil {
		t.Fatalf("expected valid file: %v", err)
	}
	if err := ValidateLibraryFile(path, 99, logging.NewNop()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected size mismatch, got %v", err)
	}
	if err := ValidateLibraryFile(filepath.Join(dir, "missing"), 1, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected missing file error, got %v", err)
	}
	if err := ValidateLibraryFile("", 1, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected empty path error, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if h := NewOrganizer(cfg, nil).HealthCheck(context.Background()); !h.Ready {
		t.Fatalf("expected ready: %+v", h)
	}
	cfg.Paths.LibraryDir = filepath.Join(testsupport.BaseDir(cfg), "missing")
	if h := NewOrganizer(cfg, nil).HealthCheck(context.Background()); h.Ready {
		t.Fatal("missing library must be unhealthy")
	}
}
