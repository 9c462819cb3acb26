package scratch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tunefetch/internal/logging"
)

// Group is the set of scratch files that belong to one item.
type Group struct {
	ItemID  string
	Files   []string
	Size    int64
	ModTime time.Time
}

// CleanResult contains the outcome of a sweep.
type CleanResult struct {
	Removed []string
	Freed   int64
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// List groups the files in dir by item id, oldest group first. Hidden files
// and directories are ignored. A missing directory yields no groups.
func List(dir string) ([]Group, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	byID := map[string]*Group{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		id, _, ok := strings.Cut(name, ".")
		if !ok || id == "" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		g := byID[id]
		if g == nil {
			g = &Group{ItemID: id}
			byID[id] = g
		}
		g.Files = append(g.Files, filepath.Join(dir, name))
		g.Size += info.Size()
		if info.ModTime().After(g.ModTime) {
			g.ModTime = info.ModTime()
		}
	}

	groups := make([]Group, 0, len(byID))
	for _, g := range byID {
		sort.Strings(g.Files)
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].ModTime.Equal(groups[j].ModTime) {
			return groups[i].ItemID < groups[j].ItemID
		}
		return groups[i].ModTime.Before(groups[j].ModTime)
	})
	return groups, nil
}

// CleanStale removes every item group in dir whose newest file is older than
// maxAge. It stops early when ctx is done.
func CleanStale(ctx context.Context, dir string, maxAge time.Duration, logger *slog.Logger) CleanResult {
	result := CleanResult{}
	if logger == nil {
		logger = logging.NewNop()
	}

	groups, err := List(dir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, g := range groups {
		if ctx.Err() != nil {
			break
		}
		if !g.ModTime.Before(cutoff) {
			continue
		}
		failed := false
		for _, path := range g.Files {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				failed = true
				result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
				logger.Warn("failed to remove stale scratch file",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "scratch_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check paths.scratch_dir permissions"),
				)
			}
		}
		if failed {
			continue
		}
		result.Removed = append(result.Removed, g.ItemID)
		result.Freed += g.Size
		logger.Info("removed stale scratch files",
			logging.String(logging.FieldItemID, g.ItemID),
			logging.Int("files", len(g.Files)),
			logging.Duration("age", time.Since(g.ModTime).Round(time.Second)),
			logging.String(logging.FieldEventType, "scratch_cleanup"),
		)
	}
	return result
}
