package preflight

import (
	"context"

	"tunefetch/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// minScratchFreeBytes is the free space below which downloads are refused.
const minScratchFreeBytes = 64 << 20

// RunAll executes the filesystem checks the workflow needs before it starts
// taking items.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir))
	results = append(results, CheckFreeSpace("Scratch free space", cfg.Paths.ScratchDir, minScratchFreeBytes))

	if cfg.Paths.LibraryDir != "" {
		results = append(results, CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir))
	}

	if ctx != nil && ctx.Err() != nil {
		results = append(results, Result{Name: "Context", Detail: ctx.Err().Error()})
	}
	return results
}
