package main

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"tunefetch/internal/config"
)

const lockFileName = ".tunefetch.lock"

// acquireScratchLock keeps two runs from sharing a scratch directory.
func acquireScratchLock(cfg *config.Config) (*flock.Flock, error) {
	lockPath := filepath.Join(cfg.Paths.ScratchDir, lockFileName)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another tunefetch run is using %s", cfg.Paths.ScratchDir)
	}
	return lock, nil
}
