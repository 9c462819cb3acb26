package preflight

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"tunefetch/internal/config"
	"tunefetch/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minBytes available to unprivileged users.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	available := uint64(stat.Bavail) * uint64(stat.Bsize)
	if available < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s free, need %s", humanize.IBytes(available), humanize.IBytes(minBytes))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s free", humanize.IBytes(available))}
}

// CheckSystemDeps evaluates the external tools named in the config. The CLI
// doctor command and stage health checks share this list.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	tools := config.Default().Tools
	if cfg != nil {
		tools = cfg.Tools
	}
	requirements := []deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     tools.YTDLP,
			Description: "Required for downloading remote media",
		},
		{
			Name:        "FFmpeg",
			Command:     tools.FFmpeg,
			Description: "Required for audio extraction",
		},
		{
			Name:        "FFprobe",
			Command:     tools.FFprobe,
			Description: "Required for media inspection",
		},
		{
			Name:        "mp3gain",
			Command:     tools.MP3Gain,
			Description: "Required for MP3 loudness normalization",
		},
		{
			Name:        "metaflac",
			Command:     tools.Metaflac,
			Description: "Required for FLAC tags and replay gain",
			Optional:    cfg != nil && cfg.Audio.Format == "mp3",
		},
	}
	return deps.CheckBinaries(requirements)
}
