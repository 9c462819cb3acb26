package organizer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"tunefetch/internal/download"
	"tunefetch/internal/queue"
	"tunefetch/internal/tagging"
	"tunefetch/internal/textutil"
)

// libraryUnavailableErrors lists syscall errors that indicate the library is unavailable.
var libraryUnavailableErrors = []error{
	syscall.ENODEV,
	syscall.ENOTCONN,
	syscall.EHOSTDOWN,
	syscall.EHOSTUNREACH,
	syscall.ETIMEDOUT,
	syscall.EIO,
	syscall.ESTALE,
	syscall.EROFS,
}

// isLibraryUnavailable checks whether an error indicates the library filesystem is unavailable.
func isLibraryUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if os.IsNotExist(err) {
		return true
	}
	for _, target := range libraryUnavailableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// TargetName builds the library file name (without directory) for the
// given artist, title and extension. An empty artist yields just the title.
func TargetName(artist, title, ext string) string {
	artist = textutil.SanitizeFileName(artist)
	title = textutil.SanitizeFileName(title)
	if title == "" {
		title = "Unknown"
	}
	name := textutil.Ternary(artist == "", title, artist+" - "+title)
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// namesFor picks artist and title from the tag stage, falling back to the
// download title and finally the audio file name.
func namesFor(item *queue.Item, audioPath string) (string, string) {
	result := func(stage, name string) string {
		v, _ := item.Results.String(queue.ResultKey(stage, name))
		return strings.TrimSpace(v)
	}
	artist := result(tagging.StageName, tagging.ResultArtist)
	title := result(tagging.StageName, tagging.ResultTitle)
	if title == "" {
		title = result(download.StageName, download.ResultTitle)
	}
	if title == "" {
		base := filepath.Base(audioPath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return artist, title
}
