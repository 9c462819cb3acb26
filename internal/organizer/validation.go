package organizer

import (
	"fmt"
	"os"
	"strings"

	"log/slog"

	"tunefetch/internal/logging"
	"tunefetch/internal/services"
)

// ValidateLibraryFile verifies that the moved file exists in the library
// with the size the scratch file had. This catches partial copies across
// filesystems.
func ValidateLibraryFile(finalPath string, expectedSize int64, logger *slog.Logger) error {
	finalPath = strings.TrimSpace(finalPath)
	if finalPath == "" {
		return services.Wrap(services.ErrValidation, StageName, "validate library file", "Final path is required", nil)
	}
	info, err := os.Stat(finalPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, StageName, "validate library file", "Library file missing after move", err)
	}
	if info.IsDir() || info.Size() != expectedSize {
		if logger != nil {
			logger.Error("library file validation failed",
				logging.String("final_path", finalPath),
				logging.Int64("expected_bytes", expectedSize),
				logging.Int64("actual_bytes", info.Size()),
				logging.String(logging.FieldEventType, "library_validation_failed"),
				logging.String(logging.FieldErrorHint, "check free space on the library filesystem"),
			)
		}
		return services.Wrap(
			services.ErrValidation,
			StageName,
			"validate library file",
			fmt.Sprintf("Library file %q has %d bytes, expected %d", finalPath, info.Size(), expectedSize),
			nil,
		)
	}
	return nil
}
