package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		return errors.New("paths.scratch_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if c.Paths.LibraryDir == c.Paths.ScratchDir {
		return errors.New("paths.library_dir must differ from paths.scratch_dir")
	}
	return nil
}

func (c *Config) validateAudio() error {
	switch c.Audio.Format {
	case audioFormatMP3, audioFormatFLAC, audioFormatAuto:
	default:
		return fmt.Errorf("audio.format must be one of mp3, flac, auto (got %q)", c.Audio.Format)
	}
	if c.Audio.MP3Quality < 0 || c.Audio.MP3Quality > maxMP3Quality {
		return fmt.Errorf("audio.mp3_quality must be between 0 and %d", maxMP3Quality)
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	return ensureNonNegative(map[string]int{
		"download.timeout_seconds":      c.Download.TimeoutSeconds,
		"normalize.timeout_seconds":     c.Normalize.TimeoutSeconds,
		"fetch.timeout_seconds":         c.Fetch.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}

func ensureNonNegative(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
