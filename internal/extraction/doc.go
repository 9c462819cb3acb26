// Package extraction implements the extract stage. It probes the downloaded
// container, selects the best audio stream, and transcodes it with ffmpeg
// into MP3 or FLAC according to audio.format, reporting progress from
// ffmpeg's machine-readable -progress output.
package extraction
