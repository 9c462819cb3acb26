// Package tags reads and writes audio metadata for the tagging stage.
//
// Editor.Open returns a Handle for a file; the implementation is chosen by
// extension. MP3 files are edited in process with github.com/bogem/id3v2.
// FLAC files are edited with the metaflac CLI through the process runner.
// Any other file, or a file that cannot be opened, yields a handle whose
// reads are empty and whose Commit reports ErrNotTaggable. Open failures are
// logged here so callers can carry on without tags.
package tags
