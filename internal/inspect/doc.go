// Package inspect implements the first stage for local files: it validates
// the submitted path, registers it as the item's audio file and records the
// codec so later stages pick the MP3 or FLAC tool variants.
package inspect
