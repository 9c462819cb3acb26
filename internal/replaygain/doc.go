// Package replaygain implements the normalize stage. MP3 files are adjusted
// in place with mp3gain, whose analysis output is parsed for progress and the
// applied gain; FLAC files get replay gain tags from metaflac.
package replaygain
