// Package audio picks the audio stream a track is extracted from and
// classifies codecs as lossless or lossy.
//
// Candidates are ranked by:
//  1. Lossless codecs over lossy (FLAC, ALAC, WavPack, PCM, ...)
//  2. Bitrate
//  3. The default disposition flag
//
// Earlier streams win ties.
//
// Primary entry points:
//   - Select: analyzes streams and returns the primary audio stream
//   - IsLossless: classifies a codec name
package audio
