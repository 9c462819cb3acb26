package audio

import (
	"path/filepath"
	"strconv"
	"strings"

	"tunefetch/internal/media/ffprobe"
)

// Selection describes the audio stream chosen from a container.
type Selection struct {
	Primary      ffprobe.Stream
	PrimaryIndex int
	// AudioOrdinal is the position among audio streams, as used by the
	// ffmpeg "-map 0:a:N" specifier.
	AudioOrdinal int
	Lossless     bool
	Total        int
}

// Found reports whether any audio stream was available.
func (s Selection) Found() bool {
	return s.PrimaryIndex >= 0
}

// PrimaryLabel returns a human-readable summary of the selected primary stream.
func (s Selection) PrimaryLabel() string {
	if s.PrimaryIndex < 0 {
		return ""
	}
	return formatStreamSummary(s.Primary)
}

// Select returns the best audio stream for music extraction.
func Select(streams []ffprobe.Stream) Selection {
	candidates := buildCandidates(streams)
	if len(candidates) == 0 {
		return Selection{PrimaryIndex: -1, AudioOrdinal: -1}
	}
	best := candidates[0]
	bestScore := scorePrimary(best)
	for _, cand := range candidates[1:] {
		if score := scorePrimary(cand); score > bestScore {
			best = cand
			bestScore = score
		}
	}
	return Selection{
		Primary:      best.stream,
		PrimaryIndex: best.stream.Index,
		AudioOrdinal: best.order,
		Lossless:     best.isLossless,
		Total:        len(candidates),
	}
}

// candidate captures the derived metadata used for audio ranking.
type candidate struct {
	stream         ffprobe.Stream
	order          int
	isLossless     bool
	bitRate        int64
	defaultFlagged bool
}

func scorePrimary(cand candidate) float64 {
	score := 0.0
	if cand.isLossless {
		score += 10000
	}
	// kbps, capped so a bogus bitrate cannot outrank a lossless stream.
	score += float64(min(cand.bitRate/1000, 5000))
	if cand.defaultFlagged {
		score += 5
	}
	score -= float64(cand.order) * 0.1
	return score
}

func buildCandidates(streams []ffprobe.Stream) []candidate {
	result := make([]candidate, 0, len(streams))
	order := 0
	for _, stream := range streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		rate, _ := strconv.ParseInt(strings.TrimSpace(stream.BitRate), 10, 64)
		result = append(result, candidate{
			stream:         stream,
			order:          order,
			isLossless:     detectLossless(stream),
			bitRate:        max(rate, 0),
			defaultFlagged: stream.Disposition != nil && stream.Disposition["default"] == 1,
		})
		order++
	}
	return result
}

var losslessCodecs = map[string]bool{
	"flac":    true,
	"alac":    true,
	"wavpack": true,
	"ape":     true,
	"tta":     true,
	"truehd":  true,
	"mlp":     true,
	"tak":     true,
	"shorten": true,
}

// IsLossless reports whether codec names a lossless audio codec.
func IsLossless(codec string) bool {
	codec = strings.ToLower(strings.TrimSpace(codec))
	return losslessCodecs[codec] || strings.HasPrefix(codec, "pcm_")
}

// IsLosslessExtension reports whether a file extension normally carries
// lossless audio. It is the fallback when ffprobe is unavailable.
func IsLosslessExtension(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac", ".wav", ".aiff", ".aif", ".ape", ".wv", ".tta":
		return true
	default:
		return false
	}
}

func detectLossless(stream ffprobe.Stream) bool {
	if IsLossless(stream.CodecName) {
		return true
	}
	long := strings.ToLower(stream.CodecLong)
	return strings.Contains(long, "lossless") && !strings.Contains(long, "lossy")
}

func formatStreamSummary(stream ffprobe.Stream) string {
	parts := make([]string, 0, 4)
	codec := stream.CodecLong
	if codec == "" {
		codec = stream.CodecName
	}
	if codec != "" {
		parts = append(parts, codec)
	}
	if stream.Channels > 0 {
		parts = append(parts, strconv.Itoa(stream.Channels)+"ch")
	}
	if stream.SampleRate != "" {
		parts = append(parts, stream.SampleRate+"Hz")
	}
	if title := strings.TrimSpace(stream.Tags["title"]); title != "" {
		parts = append(parts, title)
	}
	if len(parts) == 0 {
		return "audio"
	}
	return strings.Join(parts, " | ")
}
