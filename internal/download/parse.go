package download

import (
	"regexp"
	"strconv"
	"strings"
)

// FileMarker prefixes the line yt-dlp prints once the final file is in place
// (--print after_move:file:%(filepath)s).
const FileMarker = "file:"

var percentPattern = regexp.MustCompile(`^\[download\]\s+([0-9]+(?:\.[0-9]+)?)%`)

// State accumulates what yt-dlp has reported so far.
type State struct {
	// Percent is the last download percentage, valid when HasPercent is set.
	Percent    float64
	HasPercent bool
	// File is the final media path announced by the file marker.
	File string
	// Updated is set when the most recent line carried a percentage.
	Updated bool
}

// ParseLine folds one yt-dlp output line into state. Lines that are neither a
// progress line nor the file marker leave state unchanged.
func ParseLine(state State, line string) State {
	state.Updated = false
	trimmed := strings.TrimSpace(line)
	if rest, ok := strings.CutPrefix(trimmed, FileMarker); ok {
		if path := strings.TrimSpace(rest); path != "" {
			state.File = path
		}
		return state
	}
	m := percentPattern.FindStringSubmatch(trimmed)
	if len(m) < 2 {
		return state
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return state
	}
	state.Percent = pct
	state.HasPercent = true
	state.Updated = true
	return state
}

// Fraction exposes the download percentage as a progress fraction when the
// last parsed line changed it.
func (s State) Fraction() (float64, bool) {
	if !s.Updated {
		return 0, false
	}
	return s.Percent / 100, true
}
