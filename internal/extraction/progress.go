package extraction

import (
	"strconv"
	"strings"
)

// ProgressState tracks ffmpeg -progress output against the input duration.
type ProgressState struct {
	// Duration of the input in seconds; zero when unknown.
	Duration float64
	// Elapsed is the output timestamp in seconds.
	Elapsed float64
	Ended   bool
	Updated bool
}

// ParseProgressLine folds one key=value line of ffmpeg -progress output into
// state. Only out_time_us and progress are interpreted.
func ParseProgressLine(state ProgressState, line string) ProgressState {
	state.Updated = false
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return state
	}
	switch strings.TrimSpace(key) {
	case "out_time_us":
		us, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || us < 0 {
			return state
		}
		state.Elapsed = float64(us) / 1e6
		state.Updated = state.Duration > 0
	case "progress":
		if strings.TrimSpace(value) == "end" {
			state.Ended = true
			state.Updated = true
		}
	}
	return state
}

// Fraction returns the completed share when the last line changed it.
func (s ProgressState) Fraction() (float64, bool) {
	if !s.Updated {
		return 0, false
	}
	if s.Ended {
		return 1, true
	}
	return min(s.Elapsed/s.Duration, 1), true
}
