package replaygain

import (
	"regexp"
	"strconv"
	"strings"
)

// DecibelsPerStep is the size of one mp3gain gain step.
const DecibelsPerStep = 1.5

var (
	analyzedPattern = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)%.*bytes analyzed`)
	gainPattern     = regexp.MustCompile(`Applying .*gain change of (-?[0-9]+) to`)
)

// State is what mp3gain has reported so far.
type State struct {
	// Gain is the applied change in mp3gain steps.
	Gain      int
	GainKnown bool
	Percent   float64
	Updated   bool
}

// ParseLine folds one mp3gain output line into state. Unrecognised lines are
// ignored.
func ParseLine(state State, line string) State {
	state.Updated = false
	switch {
	case strings.Contains(line, "bytes analyzed"):
		m := analyzedPattern.FindStringSubmatch(line)
		if len(m) < 2 {
			return state
		}
		pct, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return state
		}
		state.Percent = pct
		state.Updated = true
	case strings.Contains(line, "No changes to"):
		state.Gain = 0
		state.GainKnown = true
	case strings.Contains(line, "gain change of"):
		m := gainPattern.FindStringSubmatch(line)
		if len(m) < 2 {
			return state
		}
		gain, err := strconv.Atoi(m[1])
		if err != nil {
			return state
		}
		state.Gain = gain
		state.GainKnown = true
	}
	return state
}

// Fraction reports analysis progress when the last line carried it.
func (s State) Fraction() (float64, bool) {
	if !s.Updated {
		return 0, false
	}
	return s.Percent / 100, true
}

// Decibels converts the applied gain steps to decibels.
func (s State) Decibels() float64 {
	return float64(s.Gain) * DecibelsPerStep
}
