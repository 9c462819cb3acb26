package stage

// LineParser folds one line of tool output into parser state. Unrecognised
// lines must return the state unchanged.
type LineParser[S any] func(state S, line string) S

// ParseObserver feeds process output through a LineParser and forwards the
// progress the state exposes. It implements process.LineObserver.
type ParseObserver[S any] struct {
	State    S
	parse    LineParser[S]
	progress func(S) (float64, bool)
	reporter Reporter
}

// NewParseObserver wires parse to reporter. progress extracts a fraction from
// the state after each line; returning false reports nothing for that line.
func NewParseObserver[S any](initial S, parse LineParser[S], progress func(S) (float64, bool), reporter Reporter) *ParseObserver[S] {
	if reporter == nil {
		reporter = NopReporter
	}
	return &ParseObserver[S]{State: initial, parse: parse, progress: progress, reporter: reporter}
}

// OnLine parses line and reports progress.
func (o *ParseObserver[S]) OnLine(line string) {
	o.State = o.parse(o.State, line)
	if o.progress == nil {
		return
	}
	if fraction, ok := o.progress(o.State); ok {
		o.reporter.Report(fraction)
	}
}
