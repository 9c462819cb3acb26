package process

// LineObserver receives each stdout line of a running process. OnLine must not
// block; it runs on the goroutine that is reading the pipe.
type LineObserver interface {
	OnLine(line string)
}

// LineFunc adapts a plain function to LineObserver.
type LineFunc func(line string)

// OnLine calls f(line).
func (f LineFunc) OnLine(line string) {
	if f != nil {
		f(line)
	}
}

// Collector records every line it observes. It is mainly useful in tests and
// for tools whose whole output is parsed after exit.
type Collector struct {
	Lines []string
}

// OnLine appends line.
func (c *Collector) OnLine(line string) {
	c.Lines = append(c.Lines, line)
}
