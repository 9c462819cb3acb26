// Package process runs external command-line tools and streams their standard
// output line by line to observers.
//
// Observers are invoked synchronously on the goroutine that called Run, in
// registration order, once per line, before the next line is read. Standard
// error is drained concurrently into a bounded tail that is attached to
// ExitError on non-zero exit. Each child runs in its own process group so
// cancellation can stop the tool together with anything it spawned.
package process
