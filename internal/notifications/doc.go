// Package notifications pushes queue events to ntfy.
//
// QueueListener plugs into the workflow manager and posts a message when an
// item completes, when it fails, and when the queue drains, each gated by a
// flag in the notifications config section. Delivery happens off the worker
// goroutine; Wait flushes pending posts before the process exits. An empty
// topic turns the listener into a no-op.
package notifications
