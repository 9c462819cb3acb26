// Package history persists finished work items to SQLite so past runs can be
// listed after the process exits. Recorder plugs the store into the pipeline
// queue as a listener; Store is also used directly by the CLI history
// command.
package history
