// Package main hosts the tunefetch CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into queue runs:
// fetch submits web media URLs, filter submits local audio files, and both
// block until the queue drains while a console renderer draws progress.
// history and doctor inspect the outcome journal and the environment, and
// config scaffolds or prints the configuration file.
//
// Keep this package lean: add new functionality to the internal packages
// first, then surface it through dedicated commands or flags here.
package main
