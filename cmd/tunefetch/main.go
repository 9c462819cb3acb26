package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// version is replaced at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	err := newRootCommand().Execute()
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		// Interrupted runs already printed what was left unprocessed.
		os.Exit(130)
	default:
		fmt.Fprintln(os.Stderr, "tunefetch:", err)
		os.Exit(1)
	}
}
