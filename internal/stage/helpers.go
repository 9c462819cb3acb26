package stage

import (
	"context"
	"fmt"
	"time"

	"tunefetch/internal/queue"
)

// RequireFile returns the path of an existing working file. When the file is
// missing, ok is false and the returned Outcome is the skip to hand back.
func RequireFile(item *queue.Item, name string) (string, Outcome, bool) {
	path, ok := item.Files.Existing(name)
	if !ok {
		return "", Skip(fmt.Sprintf("No %s file.", name)), false
	}
	return path, Outcome{}, true
}

// WithOptionalTimeout applies d as a deadline when it is positive.
func WithOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
