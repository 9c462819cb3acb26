package services

import "context"

type contextKey int

const (
	itemIDKey contextKey = iota
	stageKey
	requestIDKey
)

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func lookup(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(key).(string)
	return value, ok && value != ""
}

// WithItemID records the item a stage is working on. Empty ids are ignored.
func WithItemID(ctx context.Context, id string) context.Context {
	return withValue(ctx, itemIDKey, id)
}

func ItemIDFromContext(ctx context.Context) (string, bool) {
	return lookup(ctx, itemIDKey)
}

// WithStage records the running stage name. Process observers use it to
// label tool output.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) {
	return lookup(ctx, stageKey)
}

// WithRequestID records the per-run correlation id of an item.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	return lookup(ctx, requestIDKey)
}
