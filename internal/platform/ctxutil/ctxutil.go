package ctxutil

import (
	"context"
	"time"
)

// Default returns context.Background() when ctx is nil so callers can pass
// a nil context without blowing up exec/timeout plumbing.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// WithTimeout is Default + context.WithTimeout in one step; a non-positive
// timeout yields a plain cancelable context.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	ctx = Default(ctx)
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
