package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

type ctxKey struct{}

// WithContext stores l in ctx. The request-id middleware uses it to hand
// handlers a logger scoped to one request.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

type base struct{ l Logger }

var process atomic.Pointer[base]

// SetDefault installs l as the logger FromContext hands out when ctx
// carries none. Passing nil restores the stderr fallback.
func SetDefault(l Logger) {
	if l == nil {
		process.Store(nil)
		return
	}
	process.Store(&base{l: l})
}

// FromContext returns the logger stored in ctx, else the process logger
// set with SetDefault, else a warn-level stderr logger tagged with the
// binary name.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	if b := process.Load(); b != nil {
		return b.l
	}
	return stderrLogger()
}

var stderrLogger = sync.OnceValue(func() Logger {
	l, err := New(Config{Level: "warn", OutputPaths: []string{"stderr"}})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: stderr fallback unavailable: %v\n", err)
		return NewNop()
	}
	return l.With(String("service", filepath.Base(os.Args[0])))
})
