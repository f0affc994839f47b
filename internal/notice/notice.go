// Package notice collects user-visible, non-fatal warnings raised while a
// request runs (fallback embeddings, failed searches, rewrites that fell back
// to the original text). A Recorder is attached to the request context by the
// HTTP layer and drained into the response and the session afterwards.
package notice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type contextKey struct{}

// Recorder accumulates warnings for a single request
type Recorder struct {
	mu       sync.Mutex
	warnings []string
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Add appends a warning
func (r *Recorder) Add(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, msg)
}

// Warnings returns a copy of the recorded warnings
func (r *Recorder) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warnings...)
}

// WithRecorder returns a context carrying r
func WithRecorder(ctx context.Context, r *Recorder) context.Context {
	return context.WithValue(ctx, contextKey{}, r)
}

// FromContext returns the recorder attached to ctx, or nil
func FromContext(ctx context.Context) *Recorder {
	r, _ := ctx.Value(contextKey{}).(*Recorder)
	return r
}

// Warn logs a warning and records it on the context's recorder when present
func Warn(ctx context.Context, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	slog.WarnContext(ctx, msg)
	if r := FromContext(ctx); r != nil {
		r.Add(msg)
	}
}
