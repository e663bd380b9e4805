// Package tracing records per-request span trees for the search path. Spans
// ride in the context, share the request id as their trace id and are
// written to the request logger at debug level once the root ends.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
)

type contextKey struct{}

type Span struct {
	Name      string
	TraceID   string
	Path      string
	StartTime time.Time
	Duration  time.Duration
	Children  []*Span
	Attrs     map[string]any

	mu    sync.Mutex
	ended bool
}

// StartSpan opens a root span. An empty traceID gets a fresh UUID.
func StartSpan(ctx context.Context, name string, traceID string) (context.Context, *Span) {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	span := newSpan(name, traceID, name)
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChildSpan opens a span under the one in ctx. Without a parent the
// child becomes a root with its own trace id.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent := SpanFromContext(ctx)
	if parent == nil {
		return StartSpan(ctx, name, "")
	}
	child := newSpan(name, parent.TraceID, parent.Path+"/"+name)
	parent.mu.Lock()
	parent.Children = append(parent.Children, child)
	parent.mu.Unlock()
	return context.WithValue(ctx, contextKey{}, child), child
}

func newSpan(name, traceID, path string) *Span {
	return &Span{
		Name:      name,
		TraceID:   traceID,
		Path:      path,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
	}
}

// End fixes the span's duration. Later calls keep the first value.
func (s *Span) End() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.ended = true
		s.Duration = time.Since(s.StartTime)
	}
	return s.Duration
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

func SpanFromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// Log writes one debug record per span in the tree through the logger
// carried by ctx.
func (s *Span) Log(ctx context.Context) {
	log := logger.FromContext(ctx)
	if !log.Enabled(ctx, slog.LevelDebug) {
		return
	}
	s.walk(func(attrs []any) {
		log.DebugContext(ctx, "span", attrs...)
	})
}

func (s *Span) walk(visit func([]any)) {
	s.mu.Lock()
	attrs := []any{
		"trace_id", s.TraceID,
		"span", s.Path,
		"duration_us", s.Duration.Microseconds(),
	}
	for k, v := range s.Attrs {
		attrs = append(attrs, k, v)
	}
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()

	visit(attrs)
	for _, child := range children {
		child.walk(visit)
	}
}
