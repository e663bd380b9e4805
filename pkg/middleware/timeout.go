package middleware

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
)

// Timeout answers 504 when the handler has not started its response within
// timeout. The handler sees a cancelled context and keeps running until it
// returns; anything it writes after the deadline is dropped.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			tw := &timeoutWriter{w: w, header: make(http.Header)}
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()

			select {
			case <-done:
				return
			case <-ctx.Done():
			}
			if !tw.expire() {
				// The response is already underway; let the handler finish it.
				<-done
				return
			}
			logger.FromContext(ctx).Warn("request timed out",
				"method", r.Method,
				"path", r.URL.Path,
				"timeout", timeout,
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusGatewayTimeout)
			w.Write([]byte(`{"error":"request timeout"}`))
		})
	}
}

// timeoutWriter buffers headers until the handler commits a status, so the
// handler goroutine never touches the real header map after a timeout.
type timeoutWriter struct {
	w      http.ResponseWriter
	header http.Header

	mu       sync.Mutex
	started  bool
	timedOut bool
}

func (tw *timeoutWriter) Header() http.Header {
	return tw.header
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.start(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if !tw.start(http.StatusOK) {
		return 0, http.ErrHandlerTimeout
	}
	return tw.w.Write(b)
}

// start commits headers and status once. It reports false after a timeout.
// Callers hold mu.
func (tw *timeoutWriter) start(code int) bool {
	if tw.timedOut {
		return false
	}
	if !tw.started {
		tw.started = true
		maps.Copy(tw.w.Header(), tw.header)
		tw.w.WriteHeader(code)
	}
	return true
}

// expire marks the writer timed out unless the handler already started its
// response.
func (tw *timeoutWriter) expire() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.started {
		return false
	}
	tw.timedOut = true
	return true
}
