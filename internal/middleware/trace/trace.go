// Package trace assigns every request an id and keeps request counters.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type contextKey struct{}

// Header carries the request id in both directions.
const Header = "X-Request-ID"

// maxIncomingID bounds the length of a caller supplied id.
const maxIncomingID = 64

// Tracer is the request id middleware.
type Tracer struct {
	total    int64
	inFlight int64
	totalUS  int64
}

// Metrics is a snapshot of the request counters.
type Metrics struct {
	TotalRequests       int64
	InFlight            int64
	AverageResponseTime time.Duration
}

func New() *Tracer {
	return &Tracer{}
}

// Middleware reuses a well formed incoming X-Request-ID or generates one,
// echoes it on the response and stores it in the request context.
func (t *Tracer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(Header)
		if id == "" || len(id) > maxIncomingID {
			id = GenerateRequestID()
		}
		w.Header().Set(Header, id)

		atomic.AddInt64(&t.total, 1)
		atomic.AddInt64(&t.inFlight, 1)
		defer func() {
			atomic.AddInt64(&t.inFlight, -1)
			atomic.AddInt64(&t.totalUS, time.Since(start).Microseconds())
		}()

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, id)))
	})
}

// GenerateRequestID returns a fresh request id.
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// RequestID extracts the request id from ctx.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}

// FromRequest is RequestID over the request context.
func FromRequest(r *http.Request) string {
	return RequestID(r.Context())
}

// GetMetrics returns the current counters.
func (t *Tracer) GetMetrics() Metrics {
	m := Metrics{
		TotalRequests: atomic.LoadInt64(&t.total),
		InFlight:      atomic.LoadInt64(&t.inFlight),
	}
	if m.TotalRequests > 0 {
		m.AverageResponseTime = time.Duration(atomic.LoadInt64(&t.totalUS)/m.TotalRequests) * time.Microsecond
	}
	return m
}
