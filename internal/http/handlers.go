package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"
)

type appMetrics struct {
	started     time.Time
	messages    int64
	failures    int64
	rateLimited int64
	wsOpen      int64
	wsTotal     int64
}

func newAppMetrics() *appMetrics {
	return &appMetrics{started: time.Now()}
}

// handleHealth performs a basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady pings every registered dependency.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := make(map[string]string, len(s.ready))
	for name, p := range s.ready {
		if err := p.Ping(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status = "not_ready"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	rl := s.limiter.GetMetrics()
	sec := s.detector.GetMetrics()
	tr := s.tracer.GetMetrics()
	au := s.auth.GetMetrics()
	counters := map[string]int64{
		"hesab_uptime_seconds":            int64(time.Since(s.metrics.started).Seconds()),
		"hesab_http_requests_total":       tr.TotalRequests,
		"hesab_http_requests_in_flight":   tr.InFlight,
		"hesab_http_response_time_avg_us": tr.AverageResponseTime.Microseconds(),
		"hesab_chat_messages_total":       atomic.LoadInt64(&s.metrics.messages),
		"hesab_chat_failures_total":       atomic.LoadInt64(&s.metrics.failures),
		"hesab_chat_rate_limited_total":   atomic.LoadInt64(&s.metrics.rateLimited),
		"hesab_ws_connections_open":       atomic.LoadInt64(&s.metrics.wsOpen),
		"hesab_ws_connections_total":      atomic.LoadInt64(&s.metrics.wsTotal),
		"hesab_auth_accepted_total":       au.Accepted,
		"hesab_auth_rejected_total":       au.Rejected,
		"hesab_rate_limit_keys":           rl.KeyCount,
		"hesab_rate_limit_rejected_total": rl.Rejected,
		"hesab_suspicious_requests_total": sec.SuspiciousRequests,
		"hesab_blocked_requests_total":    sec.BlockedRequests,
	}
	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s %d\n", name, counters[name])
	}
}
