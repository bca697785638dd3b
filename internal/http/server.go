package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"hesab/internal/assistant"
	"hesab/internal/log"
	"hesab/internal/middleware/auth"
	"hesab/internal/middleware/ratelimit"
	"hesab/internal/middleware/security"
	"hesab/internal/middleware/trace"
)

// Assistant answers chat frames.
type Assistant interface {
	Handle(ctx context.Context, msg assistant.Message) assistant.Result
	Welcome(ctx context.Context, msg assistant.Message) assistant.Result
	Forget(ctx context.Context, externalID string) error
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune a Server. Zero values select the defaults.
type Options struct {
	// Tokens binds bearer secrets to chat users, or to auth.Wildcard for a
	// bridge. Without tokens every chat request is rejected.
	Tokens    map[string]string
	RateLimit ratelimit.Config
	// AllowedOrigins lists browser origins accepted on /ws. Empty accepts
	// same-origin browsers and clients that send no Origin.
	AllowedOrigins []string
	TrustedProxies []string
	// Ready is checked by /readyz under this name.
	Ready map[string]Pinger
}

// Server is the chat HTTP server.
type Server struct {
	http.Server

	assistant Assistant
	ready     map[string]Pinger
	auth      *auth.Authenticator
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Tracer
	upgrader  websocket.Upgrader
	logger    *log.Logger
	metrics   *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run server.
func NewServer(addr string, a Assistant, opts Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		assistant: a,
		ready:     opts.Ready,
		auth:      auth.New(opts.Tokens),
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
		detector:  security.NewDetector(),
		tracer:    trace.New(),
		logger:    logger.WithComponent(log.ComponentHTTP),
		metrics:   newAppMetrics(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	if len(opts.AllowedOrigins) > 0 {
		s.upgrader.CheckOrigin = originChecker(opts.AllowedOrigins)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(log.Middleware(logger, trace.FromRequest))
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)
	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Post("/api/messages", s.handleMessage)
		r.Get("/ws", s.handleWebSocket)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the limiter and drains the HTTP server. Hijacked websocket
// connections are not tracked by http.Server and end with their handlers.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// rateKey throttles per chat user, per client address when no user is named.
func (s *Server) rateKey(r *http.Request, user string) string {
	if user != "" {
		return "user:" + user
	}
	return "ip:" + s.detector.ClientIP(r)
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.ToLower(o), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}
