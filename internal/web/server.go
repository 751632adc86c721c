// Package web provides the HTTP server and handlers for the symbolizer.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/addr2line-web/addr2line/internal/config"
	"github.com/addr2line-web/addr2line/internal/core"
	webmw "github.com/addr2line-web/addr2line/internal/web/middleware"
)

// errRateLimited is reported when a client exhausts its request budget.
var errRateLimited = errors.New("rate limit exceeded")

// Server is the HTTP server for the symbolizer.
type Server struct {
	session   *core.Session
	converter *core.Converter
	cfg       *config.Config
	router    *chi.Mux
	server    *http.Server
	limiters  []*rateLimiter
}

// NewServer creates a server over session. converter backs the stateless
// /api/convert and /api/cleanup endpoints.
func NewServer(session *core.Session, converter *core.Converter, cfg *config.Config) *Server {
	s := &Server{
		session:   session,
		converter: converter,
		cfg:       cfg,
		router:    chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(webmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(webmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	// Uploads get their own, tighter budget on top of the global one.
	upload := func(next http.Handler) http.Handler { return next }
	if s.cfg.Rate.Enabled {
		upload = s.newRateLimiter(s.cfg.Rate.UploadLimit, time.Minute).middleware
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(webmw.APIKeyAuth(&s.cfg.Security))

		// Artifact registry
		r.Get("/artifacts", s.handleListArtifacts)
		r.With(upload).Post("/artifacts", s.handleAddArtifacts)
		r.Post("/artifacts/reorder", s.handleReorderArtifact)
		r.Delete("/artifacts/{id}", s.handleRemoveArtifact)
		r.Patch("/artifacts/{id}", s.handleRenameArtifact)
		r.Post("/artifacts/{id}/tags", s.handleAddTag)
		r.Delete("/artifacts/{id}/tags/{tag}", s.handleRemoveTag)
		r.Get("/artifacts/{id}/tag-suggestions", s.handleTagSuggestions)

		// Selection and filtering
		r.Post("/active", s.handleSelectArtifact)
		r.Post("/tag-filter/{tag}", s.handleToggleTagFilter)

		// Editor
		r.Put("/input", s.handleSetInput)
		r.Delete("/input", s.handleClearInput)
		r.With(upload).Post("/input/file", s.handleLoadInputFile)
		r.Post("/input/cleanup", s.handleApplyCleanupToInput)
		r.Put("/cleanup-pattern", s.handleSetCleanupPattern)

		// Session conversion
		r.Post("/session/convert", s.handleSessionConvert)
		r.Get("/session/output", s.handleSessionOutput)

		// Stateless
		r.With(upload).Post("/convert", s.handleConvert)
		r.Post("/cleanup", s.handleCleanupPreview)
	})
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if l := s.converter.Limiter(); l != nil {
		resp["conversions"] = l.Status()
	}
	writeJSON(w, resp)
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter implements a fixed-window token bucket per client address.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	done     chan struct{}
	once     sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a limiter and registers it for Shutdown.
func (s *Server) newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	s.limiters = append(s.limiters, rl)
	return rl
}

// cleanup drops visitors idle for two windows, once a minute.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
		}
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists || time.Since(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}

	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// middleware rate limits by client address. TrustedRealIP has already
// rewritten RemoteAddr for proxied requests.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			respondError(w, r, errRateLimited, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Encoding errors are logged since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
