// Package http serves the rural-investment query API: paginated record
// retrieval, nested-filter queries, and grouped aggregations over the active
// record generation.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ruraldata/internal/filter"
	"ruraldata/internal/log"
	"ruraldata/internal/query"
	"ruraldata/internal/storage"
)

type Server struct {
	http.Server
	handle      *storage.Handle
	executor    *query.Executor
	limits      filter.Limits
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	qlog        *log.StructuredLogger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, handle *storage.Handle, executor *query.Executor, limits filter.Limits) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		handle:      handle,
		executor:    executor,
		limits:      limits,
		rateLimiter: newRateLimiter(),
		metrics:     &securityMetrics{},
		qlog:        log.NewStructuredLogger(log.Default(log.ComponentQuery)),
	}

	mux.HandleFunc("GET /health", s.withSecurityHeaders(s.handleHealth))
	mux.HandleFunc("GET /schema", s.withSecurityHeaders(s.handleSchema))
	mux.HandleFunc("GET /investments", s.withSecurityHeaders(s.handleListInvestments))
	mux.HandleFunc("POST /investments/query", s.withSecurityHeaders(s.handleQueryInvestments))
	mux.HandleFunc("POST /summary/query", s.withSecurityHeaders(s.handleSummaryQuery))
	mux.HandleFunc("GET /aggregations/{dimension}", s.withSecurityHeaders(s.handleAggregation))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)

		// Generate request ID for tracing
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if detectSuspiciousRequest(r, s.metrics) {
			slog.WarnContext(ctx, "Suspicious request pattern",
				"request_id", requestID,
				"client_ip", clientIP,
				"url", r.URL.Path)
		}

		limit := readRequestsPerMinute
		if r.Method == http.MethodPost {
			limit = queryRequestsPerMinute
		}
		if !s.rateLimiter.allow(clientIP, limit, s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Capture status code for the completion log
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
