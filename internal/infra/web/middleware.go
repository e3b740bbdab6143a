package web

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"assessment-activation/internal/domain/model"
	"assessment-activation/internal/infra/logging"
	"assessment-activation/internal/infra/metrics"
	"assessment-activation/internal/infra/redis"
)

type adminCtxKey struct{}

func adminFrom(ctx context.Context) *model.AdminUser {
	if v := ctx.Value(adminCtxKey{}); v != nil {
		return v.(*model.AdminUser)
	}
	return nil
}

// traceMiddleware assigns a trace id to every request and logs its outcome
// with latency. Panics turn into a 500 instead of killing the process.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if rec := recover(); rec != nil {
				logging.With(ctx, s.log).Error().Interface("panic", rec).
					Str("path", r.URL.Path).Msg("handler panicked")
				writeServerError(w)
				return
			}
			latency := float64(time.Since(start).Milliseconds())
			metrics.ObserveHTTPRequest(r.URL.Path, sw.status, latency)
			logging.With(ctx, s.log).Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Dur("latency", time.Since(start)).
				Msg("request")
		}()

		next.ServeHTTP(sw, r.WithContext(ctx))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// requireAdmin resolves the bearer token to an active admin and stashes it in
// the request context.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeUnauthorized(w, "missing bearer token")
			return
		}
		admin, err := s.authUC.Verify(r.Context(), token)
		if err != nil {
			writeUnauthorized(w, "invalid or expired session")
			return
		}
		ctx := context.WithValue(r.Context(), adminCtxKey{}, admin)
		ctx = logging.WithAdminID(ctx, admin.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// rateLimit applies a fixed-window per-IP limit via Redis. A nil limiter
// (Redis not configured) disables limiting; a Redis outage fails open.
func (s *Server) rateLimit(route string, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := redis.ClientRouteKey(clientIP(r), route)
			ok, err := s.limiter.Allow(r.Context(), key, perMinute, time.Minute)
			if err != nil {
				logging.With(r.Context(), s.log).Warn().Err(err).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "RATE_LIMITED"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
