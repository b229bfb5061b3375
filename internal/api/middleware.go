package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/labborrow/internal/apperr"
	"github.com/erazemk/labborrow/internal/auth"
	"github.com/erazemk/labborrow/internal/logger"
	"github.com/erazemk/labborrow/internal/metrics"
)

type contextKey string

const claimsKey contextKey = "claims"

const requestIDHeader = "X-Request-Id"

// AuthMiddleware requires a valid bearer token and adds its claims to the context.
func AuthMiddleware(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			switch err {
			case nil:
			case auth.ErrNoToken:
				jsonError(w, http.StatusUnauthorized, "no token, authorization denied")
				return
			default:
				jsonError(w, http.StatusUnauthorized, "invalid token format")
				return
			}

			claims, err := auth.ValidateToken(secret, tokenStr)
			if err != nil {
				jsonError(w, http.StatusUnauthorized, "token is not valid")
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), log, claims)))
		})
	}
}

// OptionalAuth attaches claims when a valid bearer token is present and
// otherwise lets the request through untouched.
func OptionalAuth(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenStr, err := auth.TokenFromHeader(r.Header.Get("Authorization")); err == nil {
				if claims, err := auth.ValidateToken(secret, tokenStr); err == nil {
					r = r.WithContext(withClaims(r.Context(), log, claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withClaims(ctx context.Context, log *logger.Logger, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)
	if log != nil {
		ctx = log.WithUserID(ctx, claims.UserID)
	}
	return ctx
}

// GetClaims retrieves the JWT claims from the context.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func userIDFrom(ctx context.Context) string {
	if claims := GetClaims(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}

// RequestID propagates or assigns X-Request-Id and adds it to the log context.
func RequestID(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if log != nil {
				ctx = log.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func recorderFor(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w}
}

// LoggingMiddleware logs each finished request with its status and duration.
func LoggingMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := log.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			rec := recorderFor(w)
			start := time.Now()

			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			ctx = log.WithFields(ctx, map[string]any{
				"status":      status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			log.Info(ctx, "request.complete")
		})
	}
}

// Recoverer turns a panic into a 500, unless the response was already started.
func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := recorderFor(w)
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}
				err := fmt.Errorf("panic: %v", p)
				ctx := r.Context()
				if rec.status != 0 {
					log.Error(ctx, "panic.after_headers", err)
					return
				}
				writeError(ctx, log, rec, apperr.Internal(err, "internal server error"))
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

// MetricsMiddleware records request counts and latency by mux pattern. It
// must wrap the mux directly so the matched pattern is visible afterwards.
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := recorderFor(w)
			start := time.Now()
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveHTTP(r.Method, r.Pattern, status, time.Since(start))
		})
	}
}
