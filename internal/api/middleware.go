package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sharecycle/sharecycle/internal/auth"
	"github.com/sharecycle/sharecycle/internal/model"
)

type contextKey string

const sessionKey contextKey = "session"

// bearerToken extracts the token from an Authorization header. present is false
// when the header is absent.
func bearerToken(r *http.Request) (token string, present bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return "", true
	}
	return strings.TrimSpace(token), true
}

func authenticate(v auth.Verifier, w http.ResponseWriter, r *http.Request, required bool) (*http.Request, bool) {
	token, present := bearerToken(r)
	if !present {
		if required {
			jsonError(w, http.StatusUnauthorized, "missing or invalid authorization header")
			return nil, false
		}
		return r, true
	}
	if token == "" {
		jsonError(w, http.StatusUnauthorized, "missing or invalid authorization header")
		return nil, false
	}

	session, err := v.Verify(r.Context(), token)
	if err != nil {
		slog.Warn("token rejected", "path", r.URL.Path, "remote", r.RemoteAddr, "error", err)
		jsonError(w, http.StatusUnauthorized, "invalid token")
		return nil, false
	}
	return r.WithContext(context.WithValue(r.Context(), sessionKey, session)), true
}

// AuthMiddleware verifies the bearer token and attaches the session to the
// request context.
func AuthMiddleware(v auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r, ok := authenticate(v, w, r, true); ok {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// OptionalAuth attaches a session when a token is sent but lets anonymous
// requests through. An invalid token is still rejected.
func OptionalAuth(v auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r, ok := authenticate(v, w, r, false); ok {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RequireRole returns middleware that checks if the user has at least the given role.
func RequireRole(minimum string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := GetSession(r.Context())
			if session == nil {
				jsonError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !model.RoleAtLeast(session.Role, minimum) {
				jsonError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSession returns the session attached by AuthMiddleware, or nil.
func GetSession(ctx context.Context) *auth.Session {
	s, _ := ctx.Value(sessionKey).(*auth.Session)
	return s
}

// actorID returns the authenticated user's ID, or 0.
func actorID(r *http.Request) int64 {
	if s := GetSession(r.Context()); s != nil {
		return s.UserID
	}
	return 0
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs HTTP requests with method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}
