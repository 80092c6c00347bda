// Package mcpauth provides MCP-specific authentication middleware.
// It wraps the core auth service with RFC 6750 Bearer token error responses.
package mcpauth

import (
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/sqlparams/pkg/auth"
)

// AuthFailureRecorder records rejected MCP authentication attempts.
type AuthFailureRecorder interface {
	RecordAuthFailure(userID, reason, clientIP string)
}

// Middleware provides MCP-specific authentication middleware.
// Unlike the general auth middleware, this returns RFC 6750 WWW-Authenticate
// headers for OAuth 2.0 Bearer token authentication errors.
type Middleware struct {
	authService auth.AuthService
	auditLogger AuthFailureRecorder
	logger      *zap.Logger
}

// Option configures a Middleware.
type Option func(*Middleware)

// WithAuditLogger records every authentication failure.
func WithAuditLogger(recorder AuthFailureRecorder) Option {
	return func(m *Middleware) {
		m.auditLogger = recorder
	}
}

// NewMiddleware creates a new MCP auth middleware.
func NewMiddleware(authService auth.AuthService, logger *zap.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		authService: authService,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RequireAuth validates the JWT and, when requiredRole is non-empty, requires
// the token to carry that role.
// Returns RFC 6750 WWW-Authenticate headers on authentication failures.
func (m *Middleware) RequireAuth(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, token, err := m.authService.ValidateRequest(r)
			if err != nil {
				m.logger.Debug("MCP auth failed: invalid or missing token",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				m.recordFailure("", "Invalid or expired token", r)
				m.writeWWWAuthenticate(w, http.StatusUnauthorized, "invalid_token", "The access token is invalid or expired")
				return
			}

			if requiredRole != "" && !claims.HasRole(requiredRole) {
				m.logger.Warn("MCP auth failed: missing role",
					zap.String("user_id", claims.Subject),
					zap.String("required_role", requiredRole))
				m.recordFailure(claims.Subject, "Missing role "+requiredRole, r)
				m.writeWWWAuthenticate(w, http.StatusForbidden, "insufficient_scope", "The access token does not grant access to MCP tools")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims, token)))
		})
	}
}

func (m *Middleware) recordFailure(userID, reason string, r *http.Request) {
	if m.auditLogger == nil {
		return
	}
	m.auditLogger.RecordAuthFailure(userID, reason, remoteIP(r))
}

// writeWWWAuthenticate writes an RFC 6750 Bearer token error response.
// See: https://datatracker.ietf.org/doc/html/rfc6750#section-3
func (m *Middleware) writeWWWAuthenticate(w http.ResponseWriter, status int, errorCode, description string) {
	headerValue := `Bearer error="` + errorCode + `", error_description="` + description + `"`
	w.Header().Set("WWW-Authenticate", headerValue)
	w.WriteHeader(status)
}

func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
