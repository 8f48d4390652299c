// Package middleware provides the HTTP middleware of the back-office API.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/R3E-Network/farm_backoffice/internal/app/auth"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
	"github.com/gorilla/mux"
)

// AuthMiddleware verifies bearer tokens and stores their claims on the
// request context.
type AuthMiddleware struct {
	tokens    *auth.Manager
	members   MemberLookup
	logger    *logger.Logger
	skipPaths map[string]bool
}

// MemberLookup loads the member a token was issued to.
type MemberLookup interface {
	Get(ctx context.Context, id string) (member.Member, error)
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(tokens *auth.Manager, log *logger.Logger, skipPaths []string) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	skip := make(map[string]bool, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = true
	}
	return &AuthMiddleware{tokens: tokens, logger: log, skipPaths: skip}
}

// WithMembers makes every request re-check the token's member. Deleted or
// deactivated members are rejected and the role is taken from the member
// record rather than the token.
func (m *AuthMiddleware) WithMembers(members MemberLookup) *AuthMiddleware {
	m.members = members
	return m
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		claims, err := m.tokens.Parse(r.Context(), strings.TrimSpace(token))
		if err != nil {
			status := http.StatusUnauthorized
			if !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrRevoked) {
				status = http.StatusServiceUnavailable
			}
			m.logger.WithError(err).
				WithField("path", r.URL.Path).
				WithField("request_id", RequestID(r.Context())).
				Warn("token validation failed")
			writeError(w, status, "invalid or expired token")
			return
		}

		if m.members != nil {
			mem, err := m.members.Get(r.Context(), claims.MemberID)
			switch {
			case errors.Is(err, storage.ErrNotFound) || (err == nil && !mem.Active):
				m.logger.WithField("member_id", claims.MemberID).
					WithField("request_id", RequestID(r.Context())).
					Warn("token of missing or inactive member rejected")
				writeError(w, http.StatusUnauthorized, "account not found or disabled")
				return
			case err != nil:
				m.logger.WithError(err).
					WithField("member_id", claims.MemberID).
					Warn("member lookup failed")
				writeError(w, http.StatusServiceUnavailable, "member lookup failed")
				return
			}
			claims.Role = mem.Role
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

// RequireAdmin rejects callers that are not administrators.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !claims.IsAdmin() {
			writeError(w, http.StatusForbidden, "administrator role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTenant restricts /members/{memberID}/... routes to the member
// itself or an administrator.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		tenant := mux.Vars(r)["memberID"]
		if tenant != "" && tenant != claims.MemberID && !claims.IsAdmin() {
			writeError(w, http.StatusForbidden, "access to member "+tenant+" denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MemberID returns the authenticated member, if any.
func MemberID(r *http.Request) string {
	if claims, ok := auth.FromContext(r.Context()); ok {
		return claims.MemberID
	}
	return ""
}
