// Package auth issues and verifies the bearer tokens of the HTTP API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer = "farm-backoffice"

	// MinSecretLength is the shortest accepted HMAC secret.
	MinSecretLength = 16
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevoked      = errors.New("token revoked")
)

// Claims are the claims carried by an access token.
type Claims struct {
	MemberID string      `json:"member_id"`
	Role     member.Role `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token was issued to an administrator.
func (c *Claims) IsAdmin() bool { return c != nil && c.Role == member.RoleAdmin }

// Token is returned to clients after a successful login.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Manager signs HS256 access tokens and checks them against a revocation
// store.
type Manager struct {
	secret      []byte
	ttl         time.Duration
	revocations Revocations
	log         *logger.Logger
	now         func() time.Time
}

// NewManager validates the secret. A nil revocation store defaults to an
// in-memory one.
func NewManager(secret string, ttl time.Duration, revocations Revocations, log *logger.Logger) (*Manager, error) {
	secret = strings.TrimSpace(secret)
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", MinSecretLength)
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if revocations == nil {
		revocations = NewMemoryRevocations()
	}
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Manager{
		secret:      []byte(secret),
		ttl:         ttl,
		revocations: revocations,
		log:         log,
		now:         time.Now,
	}, nil
}

// Issue signs a token for the member.
func (m *Manager) Issue(mem member.Member) (Token, error) {
	now := m.now().UTC()
	expires := now.Add(m.ttl)
	claims := &Claims{
		MemberID: mem.ID,
		Role:     mem.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   mem.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: expires}, nil
}

// Parse verifies the signature, expiry and revocation state of a token.
func (m *Manager) Parse(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.MemberID == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	revoked, err := m.revocations.Revoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Revoke blocks a token until it would have expired anyway.
func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return ErrInvalidToken
	}
	until := m.now().Add(m.ttl)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	if err := m.revocations.Revoke(ctx, claims.ID, until); err != nil {
		return err
	}
	m.log.WithField("member_id", claims.MemberID).Info("token revoked")
	return nil
}

type ctxKey struct{}

// WithClaims stores verified claims on the context.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the claims stored by WithClaims.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok && c != nil
}
