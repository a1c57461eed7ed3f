// Package identity resolves the acting user for workspace operations.
// The core does not implement authentication; it consumes an identity
// Provider and stamps its user ID on pages, comments and memberships.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/notewave/notewave/pkg/models"
)

// ErrNoIdentity is returned when a provider cannot resolve a user.
var ErrNoIdentity = errors.New("identity: no authenticated user")

// Provider yields the current user's identity.
type Provider interface {
	// CurrentUserID returns the acting user, or ErrNoIdentity.
	CurrentUserID() (models.UserID, error)
}

// Static is a fixed-identity provider, used by tests and single-user
// deployments.
type Static struct {
	UserID models.UserID
}

// NewStatic returns a provider that always reports id.
func NewStatic(id models.UserID) *Static { return &Static{UserID: id} }

func (s *Static) CurrentUserID() (models.UserID, error) {
	if s.UserID.IsZero() {
		return models.UserID{}, ErrNoIdentity
	}
	return s.UserID, nil
}

// Claims are the JWT claims the token provider understands. Subject carries
// the user ID.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenProvider resolves identity from a signed JWT, verified against a
// shared HMAC secret.
type TokenProvider struct {
	secret []byte
	token  string
}

// NewTokenProvider returns a provider that validates token with secret on
// every call; an expired token starts failing without a restart.
func NewTokenProvider(secret []byte, token string) *TokenProvider {
	return &TokenProvider{secret: secret, token: token}
}

func (p *TokenProvider) CurrentUserID() (models.UserID, error) {
	if p.token == "" {
		return models.UserID{}, ErrNoIdentity
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(p.token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return models.UserID{}, fmt.Errorf("identity: %w", err)
	}
	id, err := models.ParseUserID(claims.Subject)
	if err != nil {
		return models.UserID{}, fmt.Errorf("identity: invalid subject: %w", err)
	}
	return id, nil
}

// SignToken mints a token for id, valid for ttl. The inverse of
// TokenProvider; used by tests and the local dev server.
func SignToken(secret []byte, id models.UserID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
