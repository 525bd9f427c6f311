package store

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fixmasters/master-app/internal/core/ports"
)

// ExpiryCheckedStore wraps a TokenStore and reports a token as absent when
// its JWT exp claim is already past, saving the guaranteed 401 round-trip on
// the next identity fetch. The claim is read without signature verification;
// the client never validates tokens, the backend does.
type ExpiryCheckedStore struct {
	inner ports.TokenStore
	skew  time.Duration
	now   func() time.Time
}

func WithExpiryCheck(inner ports.TokenStore, skew time.Duration) *ExpiryCheckedStore {
	return &ExpiryCheckedStore{inner: inner, skew: skew, now: time.Now}
}

func (s *ExpiryCheckedStore) Get(ctx context.Context) (string, error) {
	token, err := s.inner.Get(ctx)
	if err != nil || token == "" {
		return token, err
	}
	if s.expired(token) {
		// Drop it eagerly so every consumer agrees the session is gone.
		if cerr := s.inner.Clear(ctx); cerr != nil {
			return "", cerr
		}
		return "", nil
	}
	return token, nil
}

func (s *ExpiryCheckedStore) Set(ctx context.Context, token string) error {
	return s.inner.Set(ctx, token)
}

func (s *ExpiryCheckedStore) Clear(ctx context.Context) error {
	return s.inner.Clear(ctx)
}

// expired reports whether the token carries an exp claim in the past. Opaque
// (non-JWT) tokens and tokens without exp are never considered expired.
func (s *ExpiryCheckedStore) expired(token string) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Time.Before(s.now().Add(s.skew))
}
