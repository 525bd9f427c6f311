package ports

import "context"

// TokenStore persists the single bearer token under one well-known key.
// Implementations must treat a missing token as ("", nil), not an error.
type TokenStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}
