// Package telegram inspects the Telegram Mini App init-data credential
// locally. The backend performs the authoritative validation during login;
// these helpers exist for diagnostics and fast-fail before any network call.
package telegram

import (
	"fmt"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"

	"github.com/fixmasters/master-app/internal/core/domain"
)

// User is the Telegram account baked into the init data.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
}

// Inspect parses a raw (possibly host-wrapped) credential and returns the
// embedded Telegram user. It does not check the signature.
func Inspect(raw string) (User, error) {
	credential := domain.NormalizeInitData(raw)
	if credential == "" {
		return User{}, domain.ErrCredentialMissing
	}
	parsed, err := initdata.Parse(credential)
	if err != nil {
		return User{}, fmt.Errorf("parse init data: %w", err)
	}
	return User{
		ID:        parsed.User.ID,
		FirstName: parsed.User.FirstName,
		LastName:  parsed.User.LastName,
		Username:  parsed.User.Username,
	}, nil
}

// Validate checks the credential signature against the bot token and, when
// ttl is non-zero, its age. Only usable when the bot token is available to
// the client (development and diagnostics).
func Validate(raw, botToken string, ttl time.Duration) error {
	credential := domain.NormalizeInitData(raw)
	if credential == "" {
		return domain.ErrCredentialMissing
	}
	if err := initdata.Validate(credential, botToken, ttl); err != nil {
		return fmt.Errorf("validate init data: %w", err)
	}
	return nil
}
