package domain

import (
	"errors"
	"strings"
)

var ErrCredentialMissing = errors.New("telegram init data is missing")

// Named is a reference entity (district or specialty). Read-only.
type Named struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Profile holds the master's editable profile. All fields may be blank until
// onboarding completes.
type Profile struct {
	ID          string   `json:"id"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Patronymic  string   `json:"patronymic"`
	Phone       string   `json:"phone"`
	Status      string   `json:"status"`
	Districts   []Named  `json:"districts"`
	Specialties []Named  `json:"specialties"`
	Finance     *Finance `json:"finance,omitempty"`
}

// Finance is the optional balance block attached to a profile.
type Finance struct {
	Balance float64 `json:"balance"`
	Debt    float64 `json:"debt"`
}

// Identity is the authenticated user record returned by /users/me. It is
// immutable within a session except through an explicit re-fetch after a
// profile mutation.
type Identity struct {
	ID               string   `json:"id"`
	Role             string   `json:"role"`
	TelegramUsername string   `json:"telegramUsername"`
	Profile          *Profile `json:"profile"`
}

// BootstrapResult pairs the fetched identity with the derived onboarding flag.
// NeedsSetup is always recomputed from Identity, never stored independently.
type BootstrapResult struct {
	Identity   Identity
	NeedsSetup bool
}

// NeedsSetup reports whether onboarding must run: the profile is absent or
// any of first name, last name, phone is blank after trimming.
func NeedsSetup(id Identity) bool {
	p := id.Profile
	if p == nil {
		return true
	}
	return strings.TrimSpace(p.FirstName) == "" ||
		strings.TrimSpace(p.LastName) == "" ||
		strings.TrimSpace(p.Phone) == ""
}
