package ports

import (
	"context"

	"github.com/fixmasters/master-app/internal/core/domain"
)

// AuthAPI exchanges a normalized Telegram init-data credential for a bearer
// token.
type AuthAPI interface {
	Login(ctx context.Context, credential string) (token string, err error)
}

// ProfileUpdateInput carries the onboarding form. Validation happens in the
// profile service before any network call.
type ProfileUpdateInput struct {
	FirstName    string   `json:"firstName" validate:"required,min=2"`
	LastName     string   `json:"lastName" validate:"required,min=2"`
	Patronymic   string   `json:"patronymic" validate:"required,min=2"`
	Phone        string   `json:"phone" validate:"required,e164"`
	DistrictIDs  []string `json:"districtIds" validate:"min=1"`
	SpecialtyIDs []string `json:"specialtyIds" validate:"min=1"`
}

// IdentityAPI reads and mutates the current user's record.
type IdentityAPI interface {
	Me(ctx context.Context) (*domain.Identity, error)
	UpdateProfile(ctx context.Context, input ProfileUpdateInput) error
}

// ReferenceAPI serves immutable reference data. Both calls are public
// (no bearer token required).
type ReferenceAPI interface {
	Districts(ctx context.Context) ([]domain.Named, error)
	Specialties(ctx context.Context) ([]domain.Named, error)
}
