package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/fixmasters/master-app/internal/core/domain"
	"github.com/fixmasters/master-app/internal/core/ports"
)

// ProfileService handles the onboarding form: validate, submit, then refresh
// the identity through the bootstrap coordinator so the shared cache and the
// onboarding flag stay coherent.
type ProfileService struct {
	identity  ports.IdentityAPI
	reference ports.ReferenceAPI
	bootstrap *BootstrapService
	validate  *validator.Validate
	log       zerolog.Logger
}

func NewProfileService(identity ports.IdentityAPI, reference ports.ReferenceAPI, bootstrap *BootstrapService, log zerolog.Logger) *ProfileService {
	return &ProfileService{
		identity:  identity,
		reference: reference,
		bootstrap: bootstrap,
		validate:  validator.New(),
		log:       log,
	}
}

// Districts returns the selectable district reference list.
func (s *ProfileService) Districts(ctx context.Context) ([]domain.Named, error) {
	return s.reference.Districts(ctx)
}

// Specialties returns the selectable specialty reference list.
func (s *ProfileService) Specialties(ctx context.Context) ([]domain.Named, error) {
	return s.reference.Specialties(ctx)
}

// Update validates and submits the profile form, then re-fetches the identity
// record. The returned result carries the freshly derived onboarding flag.
func (s *ProfileService) Update(ctx context.Context, input ports.ProfileUpdateInput) (domain.BootstrapResult, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Patronymic = strings.TrimSpace(input.Patronymic)
	input.Phone = strings.TrimSpace(input.Phone)

	if err := s.validate.Struct(input); err != nil {
		return domain.BootstrapResult{}, err
	}

	if err := s.identity.UpdateProfile(ctx, input); err != nil {
		return domain.BootstrapResult{}, err
	}

	res, err := s.bootstrap.RefreshIdentity(ctx)
	if err != nil {
		return domain.BootstrapResult{}, err
	}
	s.log.Info().Str("user_id", res.Identity.ID).Bool("needs_setup", res.NeedsSetup).Msg("profile updated")
	return res, nil
}
