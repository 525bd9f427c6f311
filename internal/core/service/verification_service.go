package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fixmasters/master-app/internal/core/domain"
	"github.com/fixmasters/master-app/internal/core/ports"
)

// VerificationService drives the identity-document verification sub-flow:
// upload documents one at a time, submit for review, then poll the status
// until the backend decides.
type VerificationService struct {
	api ports.VerificationAPI
	log zerolog.Logger
}

func NewVerificationService(api ports.VerificationAPI, log zerolog.Logger) *VerificationService {
	return &VerificationService{api: api, log: log}
}

func (s *VerificationService) Status(ctx context.Context) (*domain.Verification, error) {
	return s.api.Status(ctx)
}

// Upload sends one document. The backend responds with the updated flow state.
func (s *VerificationService) Upload(ctx context.Context, file ports.EvidenceFile) (*domain.Verification, error) {
	v, err := s.api.Upload(ctx, file)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("documents", v.DocumentsCount).Msg("verification document uploaded")
	return v, nil
}

// Submit moves the flow to PENDING review.
func (s *VerificationService) Submit(ctx context.Context) (*domain.Verification, error) {
	return s.api.Submit(ctx)
}

// Watch polls the verification status while it is PENDING, invoking onChange
// for every observed state. The poller stops itself once the flow is decided
// or ctx is cancelled.
func (s *VerificationService) Watch(ctx context.Context, interval time.Duration, onChange func(domain.Verification)) *Poller {
	watchCtx, cancel := context.WithCancel(ctx)
	var last domain.VerificationStatus

	p := NewPoller("verification", interval, func(ctx context.Context) error {
		v, err := s.api.Status(ctx)
		if err != nil {
			return err
		}
		if v.Status != last {
			last = v.Status
			onChange(*v)
		}
		if v.Status.Decided() {
			cancel()
		}
		return nil
	}, s.log)

	p.Start(watchCtx)
	return p
}
