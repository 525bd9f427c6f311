package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/fixmasters/master-app/internal/api/metrics"
	"github.com/fixmasters/master-app/internal/core/domain"
	"github.com/fixmasters/master-app/internal/core/ports"
)

// BootstrapService performs the one-time login + identity fetch at cold start
// and owns the process-wide resolved result. Any number of call sites may call
// Bootstrap concurrently; at most one login exchange and one identity fetch
// hit the network, and every caller observes the same outcome.
type BootstrapService struct {
	tokens   ports.TokenStore
	auth     ports.AuthAPI
	identity ports.IdentityAPI
	cache    *IdentityCache
	flags    *FlagBroadcaster
	log      zerolog.Logger

	// flight collapses concurrent attempts into one; a failed attempt is
	// forgotten on return, so the next caller retries from scratch.
	flight singleflight.Group

	mu     sync.Mutex
	result *domain.BootstrapResult
}

func NewBootstrapService(
	tokens ports.TokenStore,
	auth ports.AuthAPI,
	identity ports.IdentityAPI,
	cache *IdentityCache,
	flags *FlagBroadcaster,
	log zerolog.Logger,
) *BootstrapService {
	return &BootstrapService{
		tokens:   tokens,
		auth:     auth,
		identity: identity,
		cache:    cache,
		flags:    flags,
		log:      log,
	}
}

// Bootstrap resolves the session. Resolution order: pinned result, shared
// identity cache, joined in-flight attempt, new attempt. A new attempt tries
// the stored token first and falls back to a fresh login when the backend
// rejects it with 401/403/404; any other failure propagates without touching
// the token.
func (s *BootstrapService) Bootstrap(ctx context.Context, rawCredential string) (domain.BootstrapResult, error) {
	credential := domain.NormalizeInitData(rawCredential)
	if credential == "" {
		return domain.BootstrapResult{}, domain.ErrCredentialMissing
	}

	if res, ok := s.Resolved(); ok {
		return res, nil
	}

	v, err, _ := s.flight.Do("bootstrap", func() (interface{}, error) {
		// A racer may have resolved while this caller was queueing.
		if res, ok := s.Resolved(); ok {
			return res, nil
		}
		// The cache check lives inside the flight so concurrent callers
		// cannot both resolve from it and broadcast twice.
		if me, ok := s.cache.Get(); ok {
			return s.resolve(me), nil
		}
		return s.attempt(ctx, credential)
	})
	if err != nil {
		metrics.BootstrapFailuresTotal.WithLabelValues(domain.KindOf(err).String()).Inc()
		return domain.BootstrapResult{}, err
	}
	return v.(domain.BootstrapResult), nil
}

// Resolved returns the pinned result, if bootstrap has completed.
func (s *BootstrapService) Resolved() (domain.BootstrapResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.BootstrapResult{}, false
	}
	return *s.result, true
}

// RefreshIdentity re-fetches /users/me and rebroadcasts the onboarding flag.
// This is the only sanctioned identity mutation after a profile update.
func (s *BootstrapService) RefreshIdentity(ctx context.Context) (domain.BootstrapResult, error) {
	me, err := s.identity.Me(ctx)
	if err != nil {
		return domain.BootstrapResult{}, err
	}
	return s.resolve(me), nil
}

// Reset drops the pinned result, the shared cache and the stored token so the
// next Bootstrap call performs a full login. Intended for logout or account
// switch.
func (s *BootstrapService) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.result = nil
	s.mu.Unlock()
	s.cache.Invalidate()
	return s.tokens.Clear(ctx)
}

func (s *BootstrapService) attempt(ctx context.Context, credential string) (domain.BootstrapResult, error) {
	existing, err := s.tokens.Get(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("token store unreadable, treating token as absent")
		existing = ""
	}

	if existing != "" {
		me, err := s.identity.Me(ctx)
		if err == nil {
			s.log.Debug().Msg("bootstrap resolved with stored token")
			return s.resolve(me), nil
		}
		if !domain.IsAuthFailure(err) {
			return domain.BootstrapResult{}, err
		}
		s.log.Info().Int("status", statusOf(err)).Msg("stored token rejected, clearing and re-logging in")
		if cerr := s.tokens.Clear(ctx); cerr != nil {
			s.log.Warn().Err(cerr).Msg("failed to clear rejected token")
		}
	}

	token, err := s.auth.Login(ctx, credential)
	if err != nil {
		return domain.BootstrapResult{}, err
	}
	metrics.LoginsTotal.Inc()
	if err := s.tokens.Set(ctx, token); err != nil {
		return domain.BootstrapResult{}, err
	}

	me, err := s.identity.Me(ctx)
	if err != nil {
		return domain.BootstrapResult{}, err
	}
	s.log.Info().Str("user_id", me.ID).Msg("bootstrap resolved with fresh login")
	return s.resolve(me), nil
}

// resolve derives the onboarding flag, pins the result, fills the shared
// cache and broadcasts. NeedsSetup is always recomputed here, never carried.
func (s *BootstrapService) resolve(me *domain.Identity) domain.BootstrapResult {
	res := domain.BootstrapResult{Identity: *me, NeedsSetup: domain.NeedsSetup(*me)}
	s.cache.Set(me)
	s.mu.Lock()
	s.result = &res
	s.mu.Unlock()
	s.flags.Emit(res.NeedsSetup)
	return res
}

func statusOf(err error) int {
	var ae *domain.APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}
