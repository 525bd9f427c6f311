package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fixmasters/master-app/internal/core/domain"
	"github.com/fixmasters/master-app/internal/core/ports"
)

const testInitData = "#tgWebAppData=query_id=AAH&user=%7B%22id%22%3A1%7D&hash=abc"

var nopLogger = zerolog.Nop()

// ---------------------------------------------------------------------------
// Stub ports
// ---------------------------------------------------------------------------

type stubTokenStore struct {
	mu     sync.Mutex
	token  string
	clears int
}

func (s *stubTokenStore) Get(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *stubTokenStore) Set(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *stubTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.clears++
	return nil
}

func (s *stubTokenStore) snapshot() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.clears
}

type stubAuthAPI struct {
	mu     sync.Mutex
	logins int
	token  string
	errs   []error // consumed one per call, then nil
	delay  time.Duration
}

func (s *stubAuthAPI) Login(_ context.Context, credential string) (string, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return s.token, nil
}

func (s *stubAuthAPI) loginCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

type meReply struct {
	me  *domain.Identity
	err error
}

type stubIdentityAPI struct {
	mu      sync.Mutex
	calls   int
	replies   []meReply // consumed one per call; last reply repeats
	updates   []ports.ProfileUpdateInput
	updateErr error
}

func (s *stubIdentityAPI) Me(_ context.Context) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.replies) == 0 {
		return nil, errors.New("stub: no reply scripted")
	}
	r := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	clone := *r.me
	return &clone, nil
}

func (s *stubIdentityAPI) UpdateProfile(_ context.Context, input ports.ProfileUpdateInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = append(s.updates, input)
	return nil
}

func (s *stubIdentityAPI) meCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func incompleteIdentity() *domain.Identity {
	return &domain.Identity{ID: "u1", Role: "MASTER", Profile: nil}
}

func completeIdentity() *domain.Identity {
	return &domain.Identity{
		ID:   "u1",
		Role: "MASTER",
		Profile: &domain.Profile{
			ID:        "p1",
			FirstName: "Ivan",
			LastName:  "Petrov",
			Phone:     "+79001234567",
		},
	}
}

func newBootstrap(tokens *stubTokenStore, auth *stubAuthAPI, identity *stubIdentityAPI) (*BootstrapService, *FlagBroadcaster) {
	flags := NewFlagBroadcaster()
	return NewBootstrapService(tokens, auth, identity, NewIdentityCache(), flags, nopLogger), flags
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestBootstrap_CredentialMissing(t *testing.T) {
	svc, _ := newBootstrap(&stubTokenStore{}, &stubAuthAPI{}, &stubIdentityAPI{})

	for _, raw := range []string{"", "   ", "#", "#tgWebAppData="} {
		if _, err := svc.Bootstrap(context.Background(), raw); !errors.Is(err, domain.ErrCredentialMissing) {
			t.Fatalf("Bootstrap(%q): expected ErrCredentialMissing, got %v", raw, err)
		}
	}
}

func TestBootstrap_AtMostOnceLogin(t *testing.T) {
	tokens := &stubTokenStore{}
	auth := &stubAuthAPI{token: "tok-1", delay: 5 * time.Millisecond}
	identity := &stubIdentityAPI{replies: []meReply{{me: completeIdentity()}}}
	svc, _ := newBootstrap(tokens, auth, identity)

	const callers = 16
	results := make([]domain.BootstrapResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Bootstrap(context.Background(), testInitData)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if results[i].Identity.ID != "u1" || results[i].NeedsSetup {
			t.Fatalf("caller %d got unexpected result: %+v", i, results[i])
		}
	}
	if got := auth.loginCount(); got != 1 {
		t.Fatalf("login exchanges = %d, want exactly 1", got)
	}
	if got := identity.meCalls(); got != 1 {
		t.Fatalf("identity fetches = %d, want exactly 1", got)
	}
}

func TestBootstrap_ResolvedResultShortCircuits(t *testing.T) {
	tokens := &stubTokenStore{}
	auth := &stubAuthAPI{token: "tok-1"}
	identity := &stubIdentityAPI{replies: []meReply{{me: completeIdentity()}}}
	svc, _ := newBootstrap(tokens, auth, identity)

	if _, err := svc.Bootstrap(context.Background(), testInitData); err != nil {
		t.Fatalf("first bootstrap: %v", err)
	}
	if _, err := svc.Bootstrap(context.Background(), testInitData); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	if auth.loginCount() != 1 || identity.meCalls() != 1 {
		t.Fatalf("resolved result must not re-issue network calls (logins=%d, fetches=%d)",
			auth.loginCount(), identity.meCalls())
	}
}

func TestBootstrap_SharedCacheFastPath(t *testing.T) {
	tokens := &stubTokenStore{}
	auth := &stubAuthAPI{}
	identity := &stubIdentityAPI{}
	flags := NewFlagBroadcaster()
	cache := NewIdentityCache()
	cache.Set(incompleteIdentity())
	svc := NewBootstrapService(tokens, auth, identity, cache, flags, nopLogger)

	var emitted []bool
	flags.Subscribe(func(v bool) { emitted = append(emitted, v) })

	res, err := svc.Bootstrap(context.Background(), testInitData)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if !res.NeedsSetup {
		t.Fatal("incomplete profile must derive needsSetup=true")
	}
	if auth.loginCount() != 0 || identity.meCalls() != 0 {
		t.Fatal("cache hit must not touch the network")
	}
	if len(emitted) != 1 || emitted[0] != true {
		t.Fatalf("expected one broadcast of true, got %v", emitted)
	}
}

func TestBootstrap_CacheFastPathBroadcastsOnce(t *testing.T) {
	tokens := &stubTokenStore{}
	auth := &stubAuthAPI{}
	identity := &stubIdentityAPI{}
	flags := NewFlagBroadcaster()
	cache := NewIdentityCache()
	cache.Set(incompleteIdentity())
	svc := NewBootstrapService(tokens, auth, identity, cache, flags, nopLogger)

	var (
		mu    sync.Mutex
		emits int
	)
	flags.Subscribe(func(bool) {
		mu.Lock()
		emits++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Bootstrap(context.Background(), testInitData); err != nil {
				t.Errorf("bootstrap: %v", err)
			}
		}()
	}
	wg.Wait()

	if auth.loginCount() != 0 || identity.meCalls() != 0 {
		t.Fatal("cache hit must not touch the network")
	}
	mu.Lock()
	defer mu.Unlock()
	if emits != 1 {
		t.Fatalf("onboarding flag broadcast %d times, want exactly 1", emits)
	}
}

func TestBootstrap_TokenInvalidationFallback(t *testing.T) {
	tokens := &stubTokenStore{token: "stale"}
	auth := &stubAuthAPI{token: "fresh"}
	identity := &stubIdentityAPI{replies: []meReply{
		{err: &domain.APIError{Kind: domain.KindUnauthorized, Status: 401, Message: "token expired"}},
		{me: completeIdentity()},
	}}
	svc, _ := newBootstrap(tokens, auth, identity)

	res, err := svc.Bootstrap(context.Background(), testInitData)
	if err != nil {
		t.Fatalf("bootstrap must recover from a rejected stored token, got %v", err)
	}
	if res.Identity.ID != "u1" {
		t.Fatalf("unexpected identity: %+v", res.Identity)
	}
	if auth.loginCount() != 1 {
		t.Fatalf("expected exactly one login after token rejection, got %d", auth.loginCount())
	}
	token, clears := tokens.snapshot()
	if clears != 1 {
		t.Fatalf("rejected token must be cleared once, got %d clears", clears)
	}
	if token != "fresh" {
		t.Fatalf("stored token = %q, want the fresh one", token)
	}
}

func TestBootstrap_NonAuthErrorKeepsToken(t *testing.T) {
	tokens := &stubTokenStore{token: "valid"}
	auth := &stubAuthAPI{}
	netErr := &domain.APIError{Kind: domain.KindTransport, Message: "connection refused"}
	identity := &stubIdentityAPI{replies: []meReply{{err: netErr}}}
	svc, _ := newBootstrap(tokens, auth, identity)

	_, err := svc.Bootstrap(context.Background(), testInitData)
	if domain.KindOf(err) != domain.KindTransport {
		t.Fatalf("expected the transport error to propagate, got %v", err)
	}
	if auth.loginCount() != 0 {
		t.Fatal("transport failure must not trigger a login")
	}
	if token, clears := tokens.snapshot(); token != "valid" || clears != 0 {
		t.Fatalf("token must survive non-auth failures (token=%q clears=%d)", token, clears)
	}
}

func TestBootstrap_FailureIsRetryable(t *testing.T) {
	tokens := &stubTokenStore{}
	auth := &stubAuthAPI{
		token: "tok-1",
		errs:  []error{&domain.APIError{Kind: domain.KindTransport, Message: "timeout"}},
	}
	identity := &stubIdentityAPI{replies: []meReply{{me: completeIdentity()}}}
	svc, _ := newBootstrap(tokens, auth, identity)

	if _, err := svc.Bootstrap(context.Background(), testInitData); err == nil {
		t.Fatal("first attempt should fail")
	}
	res, err := svc.Bootstrap(context.Background(), testInitData)
	if err != nil {
		t.Fatalf("retry after failure must work, got %v", err)
	}
	if res.Identity.ID != "u1" {
		t.Fatalf("unexpected identity: %+v", res.Identity)
	}
	if auth.loginCount() != 2 {
		t.Fatalf("expected 2 login attempts across retry, got %d", auth.loginCount())
	}
}

func TestBootstrap_Reset(t *testing.T) {
	tokens := &stubTokenStore{}
	auth := &stubAuthAPI{token: "tok-1"}
	identity := &stubIdentityAPI{replies: []meReply{{me: completeIdentity()}}}
	svc, _ := newBootstrap(tokens, auth, identity)

	if _, err := svc.Bootstrap(context.Background(), testInitData); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if err := svc.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, ok := svc.Resolved(); ok {
		t.Fatal("reset must drop the pinned result")
	}
	if token, _ := tokens.snapshot(); token != "" {
		t.Fatal("reset must clear the stored token")
	}

	if _, err := svc.Bootstrap(context.Background(), testInitData); err != nil {
		t.Fatalf("bootstrap after reset: %v", err)
	}
	if auth.loginCount() != 2 {
		t.Fatalf("expected a fresh login after reset, got %d total", auth.loginCount())
	}
}
