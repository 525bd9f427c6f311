package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fixmasters/master-app/internal/api/metrics"
	"github.com/fixmasters/master-app/internal/core/domain"
	"github.com/fixmasters/master-app/internal/core/ports"
)

// AcceptOutcome disambiguates the result of an accept attempt. A 409 from the
// backend covers two different races, told apart by re-fetching and checking
// contact visibility.
type AcceptOutcome int

const (
	// AcceptOK: the order is now assigned to this master.
	AcceptOK AcceptOutcome = iota
	// AcceptAlreadyMine: the conflict was a duplicate of this master's own
	// accept (retry, second device); treat as success and stay.
	AcceptAlreadyMine
	// AcceptTaken: another master claimed the order first; the caller should
	// notify and navigate away.
	AcceptTaken
)

// OrderService coordinates fetch, optimistic transition and rollback for
// orders. All status mutations for one order are serialized, and an
// optimistic write always cancels any in-flight fetch for that order first so
// a stale response cannot clobber it.
type OrderService struct {
	api   ports.OrdersAPI
	store *OrderStore
	lists *ListIndex
	log   zerolog.Logger

	mu     sync.Mutex
	states map[string]*orderState
}

// orderState carries per-order coordination: the mutation lock and the
// bookkeeping that lets a mutation invalidate an in-flight fetch.
type orderState struct {
	mu sync.Mutex // serializes accept/advance/complete for one order

	fetchMu  sync.Mutex
	fetchGen uint64
	cancel   context.CancelFunc
}

func NewOrderService(api ports.OrdersAPI, store *OrderStore, lists *ListIndex, log zerolog.Logger) *OrderService {
	return &OrderService{
		api:    api,
		store:  store,
		lists:  lists,
		log:    log,
		states: make(map[string]*orderState),
	}
}

func (s *OrderService) Store() *OrderStore { return s.store }

func (s *OrderService) state(id string) *orderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		st = &orderState{}
		s.states[id] = st
	}
	return st
}

// beginFetch registers a cancellable fetch and returns its generation.
func (st *orderState) beginFetch(cancel context.CancelFunc) uint64 {
	st.fetchMu.Lock()
	defer st.fetchMu.Unlock()
	st.fetchGen++
	st.cancel = cancel
	return st.fetchGen
}

// current reports whether a fetch generation is still the latest, i.e. no
// mutation superseded it while the response was in flight.
func (st *orderState) current(gen uint64) bool {
	st.fetchMu.Lock()
	defer st.fetchMu.Unlock()
	return st.fetchGen == gen
}

// supersede cancels any in-flight fetch and bumps the generation so its
// response, if already on the wire, is discarded on arrival.
func (st *orderState) supersede() {
	st.fetchMu.Lock()
	defer st.fetchMu.Unlock()
	st.fetchGen++
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
}

// List queries the order feed and refreshes the list index for the scope.
func (s *OrderService) List(ctx context.Context, query ports.ListOrdersQuery) ([]domain.Order, error) {
	orders, err := s.api.List(ctx, query)
	if err != nil {
		return nil, err
	}
	s.lists.Put(query.Scope, orders)
	return orders, nil
}

// errFetchSuperseded marks a fetch whose response was outranked by a mutation
// that started while it was in flight. Not a failure: the optimistic write is
// the fresher view.
var errFetchSuperseded = errors.New("fetch superseded by mutation")

// Get returns the cached entry for the order, fetching it first. When the
// per-order cache is cold (deep link), any copy found in the list index is
// installed as a provisional placeholder before the real fetch, so the caller
// can render immediately; the fetch result replaces it. The entry carries the
// Provisional marker so callers can tell a placeholder from server truth.
func (s *OrderService) Get(ctx context.Context, id string) (OrderEntry, error) {
	st := s.state(id)

	if _, ok := s.store.Get(id); !ok {
		if seed, ok := s.lists.Find(id); ok {
			s.store.PutProvisional(id, seed)
		}
	}

	if err := s.fetch(ctx, id, st); err != nil {
		if errors.Is(err, errFetchSuperseded) {
			// A mutation's optimistic write landed after this fetch started
			// and outranks its response.
			if entry, ok := s.store.Get(id); ok {
				return entry, nil
			}
			return OrderEntry{}, domain.ErrOrderNotFound
		}
		return OrderEntry{}, err
	}

	entry, ok := s.store.Get(id)
	if !ok {
		return OrderEntry{}, domain.ErrOrderNotFound
	}
	return entry, nil
}

// fetch performs a cancellable, generation-checked authoritative fetch.
// A fetch that lost its generation to supersede() reports errFetchSuperseded
// whatever the network said; any other error is a real failure.
func (s *OrderService) fetch(ctx context.Context, id string, st *orderState) error {
	fctx, cancel := context.WithCancel(ctx)
	defer cancel()
	gen := st.beginFetch(cancel)

	o, err := s.api.Get(fctx, id)
	if !st.current(gen) {
		s.log.Debug().Str("order_id", id).Msg("stale fetch discarded")
		return errFetchSuperseded
	}
	if err != nil {
		return err
	}
	s.store.Put(id, *o)
	return nil
}

// Accept claims a PENDING order. On conflict the order is re-fetched and the
// outcome disambiguated by contact visibility.
func (s *OrderService) Accept(ctx context.Context, id string) (AcceptOutcome, error) {
	st := s.state(id)
	st.mu.Lock()
	defer st.mu.Unlock()

	err := s.api.Accept(ctx, id)
	if err == nil {
		if ferr := s.fetch(ctx, id, st); ferr != nil {
			s.log.Warn().Err(ferr).Str("order_id", id).Msg("post-accept refresh failed")
		}
		return AcceptOK, nil
	}

	if domain.KindOf(err) != domain.KindConflict {
		return 0, err
	}

	metrics.OrderConflictsTotal.WithLabelValues("accept").Inc()
	o, ferr := s.api.Get(ctx, id)
	if ferr != nil {
		return 0, ferr
	}
	st.supersede()
	s.store.Put(id, *o)

	if o.ContactsVisible() {
		s.log.Info().Str("order_id", id).Msg("accept conflict resolved as already mine")
		return AcceptAlreadyMine, nil
	}
	s.log.Info().Str("order_id", id).Msg("accept conflict: order taken by another master")
	return AcceptTaken, nil
}

// Advance requests the single next status for the order. The IN_PROGRESS to
// COMPLETED step is refused here: completion requires evidence and goes
// through Complete.
func (s *OrderService) Advance(ctx context.Context, id string) error {
	st := s.state(id)
	st.mu.Lock()
	defer st.mu.Unlock()

	entry, ok := s.store.Get(id)
	if !ok {
		return domain.ErrOrderNotFound
	}
	next, err := entry.Order.Status.Next()
	if err != nil {
		return err
	}
	if next == domain.StatusCompleted {
		return domain.ErrEvidenceRequired
	}
	return s.advanceStep(ctx, id, st)
}

// Complete uploads the evidence files and advances IN_PROGRESS to COMPLETED.
// The evidence gate trips before any network call.
func (s *OrderService) Complete(ctx context.Context, id string, files []ports.EvidenceFile) error {
	if len(files) == 0 {
		return domain.ErrEvidenceRequired
	}

	st := s.state(id)
	st.mu.Lock()
	defer st.mu.Unlock()

	entry, ok := s.store.Get(id)
	if !ok {
		return domain.ErrOrderNotFound
	}
	if entry.Order.Status != domain.StatusInProgress {
		return domain.ErrNoNextStatus
	}

	if err := s.api.UploadEvidence(ctx, id, files); err != nil {
		return err
	}
	return s.advanceStep(ctx, id, st)
}

// advanceStep runs the optimistic transition protocol for the already-locked
// order: cancel in-flight fetch, snapshot, optimistic write, network call,
// then reconcile or roll back.
func (s *OrderService) advanceStep(ctx context.Context, id string, st *orderState) error {
	st.supersede()

	entry, ok := s.store.Get(id)
	if !ok {
		return domain.ErrOrderNotFound
	}
	next, err := entry.Order.Status.Next()
	if err != nil {
		return err
	}

	// Verbatim snapshot for rollback; other writes may land between the
	// optimistic write and the response, so "current value at rollback time"
	// would be wrong.
	snapshot := entry

	optimistic := entry.Order
	optimistic.Status = next
	s.store.PutProvisional(id, optimistic)

	_, err = s.api.Advance(ctx, id)
	if err == nil {
		// The optimistic value was a placeholder; reconcile with server truth.
		if ferr := s.fetch(ctx, id, st); ferr != nil {
			s.log.Warn().Err(ferr).Str("order_id", id).Msg("post-advance refresh failed, keeping provisional status")
		}
		return nil
	}

	switch domain.KindOf(err) {
	case domain.KindForbidden:
		s.store.Restore(id, &snapshot)
		metrics.AdvanceRollbacksTotal.WithLabelValues("forbidden").Inc()
		return domain.ErrPermissionDenied
	case domain.KindConflict:
		metrics.OrderConflictsTotal.WithLabelValues("advance").Inc()
		// Another device changed the state: discard the optimistic value and
		// show whatever the server says now.
		if ferr := s.fetch(ctx, id, st); ferr != nil {
			s.store.Restore(id, &snapshot)
			return err
		}
		return domain.ErrConflictRefreshed
	default:
		s.store.Restore(id, &snapshot)
		metrics.AdvanceRollbacksTotal.WithLabelValues(domain.KindOf(err).String()).Inc()
		return err
	}
}
