package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Store is the single writer of a session snapshot. It starts loading, follows
// an IdentitySource and fetches the profile asynchronously on every change.
type Store struct {
	source   IdentitySource
	profiles ProfileFetcher
	timeout  time.Duration
	logger   zerolog.Logger

	mu         sync.RWMutex
	snapshot   Snapshot
	generation uint64
	listeners  map[uint64]func(Snapshot)
	nextID     uint64
	closed     bool

	ctx     context.Context
	cancel  context.CancelFunc
	unwatch func()
	wg      sync.WaitGroup
}

// NewStore constructs a store in the loading state. fetchTimeout bounds each
// profile fetch; zero means no bound beyond the store context.
func NewStore(source IdentitySource, profiles ProfileFetcher, fetchTimeout time.Duration, logger zerolog.Logger) *Store {
	return &Store{
		source:    source,
		profiles:  profiles,
		timeout:   fetchTimeout,
		logger:    logger.With().Str("component", "session_store").Logger(),
		snapshot:  Snapshot{Loading: true},
		listeners: make(map[uint64]func(Snapshot)),
	}
}

// Start subscribes to identity changes. It must be called once.
func (s *Store) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.unwatch = s.source.OnIdentityChange(s.handleIdentity)
}

// Close unsubscribes and waits for in-flight fetches. Identity changes and
// results arriving after Close are dropped.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if s.unwatch != nil {
		s.unwatch()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	s.generation++
	s.listeners = map[uint64]func(Snapshot){}
	s.mu.Unlock()
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Subscribe registers fn for every subsequent snapshot change.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) handleIdentity(principal *Principal) {
	// The source may still deliver after unwatch returns, so the generation
	// bump and wg.Add happen under the same lock that Close uses to stop.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.generation++
	generation := s.generation
	if principal != nil {
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if principal == nil {
		s.publish(generation, Snapshot{})
		return
	}

	s.publish(generation, Snapshot{Principal: principal, Loading: true})
	go func() {
		defer s.wg.Done()
		s.fetch(generation, principal)
	}()
}

func (s *Store) fetch(generation uint64, principal *Principal) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	profile, err := s.profiles.FetchProfile(ctx, principal.ID)
	if s.ctx.Err() != nil {
		return
	}

	next := settle(ctx, principal, profile, err)
	if next.Err != nil {
		s.logger.Error().Err(next.Err).Str("identity_id", principal.ID).Msg("profile fetch failed")
	}
	s.publish(generation, next)
}

// publish applies next only when no newer identity change has happened.
func (s *Store) publish(generation uint64, next Snapshot) {
	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		return
	}
	s.snapshot = next
	listeners := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
}
