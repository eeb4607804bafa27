package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/session"
)

type manualSource struct {
	mu sync.Mutex
	fn func(*session.Principal)
}

func (m *manualSource) OnIdentityChange(fn func(*session.Principal)) func() {
	m.mu.Lock()
	m.fn = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.fn = nil
		m.mu.Unlock()
	}
}

func (m *manualSource) emit(p *session.Principal) {
	m.mu.Lock()
	fn := m.fn
	m.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

type gatedFetcher struct {
	release chan struct{}
	profile models.Profile
	err     error
}

func (g *gatedFetcher) FetchProfile(ctx context.Context, _ string) (models.Profile, error) {
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.profile, g.err
}

func waitFor(t *testing.T, store *session.Store, state session.State) session.Snapshot {
	t.Helper()
	var snapshot session.Snapshot
	require.Eventually(t, func() bool {
		snapshot = store.Snapshot()
		return snapshot.State() == state
	}, time.Second, 5*time.Millisecond)
	return snapshot
}

func TestStoreStartsLoading(t *testing.T) {
	store := session.NewStore(&manualSource{}, &gatedFetcher{}, 0, zerolog.Nop())
	snapshot := store.Snapshot()
	require.True(t, snapshot.Loading)
	require.Nil(t, snapshot.Principal)
	require.Nil(t, snapshot.Profile)
}

func TestStoreResolvesProfileAfterIdentityChange(t *testing.T) {
	source := &manualSource{}
	fetcher := &gatedFetcher{
		release: make(chan struct{}),
		profile: models.AdminProfile{ProfileBase: models.ProfileBase{ID: "u1"}},
	}
	store := session.NewStore(source, fetcher, 0, zerolog.Nop())
	store.Start(context.Background())
	defer store.Close()

	source.emit(&session.Principal{ID: "u1"})
	loading := store.Snapshot()
	require.True(t, loading.Loading)
	require.NotNil(t, loading.Principal)

	close(fetcher.release)
	resolved := waitFor(t, store, session.StateAuthenticated)
	require.Equal(t, models.RoleAdmin, resolved.Profile.Role())
}

func TestStoreSignOutClearsEverything(t *testing.T) {
	source := &manualSource{}
	store := session.NewStore(source, &gatedFetcher{}, 0, zerolog.Nop())
	store.Start(context.Background())
	defer store.Close()

	var seen []session.State
	var mu sync.Mutex
	store.Subscribe(func(s session.Snapshot) {
		mu.Lock()
		seen = append(seen, s.State())
		mu.Unlock()
	})

	source.emit(nil)
	snapshot := store.Snapshot()
	require.False(t, snapshot.Loading)
	require.Nil(t, snapshot.Principal)
	require.Nil(t, snapshot.Profile)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []session.State{session.StateUnauthenticated}, seen)
}

func TestStoreNotFoundResolvesWithoutProfile(t *testing.T) {
	source := &manualSource{}
	store := session.NewStore(source, &gatedFetcher{err: session.ErrProfileNotFound}, 0, zerolog.Nop())
	store.Start(context.Background())
	defer store.Close()

	source.emit(&session.Principal{ID: "deleted"})
	snapshot := waitFor(t, store, session.StateAuthenticated)
	require.Nil(t, snapshot.Profile)
	require.NoError(t, snapshot.Err)
}

func TestStoreServiceErrorIsDistinguishable(t *testing.T) {
	source := &manualSource{}
	store := session.NewStore(source, &gatedFetcher{err: errors.New("unavailable")}, 0, zerolog.Nop())
	store.Start(context.Background())
	defer store.Close()

	source.emit(&session.Principal{ID: "u1"})
	snapshot := waitFor(t, store, session.StateError)
	require.Error(t, snapshot.Err)
	require.Nil(t, snapshot.Profile)
}

func TestStoreFetchTimeoutStaysLoading(t *testing.T) {
	source := &manualSource{}
	fetcher := &gatedFetcher{release: make(chan struct{})}
	store := session.NewStore(source, fetcher, 20*time.Millisecond, zerolog.Nop())
	store.Start(context.Background())
	defer store.Close()

	source.emit(&session.Principal{ID: "u1"})
	time.Sleep(60 * time.Millisecond)
	require.True(t, store.Snapshot().Loading)
}

func TestStoreDropsStaleFetchResults(t *testing.T) {
	source := &manualSource{}
	fetcher := &gatedFetcher{
		release: make(chan struct{}),
		profile: models.AdminProfile{ProfileBase: models.ProfileBase{ID: "u1"}},
	}
	store := session.NewStore(source, fetcher, 0, zerolog.Nop())
	store.Start(context.Background())
	defer store.Close()

	source.emit(&session.Principal{ID: "u1"})
	source.emit(nil)
	close(fetcher.release)

	time.Sleep(30 * time.Millisecond)
	snapshot := store.Snapshot()
	require.Nil(t, snapshot.Principal)
	require.Nil(t, snapshot.Profile)
}

// lingeringSource keeps delivering after unwatch, like a watcher goroutine
// that has not yet seen its cancellation.
type lingeringSource struct {
	mu sync.Mutex
	fn func(*session.Principal)
}

func (l *lingeringSource) OnIdentityChange(fn func(*session.Principal)) func() {
	l.mu.Lock()
	l.fn = fn
	l.mu.Unlock()
	return func() {}
}

func (l *lingeringSource) emit(p *session.Principal) {
	l.mu.Lock()
	fn := l.fn
	l.mu.Unlock()
	fn(p)
}

func TestStoreIgnoresIdentityChangesDuringAndAfterClose(t *testing.T) {
	source := &lingeringSource{}
	fetcher := &gatedFetcher{profile: models.AdminProfile{ProfileBase: models.ProfileBase{ID: "u1"}}}
	store := session.NewStore(source, fetcher, 0, zerolog.Nop())
	store.Start(context.Background())

	var calls atomic.Int32
	store.Subscribe(func(session.Snapshot) { calls.Add(1) })

	var emitters sync.WaitGroup
	emitters.Add(1)
	go func() {
		defer emitters.Done()
		for i := 0; i < 200; i++ {
			source.emit(&session.Principal{ID: "u1"})
		}
	}()

	store.Close()
	emitters.Wait()

	before := store.Snapshot()
	seen := calls.Load()
	source.emit(&session.Principal{ID: "u2"})
	source.emit(nil)
	time.Sleep(20 * time.Millisecond)

	require.Equal(t, seen, calls.Load())
	require.Equal(t, before, store.Snapshot())
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, session.StateUnauthenticated, session.Resolve(ctx, nil, &gatedFetcher{}).State())

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	snapshot := session.Resolve(canceled, &session.Principal{ID: "u1"}, &gatedFetcher{release: make(chan struct{})})
	require.True(t, snapshot.Loading)

	unknownRole := session.Resolve(ctx, &session.Principal{ID: "u1"}, &gatedFetcher{err: models.ErrUnknownRole})
	require.Nil(t, unknownRole.Profile)
	require.NoError(t, unknownRole.Err)
}
