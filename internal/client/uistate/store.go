package uistate

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/xplit/internal/client/repositories/kv"
	"github.com/dmitrijs2005/xplit/internal/logging"
)

// Listener is called with the new state after every change.
type Listener func(State)

// Store owns the UI state. Writes are last-write-wins per field; listeners
// run synchronously on the writer's goroutine, outside the lock.
type Store struct {
	repo kv.Repository
	log  logging.Logger

	// persistMu orders snapshot writes; each write stores the latest state.
	persistMu sync.Mutex

	mu        sync.Mutex
	state     State
	listeners map[uint64]Listener
	nextID    uint64
}

// New returns a Store with default state and no persistence.
func New(log logging.Logger) *Store {
	return &Store{log: log, state: Defaults(), listeners: make(map[uint64]Listener)}
}

// Open loads the persisted snapshot from repo, migrating it forward when it
// was written by an older build. Unreadable or future snapshots fall back to
// defaults with a warning; only repository failures are returned.
func Open(ctx context.Context, repo kv.Repository, log logging.Logger) (*Store, error) {
	s := New(log)
	s.repo = repo

	raw, err := repo.Get(ctx, SnapshotKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return s, nil
	}

	st, migrated, err := decodeSnapshot(raw)
	if err != nil {
		var fv *FutureVersionError
		if errors.As(err, &fv) {
			log.Warn(ctx, "ui snapshot from a newer version, using defaults", "version", fv.Version)
		} else {
			log.Warn(ctx, "ui snapshot unreadable, using defaults", "error", err)
		}
		return s, nil
	}
	s.state = st

	if migrated {
		log.Info(ctx, "ui snapshot migrated", "to", CurrentVersion)
		s.persist(ctx)
	}
	return s, nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers l and returns the function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) SetTheme(ctx context.Context, t Theme) {
	t = normalizeTheme(t)
	s.update(ctx, true, func(st *State) { st.Theme = t })
}

func (s *Store) SetOnboardingDone(ctx context.Context, v bool) {
	s.update(ctx, true, func(st *State) { st.OnboardingDone = v })
}

func (s *Store) SetAuthenticated(ctx context.Context, v bool) {
	s.update(ctx, true, func(st *State) { st.IsAuthenticated = v })
}

func (s *Store) SetCurrentTab(ctx context.Context, tab string) {
	if tab == "" {
		tab = DefaultTab
	}
	s.update(ctx, true, func(st *State) { st.CurrentTab = tab })
}

// SetEmailPendingVerification records the address awaiting confirmation;
// an empty string clears it.
func (s *Store) SetEmailPendingVerification(ctx context.Context, email string) {
	s.update(ctx, true, func(st *State) { st.EmailPendingVerification = email })
}

func (s *Store) SetAuthResolving(ctx context.Context, v bool) {
	s.update(ctx, false, func(st *State) { st.AuthResolving = v })
}

func (s *Store) SetProfileExists(ctx context.Context, p ProfileStatus) {
	s.update(ctx, false, func(st *State) { st.ProfileExists = p })
}

// ClearAuth resets everything derived from the signed-in identity.
func (s *Store) ClearAuth(ctx context.Context) {
	s.update(ctx, true, func(st *State) {
		st.IsAuthenticated = false
		st.ProfileExists = ProfileUnknown
		st.EmailPendingVerification = ""
		st.CurrentTab = DefaultTab
	})
}

// update applies fn and, if anything changed, persists (when durable) and
// notifies listeners.
func (s *Store) update(ctx context.Context, durable bool, fn func(*State)) {
	s.mu.Lock()
	before := s.state
	fn(&s.state)
	after := s.state
	if after == before {
		s.mu.Unlock()
		return
	}
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	if durable {
		s.persist(ctx)
	}
	for _, l := range listeners {
		l(after)
	}
}

func (s *Store) persist(ctx context.Context) {
	if s.repo == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	b, err := encodeSnapshot(s.Snapshot())
	if err == nil {
		err = s.repo.Set(ctx, SnapshotKey, b)
	}
	if err != nil {
		s.log.Warn(ctx, "failed to persist ui snapshot", "error", err)
	}
}
