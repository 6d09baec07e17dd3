package cache

import "sync"

// Store is the local reflected cache: the last-known list of domain entries
// per userID, independent from the server's actual state. Lists are only ever
// replaced whole, which keeps the coordinator's rollback contract a single
// list swap rather than a diff-and-patch.
//
// Refetch suppression works through per-user epochs. A background refetch
// records the epoch when it starts; CancelPendingRefetch bumps the epoch, so
// the stale result is discarded when the refetch tries to land. This is
// best-effort suppression: a refetch that completed before the cancel has
// already applied, and the coordinator's settling refetch reconciles that.
type Store[T any] struct {
	mu     sync.Mutex
	lists  map[string][]T
	epochs map[string]uint64
	loaded map[string]bool
}

// New creates an empty store
func New[T any]() *Store[T] {
	return &Store[T]{
		lists:  make(map[string][]T),
		epochs: make(map[string]uint64),
		loaded: make(map[string]bool),
	}
}

// Get returns a copy of the user's list. Never nil, even for users that were
// never populated.
func (s *Store[T]) Get(userID string) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyList(s.lists[userID])
}

// Replace swaps the user's list wholesale. Used for speculative writes and
// for rollbacks.
func (s *Store[T]) Replace(userID string, list []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[userID] = copyList(list)
}

// CancelPendingRefetch invalidates every refetch currently in flight for the
// user so a stale server response cannot clobber an optimistic write.
func (s *Store[T]) CancelPendingRefetch(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epochs[userID]++
}

// BeginRefetch marks the start of a refetch and returns the epoch the result
// must present to CompleteRefetch.
func (s *Store[T]) BeginRefetch(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epochs[userID]
}

// CompleteRefetch applies server truth fetched under the given epoch. It
// reports false, leaving the cache untouched, when the refetch was cancelled
// after it began.
func (s *Store[T]) CompleteRefetch(userID string, epoch uint64, list []T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epochs[userID] != epoch {
		return false
	}
	s.lists[userID] = copyList(list)
	s.loaded[userID] = true
	return true
}

// Loaded reports whether server truth has ever been applied for the user
func (s *Store[T]) Loaded(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded[userID]
}

func copyList[T any](list []T) []T {
	out := make([]T, len(list))
	copy(out, list)
	return out
}
