package mutation

import (
	"context"
	"sync"
	"time"

	"github.com/DirkDigglerz/waracle-cat-project/internal/cache"
	"github.com/DirkDigglerz/waracle-cat-project/internal/observer"
)

// Mutation describes one optimistic write against a user's cached list:
// a speculative local transform applied before the network resolves, and the
// remote call that makes it real.
type Mutation[T any] interface {
	// Action names the mutation kind for events and logs
	Action() string
	// ApplyLocally computes the speculative list from the previous list
	ApplyLocally(prev []T) []T
	// ApplyRemotely performs the remote write
	ApplyRemotely(ctx context.Context) error
}

// Refresher reconciles a user's cached list with server truth after a
// mutation settles. Implementations are expected to run asynchronously.
type Refresher interface {
	Refresh(userID string)
}

// Coordinator wraps every write in the five-phase optimistic protocol:
// cancel pending refetches, snapshot the cache, apply the speculative write,
// invoke the remote call, then settle — rolling the cache back to the exact
// snapshot on failure and triggering a reconciling refetch either way.
//
// A per-user lock makes cancel+snapshot+speculate an uninterruptible unit and
// serializes same-user mutations, so a later rollback can never overwrite an
// earlier speculative write out of order. Different users never contend.
type Coordinator[T any] struct {
	store     *cache.Store[T]
	refresher Refresher
	publisher observer.Subject

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a coordinator over the given store. refresher and publisher may
// be nil; a nil refresher skips reconciliation (tests), a nil publisher skips
// events.
func New[T any](store *cache.Store[T], refresher Refresher, publisher observer.Subject) *Coordinator[T] {
	return &Coordinator[T]{
		store:     store,
		refresher: refresher,
		publisher: publisher,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Mutate runs the whole protocol for one mutation. The returned error is the
// adapter's tagged outcome, untouched; the cache is consistent on every path.
func (c *Coordinator[T]) Mutate(ctx context.Context, userID string, m Mutation[T]) error {
	lock := c.userLock(userID)
	lock.Lock()

	c.store.CancelPendingRefetch(userID)
	snapshot := c.store.Get(userID)
	c.store.Replace(userID, m.ApplyLocally(snapshot))
	c.publish(ctx, observer.MutationEvent{
		EventType: observer.MutationSpeculated,
		Timestamp: time.Now(),
		UserID:    userID,
		Action:    m.Action(),
		Success:   true,
	})

	started := time.Now()
	err := m.ApplyRemotely(ctx)
	if err != nil {
		// Full overwrite with the snapshot; the speculative list is
		// discarded entirely, never partially merged.
		c.store.Replace(userID, snapshot)
	}
	lock.Unlock()

	c.settled(ctx, userID, m.Action(), started, err)
	return err
}

// Stage runs phases one to three and hands back the snapshot for a deferred
// settle. It exists for coalesced click streams, where every click must
// update the cache synchronously while the network call is batched.
func (c *Coordinator[T]) Stage(userID, action string, speculate func(prev []T) []T) *Staged[T] {
	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	c.store.CancelPendingRefetch(userID)
	snapshot := c.store.Get(userID)
	c.store.Replace(userID, speculate(snapshot))
	c.publish(context.Background(), observer.MutationEvent{
		EventType: observer.MutationSpeculated,
		Timestamp: time.Now(),
		UserID:    userID,
		Action:    action,
		Success:   true,
	})

	return &Staged[T]{
		coordinator: c,
		userID:      userID,
		action:      action,
		snapshot:    snapshot,
	}
}

// Staged is an open optimistic batch: one or more speculative writes that
// will settle against a single remote call. The snapshot predates the first
// write of the batch, so a rollback undoes the whole batch.
type Staged[T any] struct {
	coordinator *Coordinator[T]
	userID      string
	action      string
	snapshot    []T
}

// Amend applies a further speculative write within the same batch, keeping
// the original rollback snapshot.
func (st *Staged[T]) Amend(speculate func(prev []T) []T) {
	c := st.coordinator
	lock := c.userLock(st.userID)
	lock.Lock()
	defer lock.Unlock()

	c.store.CancelPendingRefetch(st.userID)
	c.store.Replace(st.userID, speculate(c.store.Get(st.userID)))
}

// Settle invokes the remote call and finishes the protocol: rollback to the
// batch snapshot on failure, reconciling refetch on every outcome.
func (st *Staged[T]) Settle(ctx context.Context, invoke func(ctx context.Context) error) error {
	c := st.coordinator
	started := time.Now()

	err := invoke(ctx)
	if err != nil {
		lock := c.userLock(st.userID)
		lock.Lock()
		c.store.Replace(st.userID, st.snapshot)
		lock.Unlock()
	}

	c.settled(ctx, st.userID, st.action, started, err)
	return err
}

// settled triggers the reconciling refetch and publishes the outcome
func (c *Coordinator[T]) settled(ctx context.Context, userID, action string, started time.Time, err error) {
	if c.refresher != nil {
		c.refresher.Refresh(userID)
	}

	event := observer.MutationEvent{
		Timestamp: time.Now(),
		UserID:    userID,
		Action:    action,
		Duration:  time.Since(started),
	}
	if err != nil {
		event.EventType = observer.MutationRolledBack
		event.ErrorMessage = err.Error()
	} else {
		event.EventType = observer.MutationSucceeded
		event.Success = true
	}
	c.publish(ctx, event)
}

func (c *Coordinator[T]) publish(ctx context.Context, event observer.MutationEvent) {
	if c.publisher != nil {
		c.publisher.NotifyObservers(ctx, event)
	}
}

func (c *Coordinator[T]) userLock(userID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[userID] = lock
	}
	return lock
}
