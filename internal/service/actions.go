package service

import (
	"context"
	"sync"
	"time"

	"github.com/DirkDigglerz/waracle-cat-project/internal/catapi"
	"github.com/DirkDigglerz/waracle-cat-project/internal/mutation"
)

// Click handlers for the gallery UI. Every click updates the reflected cache
// synchronously; the network mutation is coalesced per (action-kind, user,
// image) so a burst of clicks issues at most one remote call per window.
//
// A batch collects the clicks of one coalescing window: the first click
// stages the optimistic write (taking the rollback snapshot), later clicks
// amend it, and the coalescer decides when the batch settles. A batch whose
// network call was suppressed entirely is disposed of with a reconciling
// refetch once its window has passed.

type clickState struct {
	mu          sync.Mutex
	voteBatches map[string]*voteBatch
	favBatches  map[string]*favouriteBatch
}

func newClickState() *clickState {
	return &clickState{
		voteBatches: make(map[string]*voteBatch),
		favBatches:  make(map[string]*favouriteBatch),
	}
}

type voteBatch struct {
	staged   *mutation.Staged[catapi.Vote]
	userID   string
	imageID  string
	remove   bool
	value    catapi.VoteValue
	disposal *time.Timer
}

type favouriteBatch struct {
	staged      *mutation.Staged[catapi.Favourite]
	userID      string
	imageID     string
	unfavourite bool
	favouriteID string
	disposal    *time.Timer
}

// HandleVote is the click entry point for the vote controls. Clicking the
// direction the user already voted means "remove my vote", not "vote again";
// that branch is decided against the cached value before any coalescing.
func (s *CatService) HandleVote(userID, imageID string, value catapi.VoteValue) error {
	if err := requireIDs(userID, imageID); err != nil {
		return err
	}
	if err := requireVoteValue(value); err != nil {
		return err
	}

	if current, ok := s.currentVoteValue(userID, imageID); ok && current == value {
		s.clickRemoveVote(userID, imageID)
		return nil
	}
	s.clickVote(userID, imageID, value)
	return nil
}

// ToggleFavourite is the click entry point for the favourite control. The
// direction is decided against the cached favourite list at click time.
func (s *CatService) ToggleFavourite(userID, imageID string) error {
	if err := requireIDs(userID, imageID); err != nil {
		return err
	}

	key := "favourite-toggle:" + userID + ":" + imageID
	fav, favourited := s.currentFavourite(userID, imageID)

	cs := s.clickState
	cs.mu.Lock()
	b := cs.favBatches[key]
	if b == nil {
		b = &favouriteBatch{userID: userID, imageID: imageID}
		b.disposal = time.AfterFunc(2*s.favouriteWindow, func() { s.disposeFavouriteBatch(key) })
		cs.favBatches[key] = b
	} else {
		b.disposal.Reset(2 * s.favouriteWindow)
	}
	b.unfavourite = favourited
	b.favouriteID = fav.ID
	if favourited {
		speculate := func(prev []catapi.Favourite) []catapi.Favourite { return removeFavouriteEntry(prev, fav.ID) }
		if b.staged == nil {
			b.staged = s.favCoordinator.Stage(userID, "unfavourite", speculate)
		} else {
			b.staged.Amend(speculate)
		}
	} else {
		speculate := func(prev []catapi.Favourite) []catapi.Favourite { return applyFavourite(prev, imageID) }
		if b.staged == nil {
			b.staged = s.favCoordinator.Stage(userID, "favourite", speculate)
		} else {
			b.staged.Amend(speculate)
		}
	}
	cs.mu.Unlock()

	s.favClicks.Trigger(key, func() { s.settleFavouriteBatch(key) })
	return nil
}

func (s *CatService) clickVote(userID, imageID string, value catapi.VoteValue) {
	key := "vote:" + userID + ":" + imageID
	speculate := func(prev []catapi.Vote) []catapi.Vote { return applyVote(prev, userID, imageID, value) }

	cs := s.clickState
	cs.mu.Lock()
	b := cs.voteBatches[key]
	if b == nil {
		b = &voteBatch{userID: userID, imageID: imageID, value: value}
		b.staged = s.voteCoordinator.Stage(userID, "vote", speculate)
		b.disposal = time.AfterFunc(2*s.voteWindow, func() { s.disposeVoteBatch(key) })
		cs.voteBatches[key] = b
	} else {
		b.value = value
		b.staged.Amend(speculate)
		b.disposal.Reset(2 * s.voteWindow)
	}
	cs.mu.Unlock()

	s.voteClicks.Trigger(key, func() { s.settleVoteBatch(key) })
}

func (s *CatService) clickRemoveVote(userID, imageID string) {
	key := "remove-vote:" + userID + ":" + imageID
	speculate := func(prev []catapi.Vote) []catapi.Vote { return removeVoteEntry(prev, imageID) }

	cs := s.clickState
	cs.mu.Lock()
	b := cs.voteBatches[key]
	if b == nil {
		b = &voteBatch{userID: userID, imageID: imageID, remove: true}
		b.staged = s.voteCoordinator.Stage(userID, "remove_vote", speculate)
		b.disposal = time.AfterFunc(2*s.voteWindow, func() { s.disposeVoteBatch(key) })
		cs.voteBatches[key] = b
	} else {
		b.staged.Amend(speculate)
		b.disposal.Reset(2 * s.voteWindow)
	}
	cs.mu.Unlock()

	s.voteClicks.Trigger(key, func() { s.settleVoteBatch(key) })
}

// settleVoteBatch sends the batch's latest intent and completes the
// optimistic protocol for the whole batch.
func (s *CatService) settleVoteBatch(key string) {
	b := s.takeVoteBatch(key)
	if b == nil {
		return
	}
	s.runAsync(func() {
		_ = b.staged.Settle(context.Background(), func(ctx context.Context) error {
			if b.remove {
				_, err := s.api.DeleteVote(ctx, b.userID, b.imageID)
				return err
			}
			_, err := s.api.SubmitVote(ctx, b.userID, b.imageID, b.value)
			return err
		})
	})
}

func (s *CatService) settleFavouriteBatch(key string) {
	cs := s.clickState
	cs.mu.Lock()
	b := cs.favBatches[key]
	delete(cs.favBatches, key)
	cs.mu.Unlock()
	if b == nil {
		return
	}
	b.disposal.Stop()

	s.runAsync(func() {
		_ = b.staged.Settle(context.Background(), func(ctx context.Context) error {
			if b.unfavourite {
				return s.api.DeleteFavourite(ctx, b.favouriteID)
			}
			_, err := s.api.SubmitFavourite(ctx, b.userID, b.imageID)
			return err
		})
	})
}

// disposeVoteBatch reconciles a batch whose network call was suppressed by
// the coalescer: the optimistic state stays visible until server truth
// replaces it.
func (s *CatService) disposeVoteBatch(key string) {
	b := s.takeVoteBatch(key)
	if b == nil {
		return
	}
	s.runAsync(func() { s.refreshVotes(b.userID) })
}

func (s *CatService) disposeFavouriteBatch(key string) {
	cs := s.clickState
	cs.mu.Lock()
	b := cs.favBatches[key]
	delete(cs.favBatches, key)
	cs.mu.Unlock()
	if b == nil {
		return
	}
	s.runAsync(func() { s.refreshFavourites(b.userID) })
}

func (s *CatService) takeVoteBatch(key string) *voteBatch {
	cs := s.clickState
	cs.mu.Lock()
	b := cs.voteBatches[key]
	delete(cs.voteBatches, key)
	cs.mu.Unlock()
	if b != nil {
		b.disposal.Stop()
	}
	return b
}

func (s *CatService) currentVoteValue(userID, imageID string) (catapi.VoteValue, bool) {
	for _, v := range s.votes.Get(userID) {
		if v.ImageID == imageID {
			return v.Value, true
		}
	}
	return "", false
}

func (s *CatService) currentFavourite(userID, imageID string) (catapi.Favourite, bool) {
	for _, f := range s.favourites.Get(userID) {
		if f.ImageID == imageID {
			return f, true
		}
	}
	return catapi.Favourite{}, false
}
