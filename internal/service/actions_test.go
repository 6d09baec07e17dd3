package service

import (
	"context"
	"testing"
	"time"

	"github.com/DirkDigglerz/waracle-cat-project/internal/catapi"
	"github.com/DirkDigglerz/waracle-cat-project/internal/coalesce"
)

func debounceOptions(window time.Duration) Options {
	return Options{
		CoalescePolicy:  coalesce.Debounce,
		VoteWindow:      window,
		FavouriteWindow: window,
		RefreshWorkers:  1,
	}
}

func TestHandleVote_BurstIssuesOneRemoteCall(t *testing.T) {
	api := newFakeClient()
	svc := newTestService(t, api, throttleOptions())

	// Five rapid clicks alternating direction. Throttle fires the first one;
	// the rest only amend the optimistic batch.
	values := []catapi.VoteValue{catapi.VoteUp, catapi.VoteDown, catapi.VoteUp, catapi.VoteDown, catapi.VoteUp}
	for _, v := range values {
		if err := svc.HandleVote("u1", "abc", v); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	if submits, _, _, _ := api.counters(); submits != 1 {
		t.Errorf("Expected 1 remote call for the burst, got %d", submits)
	}

	// Every click landed in the cache; the last one is what the user sees.
	got := svc.CachedVotes("u1")
	if len(got) != 1 || got[0].Value != catapi.VoteUp {
		t.Errorf("Expected the final click's state, got %+v", got)
	}
}

func TestHandleVote_SameDirectionClickRemovesVote(t *testing.T) {
	api := newFakeClient()
	api.seedVote("u1", catapi.Vote{ID: "200", ImageID: "abc", Value: catapi.VoteUp, UserID: "u1"})
	svc := newTestService(t, api, throttleOptions())

	if _, err := svc.UserVotes(context.Background(), "u1"); err != nil {
		t.Fatalf("Failed to load votes: %v", err)
	}

	// Clicking the direction already voted withdraws the vote.
	if err := svc.HandleVote("u1", "abc", catapi.VoteUp); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, deletes, _, _ := api.counters(); deletes != 1 {
		t.Errorf("Expected a delete call, got %d", deletes)
	}
	if got := svc.CachedVotes("u1"); len(got) != 0 {
		t.Errorf("Expected the vote to be gone, got %+v", got)
	}
}

func TestHandleVote_DebounceSpeculatesBeforeSettling(t *testing.T) {
	api := newFakeClient()
	svc := newTestService(t, api, debounceOptions(time.Hour))

	if err := svc.HandleVote("u1", "abc", catapi.VoteUp); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The click is visible immediately even though nothing was sent yet.
	got := svc.CachedVotes("u1")
	if len(got) != 1 || got[0].ID != catapi.TemporaryID || got[0].Value != catapi.VoteUp {
		t.Fatalf("Expected a synchronous speculative vote, got %+v", got)
	}
	if submits, _, _, _ := api.counters(); submits != 0 {
		t.Fatalf("Debounce must not settle before the quiet window, got %d calls", submits)
	}

	// A second click flips the pending intent within the same batch.
	if err := svc.HandleVote("u1", "abc", catapi.VoteDown); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	svc.voteClicks.Flush("vote:u1:abc")

	if submits, _, _, _ := api.counters(); submits != 1 {
		t.Errorf("Expected one settle for the batch, got %d", submits)
	}
	api.mu.Lock()
	lastValue := api.lastVoteValue
	api.mu.Unlock()
	if lastValue != catapi.VoteDown {
		t.Errorf("Expected the latest intent to be sent, got %q", lastValue)
	}
}

func TestToggleFavourite_AddsThenRemoves(t *testing.T) {
	api := newFakeClient()
	svc := newTestService(t, api, throttleOptions())

	if err := svc.ToggleFavourite("u1", "abc"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got := svc.CachedFavourites("u1")
	if len(got) != 1 || got[0].ImageID != "abc" {
		t.Fatalf("Expected the favourite to appear, got %+v", got)
	}
	if got[0].ID == catapi.TemporaryID {
		t.Error("Expected the settling refetch to replace the temporary id")
	}

	// The second toggle within the window speculates the removal but the
	// network call is suppressed until its batch resolves.
	if err := svc.ToggleFavourite("u1", "abc"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := svc.CachedFavourites("u1"); len(got) != 0 {
		t.Errorf("Expected the favourite gone from the cache, got %+v", got)
	}
	if _, _, submits, deletes := api.counters(); submits != 1 || deletes != 0 {
		t.Errorf("Expected 1 submit and 0 deletes, got %d and %d", submits, deletes)
	}
}

func TestToggleFavourite_DebounceCollapsesToFinalIntent(t *testing.T) {
	api := newFakeClient()
	svc := newTestService(t, api, debounceOptions(30*time.Millisecond))

	// Three rapid toggles: favourite, unfavourite, favourite. Only the final
	// intent goes to the network.
	for i := 0; i < 3; i++ {
		if err := svc.ToggleFavourite("u1", "abc"); err != nil {
			t.Fatalf("Toggle %d failed: %v", i, err)
		}
	}

	time.Sleep(150 * time.Millisecond)

	if _, _, submits, deletes := api.counters(); submits != 1 || deletes != 0 {
		t.Errorf("Expected 1 submit and 0 deletes, got %d and %d", submits, deletes)
	}
	got := svc.CachedFavourites("u1")
	if len(got) != 1 || got[0].ImageID != "abc" {
		t.Errorf("Expected the favourite reconciled into the cache, got %+v", got)
	}
}

func TestHandleVote_SuppressedBatchReconcilesWithoutExtraMutation(t *testing.T) {
	api := newFakeClient()
	svc := newTestService(t, api, Options{
		CoalescePolicy:  coalesce.Throttle,
		VoteWindow:      20 * time.Millisecond,
		FavouriteWindow: 20 * time.Millisecond,
		RefreshWorkers:  1,
	})

	// First click settles; the second one's network call is suppressed by
	// the throttle window.
	if err := svc.HandleVote("u1", "abc", catapi.VoteUp); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := svc.HandleVote("u1", "abc", catapi.VoteDown); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The suppressed batch is disposed of after its window with a refetch
	// only; no delayed mutation fires.
	time.Sleep(150 * time.Millisecond)

	if submits, _, _, _ := api.counters(); submits != 1 {
		t.Errorf("Expected no delayed mutation, got %d submits", submits)
	}
	got := svc.CachedVotes("u1")
	if len(got) != 1 || got[0].Value != catapi.VoteUp {
		t.Errorf("Expected server truth after disposal, got %+v", got)
	}
}
