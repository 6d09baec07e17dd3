package cache

import "testing"

type entry struct {
	ID      string
	ImageID string
}

func TestStore_GetNeverNil(t *testing.T) {
	store := New[entry]()

	got := store.Get("unknown-user")
	if got == nil {
		t.Fatal("Expected empty list for unpopulated user, got nil")
	}
	if len(got) != 0 {
		t.Fatalf("Expected empty list, got %d entries", len(got))
	}
}

func TestStore_ReplaceIsFullSwap(t *testing.T) {
	store := New[entry]()

	store.Replace("u1", []entry{{ID: "1", ImageID: "img1"}, {ID: "2", ImageID: "img2"}})
	store.Replace("u1", []entry{{ID: "3", ImageID: "img3"}})

	got := store.Get("u1")
	if len(got) != 1 || got[0].ID != "3" {
		t.Fatalf("Expected list to be replaced wholesale, got %+v", got)
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store := New[entry]()
	store.Replace("u1", []entry{{ID: "1", ImageID: "img1"}})

	got := store.Get("u1")
	got[0].ID = "mutated"

	if store.Get("u1")[0].ID != "1" {
		t.Error("Mutating the returned list must not affect the store")
	}
}

func TestStore_UsersAreIndependent(t *testing.T) {
	store := New[entry]()

	store.Replace("u1", []entry{{ID: "1", ImageID: "img1"}})
	store.Replace("u2", []entry{{ID: "2", ImageID: "img2"}})

	if got := store.Get("u1"); len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("Unexpected list for u1: %+v", got)
	}
	if got := store.Get("u2"); len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("Unexpected list for u2: %+v", got)
	}
}

func TestStore_RefetchLifecycle(t *testing.T) {
	tests := []struct {
		name          string
		cancelBetween bool
		expectApplied bool
	}{
		{
			name:          "Refetch applies when nothing cancelled it",
			cancelBetween: false,
			expectApplied: true,
		},
		{
			name:          "Refetch is discarded after a cancel",
			cancelBetween: true,
			expectApplied: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := New[entry]()
			store.Replace("u1", []entry{{ID: "optimistic", ImageID: "img1"}})

			epoch := store.BeginRefetch("u1")
			if tt.cancelBetween {
				store.CancelPendingRefetch("u1")
			}

			applied := store.CompleteRefetch("u1", epoch, []entry{{ID: "server", ImageID: "img1"}})
			if applied != tt.expectApplied {
				t.Fatalf("Expected applied=%v, got %v", tt.expectApplied, applied)
			}

			got := store.Get("u1")
			if tt.expectApplied {
				if got[0].ID != "server" {
					t.Errorf("Expected server truth to land, got %+v", got)
				}
				if !store.Loaded("u1") {
					t.Error("Expected user to be marked loaded")
				}
			} else {
				if got[0].ID != "optimistic" {
					t.Errorf("Expected optimistic state to survive a stale refetch, got %+v", got)
				}
				if store.Loaded("u1") {
					t.Error("A suppressed refetch must not mark the user loaded")
				}
			}
		})
	}
}

func TestStore_LaterEpochWins(t *testing.T) {
	store := New[entry]()

	staleEpoch := store.BeginRefetch("u1")
	store.CancelPendingRefetch("u1")
	freshEpoch := store.BeginRefetch("u1")

	if !store.CompleteRefetch("u1", freshEpoch, []entry{{ID: "fresh", ImageID: "img1"}}) {
		t.Fatal("Fresh refetch should apply")
	}
	if store.CompleteRefetch("u1", staleEpoch, []entry{{ID: "stale", ImageID: "img1"}}) {
		t.Fatal("Stale refetch should be discarded")
	}

	if got := store.Get("u1"); got[0].ID != "fresh" {
		t.Errorf("Expected fresh result to be kept, got %+v", got)
	}
}
