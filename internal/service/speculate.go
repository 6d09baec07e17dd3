package service

import "github.com/DirkDigglerz/waracle-cat-project/internal/catapi"

// Speculative list transforms. Each one computes a full new list from the
// previous one; the coordinator swaps it in atomically.

// applyVote replaces an existing vote's value in place, preserving list
// order, or appends a new entry under the temporary id. This keeps the
// at-most-one-vote-per-image invariant in the cache.
func applyVote(prev []catapi.Vote, userID, imageID string, value catapi.VoteValue) []catapi.Vote {
	next := make([]catapi.Vote, len(prev))
	copy(next, prev)
	for i := range next {
		if next[i].ImageID == imageID {
			next[i].Value = value
			return next
		}
	}
	return append(next, catapi.Vote{
		ID:      catapi.TemporaryID,
		ImageID: imageID,
		Value:   value,
		UserID:  userID,
	})
}

// removeVoteEntry filters out the vote for the image
func removeVoteEntry(prev []catapi.Vote, imageID string) []catapi.Vote {
	next := make([]catapi.Vote, 0, len(prev))
	for _, v := range prev {
		if v.ImageID != imageID {
			next = append(next, v)
		}
	}
	return next
}

// applyFavourite appends a speculative favourite under the temporary id. A
// duplicate may transiently exist until the settling refetch reconciles.
func applyFavourite(prev []catapi.Favourite, imageID string) []catapi.Favourite {
	next := make([]catapi.Favourite, len(prev), len(prev)+1)
	copy(next, prev)
	return append(next, catapi.Favourite{
		ID:      catapi.TemporaryID,
		ImageID: imageID,
	})
}

// removeFavouriteEntry filters out the favourite with the given id
func removeFavouriteEntry(prev []catapi.Favourite, favouriteID string) []catapi.Favourite {
	next := make([]catapi.Favourite, 0, len(prev))
	for _, f := range prev {
		if f.ID != favouriteID {
			next = append(next, f)
		}
	}
	return next
}
