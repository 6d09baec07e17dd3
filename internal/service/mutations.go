package service

import (
	"context"

	"github.com/DirkDigglerz/waracle-cat-project/internal/catapi"
)

// Mutation types for the direct (uncoalesced) write paths. Each pairs a
// speculative list transform with its remote call.

type voteMutation struct {
	api     catapi.Client
	userID  string
	imageID string
	value   catapi.VoteValue
}

func (m *voteMutation) Action() string { return "vote" }

func (m *voteMutation) ApplyLocally(prev []catapi.Vote) []catapi.Vote {
	return applyVote(prev, m.userID, m.imageID, m.value)
}

func (m *voteMutation) ApplyRemotely(ctx context.Context) error {
	_, err := m.api.SubmitVote(ctx, m.userID, m.imageID, m.value)
	return err
}

type removeVoteMutation struct {
	api     catapi.Client
	userID  string
	imageID string
}

func (m *removeVoteMutation) Action() string { return "remove_vote" }

func (m *removeVoteMutation) ApplyLocally(prev []catapi.Vote) []catapi.Vote {
	return removeVoteEntry(prev, m.imageID)
}

func (m *removeVoteMutation) ApplyRemotely(ctx context.Context) error {
	_, err := m.api.DeleteVote(ctx, m.userID, m.imageID)
	return err
}

type favouriteMutation struct {
	api     catapi.Client
	userID  string
	imageID string
}

func (m *favouriteMutation) Action() string { return "favourite" }

func (m *favouriteMutation) ApplyLocally(prev []catapi.Favourite) []catapi.Favourite {
	return applyFavourite(prev, m.imageID)
}

func (m *favouriteMutation) ApplyRemotely(ctx context.Context) error {
	_, err := m.api.SubmitFavourite(ctx, m.userID, m.imageID)
	return err
}

type unfavouriteMutation struct {
	api         catapi.Client
	favouriteID string
}

func (m *unfavouriteMutation) Action() string { return "unfavourite" }

func (m *unfavouriteMutation) ApplyLocally(prev []catapi.Favourite) []catapi.Favourite {
	return removeFavouriteEntry(prev, m.favouriteID)
}

func (m *unfavouriteMutation) ApplyRemotely(ctx context.Context) error {
	return m.api.DeleteFavourite(ctx, m.favouriteID)
}
