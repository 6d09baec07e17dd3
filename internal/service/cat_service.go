package service

import (
	"context"
	"io"
	"time"

	"github.com/DirkDigglerz/waracle-cat-project/internal/cache"
	"github.com/DirkDigglerz/waracle-cat-project/internal/catapi"
	"github.com/DirkDigglerz/waracle-cat-project/internal/coalesce"
	apperrors "github.com/DirkDigglerz/waracle-cat-project/internal/errors"
	"github.com/DirkDigglerz/waracle-cat-project/internal/logger"
	"github.com/DirkDigglerz/waracle-cat-project/internal/mutation"
	"github.com/DirkDigglerz/waracle-cat-project/internal/observer"
	"github.com/sirupsen/logrus"
)

// Options configures the gallery service
type Options struct {
	// Coalescing of rapid repeated clicks
	CoalescePolicy  coalesce.Policy
	VoteWindow      time.Duration
	FavouriteWindow time.Duration

	// Background reconciliation
	RefreshWorkers int

	// Optional mutation lifecycle events
	Publisher observer.Subject
}

// DefaultOptions returns production defaults. The windows match the observed
// click behaviour: 300ms for votes, 250ms for favourite toggles.
func DefaultOptions() Options {
	return Options{
		CoalescePolicy:  coalesce.Throttle,
		VoteWindow:      300 * time.Millisecond,
		FavouriteWindow: 250 * time.Millisecond,
		RefreshWorkers:  4,
	}
}

// CatService owns the reflected vote/favourite caches and wraps every write
// in the optimistic mutation protocol. It is the only component that touches
// the caches; handlers go through it exclusively.
type CatService struct {
	api        catapi.Client
	votes      *cache.Store[catapi.Vote]
	favourites *cache.Store[catapi.Favourite]

	voteCoordinator *mutation.Coordinator[catapi.Vote]
	favCoordinator  *mutation.Coordinator[catapi.Favourite]

	voteClicks *coalesce.Coalescer
	favClicks  *coalesce.Coalescer
	clickState *clickState

	pool      *refreshPool
	publisher observer.Subject

	voteWindow      time.Duration
	favouriteWindow time.Duration

	// runAsync dispatches settle and refresh work; tests replace it with an
	// inline call to settle deterministically.
	runAsync func(func())
}

// NewCatService creates the gallery service over the given remote adapter
func NewCatService(api catapi.Client, opts Options) *CatService {
	s := &CatService{
		api:        api,
		votes:      cache.New[catapi.Vote](),
		favourites: cache.New[catapi.Favourite](),
		voteClicks: coalesce.New(opts.CoalescePolicy, opts.VoteWindow),
		favClicks:  coalesce.New(opts.CoalescePolicy, opts.FavouriteWindow),
		clickState: newClickState(),
		pool:       newRefreshPool(opts.RefreshWorkers),
		publisher:  opts.Publisher,

		voteWindow:      opts.VoteWindow,
		favouriteWindow: opts.FavouriteWindow,
	}
	s.runAsync = s.pool.Submit
	s.voteCoordinator = mutation.New(s.votes, voteRefresher{s}, opts.Publisher)
	s.favCoordinator = mutation.New(s.favourites, favouriteRefresher{s}, opts.Publisher)
	s.pool.Start()
	return s
}

// Close flushes pending coalesced mutations and stops background workers
func (s *CatService) Close() {
	s.voteClicks.FlushAll()
	s.favClicks.FlushAll()
	s.voteClicks.Stop()
	s.favClicks.Stop()
	s.pool.Close()
}

// VoteCat submits a vote through the full optimistic protocol
func (s *CatService) VoteCat(ctx context.Context, userID, imageID string, value catapi.VoteValue) error {
	if err := requireIDs(userID, imageID); err != nil {
		return err
	}
	if err := requireVoteValue(value); err != nil {
		return err
	}
	return s.voteCoordinator.Mutate(ctx, userID, &voteMutation{
		api: s.api, userID: userID, imageID: imageID, value: value,
	})
}

// RemoveVote withdraws the user's vote on an image
func (s *CatService) RemoveVote(ctx context.Context, userID, imageID string) error {
	if err := requireIDs(userID, imageID); err != nil {
		return err
	}
	return s.voteCoordinator.Mutate(ctx, userID, &removeVoteMutation{
		api: s.api, userID: userID, imageID: imageID,
	})
}

// FavouriteCat bookmarks an image
func (s *CatService) FavouriteCat(ctx context.Context, userID, imageID string) error {
	if err := requireIDs(userID, imageID); err != nil {
		return err
	}
	return s.favCoordinator.Mutate(ctx, userID, &favouriteMutation{
		api: s.api, userID: userID, imageID: imageID,
	})
}

// UnfavouriteCat removes a favourite by its id
func (s *CatService) UnfavouriteCat(ctx context.Context, userID, favouriteID string) error {
	if userID == "" {
		return apperrors.NewValidationError("user id is required", nil)
	}
	if favouriteID == "" {
		return apperrors.NewValidationError("favourite id is required", nil)
	}
	return s.favCoordinator.Mutate(ctx, userID, &unfavouriteMutation{
		api: s.api, favouriteID: favouriteID,
	})
}

// UserVotes serves the reflected vote list, loading server truth on the
// first read for a user. Later reads serve the cache; reconciliation happens
// through the mutation protocol's settling refetches.
func (s *CatService) UserVotes(ctx context.Context, userID string) ([]catapi.Vote, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user id is required", nil)
	}
	if !s.votes.Loaded(userID) {
		epoch := s.votes.BeginRefetch(userID)
		list, err := s.api.ListVotes(ctx, userID)
		if err != nil {
			return nil, err
		}
		// A concurrent mutation may have cancelled this epoch; the
		// optimistic cache wins in that case.
		s.votes.CompleteRefetch(userID, epoch, list)
	}
	return s.votes.Get(userID), nil
}

// UserFavourites serves the reflected favourite list, loading server truth
// on the first read for a user.
func (s *CatService) UserFavourites(ctx context.Context, userID string) ([]catapi.Favourite, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user id is required", nil)
	}
	if !s.favourites.Loaded(userID) {
		epoch := s.favourites.BeginRefetch(userID)
		list, err := s.api.ListFavourites(ctx, userID)
		if err != nil {
			return nil, err
		}
		s.favourites.CompleteRefetch(userID, epoch, list)
	}
	return s.favourites.Get(userID), nil
}

// CachedVotes returns the optimistic vote list without touching the network
func (s *CatService) CachedVotes(userID string) []catapi.Vote {
	return s.votes.Get(userID)
}

// CachedFavourites returns the optimistic favourite list without touching
// the network
func (s *CatService) CachedFavourites(userID string) []catapi.Favourite {
	return s.favourites.Get(userID)
}

// ListImages proxies the paginated image feed
func (s *CatService) ListImages(ctx context.Context, userID string, limit, page int) ([]catapi.Image, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user id is required", nil)
	}
	if limit < 1 {
		limit = 20
	}
	if page < 0 {
		page = 0
	}
	return s.api.ListImages(ctx, userID, limit, page)
}

// UploadImage proxies a multipart upload to the remote service
func (s *CatService) UploadImage(ctx context.Context, userID, filename string, file io.Reader) (*catapi.Image, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user id is required", nil)
	}
	if filename == "" {
		return nil, apperrors.NewValidationError("filename is required", nil)
	}
	return s.api.UploadImage(ctx, userID, filename, file)
}

// refreshVotes reconciles a user's vote list with server truth. Results that
// lost an epoch race against a newer optimistic write are discarded.
func (s *CatService) refreshVotes(userID string) {
	epoch := s.votes.BeginRefetch(userID)
	list, err := s.api.ListVotes(context.Background(), userID)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{"user_id": userID}).Error("Vote refetch failed")
		s.publishRefetch(userID, "votes", observer.RefetchFailed, err)
		return
	}
	if s.votes.CompleteRefetch(userID, epoch, list) {
		s.publishRefetch(userID, "votes", observer.RefetchCompleted, nil)
	} else {
		s.publishRefetch(userID, "votes", observer.RefetchSuppressed, nil)
	}
}

// refreshFavourites reconciles a user's favourite list with server truth
func (s *CatService) refreshFavourites(userID string) {
	epoch := s.favourites.BeginRefetch(userID)
	list, err := s.api.ListFavourites(context.Background(), userID)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{"user_id": userID}).Error("Favourite refetch failed")
		s.publishRefetch(userID, "favourites", observer.RefetchFailed, err)
		return
	}
	if s.favourites.CompleteRefetch(userID, epoch, list) {
		s.publishRefetch(userID, "favourites", observer.RefetchCompleted, nil)
	} else {
		s.publishRefetch(userID, "favourites", observer.RefetchSuppressed, nil)
	}
}

func (s *CatService) publishRefetch(userID, action string, eventType observer.EventType, err error) {
	if s.publisher == nil {
		return
	}
	event := observer.MutationEvent{
		EventType: eventType,
		Timestamp: time.Now(),
		UserID:    userID,
		Action:    action,
		Success:   err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	s.publisher.NotifyObservers(context.Background(), event)
}

// voteRefresher and favouriteRefresher let the coordinators trigger
// asynchronous reconciliation without knowing about the pool.

type voteRefresher struct{ svc *CatService }

func (r voteRefresher) Refresh(userID string) {
	r.svc.runAsync(func() { r.svc.refreshVotes(userID) })
}

type favouriteRefresher struct{ svc *CatService }

func (r favouriteRefresher) Refresh(userID string) {
	r.svc.runAsync(func() { r.svc.refreshFavourites(userID) })
}

func requireIDs(userID, imageID string) error {
	if userID == "" {
		return apperrors.NewValidationError("user id is required", nil)
	}
	if imageID == "" {
		return apperrors.NewValidationError("image id is required", nil)
	}
	return nil
}

func requireVoteValue(value catapi.VoteValue) error {
	if value != catapi.VoteUp && value != catapi.VoteDown {
		return apperrors.NewValidationError("vote value must be up or down", nil)
	}
	return nil
}
