package catapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/DirkDigglerz/waracle-cat-project/internal/errors"
)

// duplicateFavouriteMarker is the error-text pattern the remote service
// returns when a favourite already exists for the (sub_id, image_id) pair.
const duplicateFavouriteMarker = "DUPLICATE_FAVOURITE"

// Client is the remote vote/favourite service adapter. Every operation is a
// single external call (DeleteVote is a fixed list-then-delete sequence) and
// is never retried internally; a failed attempt surfaces immediately as a
// tagged error for the mutation coordinator to settle on.
type Client interface {
	SubmitVote(ctx context.Context, userID, imageID string, value VoteValue) (string, error)
	DeleteVote(ctx context.Context, userID, imageID string) (string, error)
	SubmitFavourite(ctx context.Context, userID, imageID string) (string, error)
	DeleteFavourite(ctx context.Context, favouriteID string) error
	ListVotes(ctx context.Context, userID string) ([]Vote, error)
	ListFavourites(ctx context.Context, userID string) ([]Favourite, error)
	ListImages(ctx context.Context, userID string, limit, page int) ([]Image, error)
	UploadImage(ctx context.Context, userID, filename string, file io.Reader) (*Image, error)
}

// HTTPClient implements Client against the cat API REST surface
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates an HTTP adapter for the remote service
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	// Connection pooling tuned for a single upstream host
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// SubmitVote records a vote for an image and returns the remote vote id.
func (c *HTTPClient) SubmitVote(ctx context.Context, userID, imageID string, value VoteValue) (string, error) {
	body := map[string]interface{}{
		"image_id": imageID,
		"sub_id":   userID,
		"value":    wireValue(value),
	}
	var created createdRecord
	if err := c.postJSON(ctx, "/votes", body, &created); err != nil {
		return "", err
	}
	return created.ID.String(), nil
}

// DeleteVote removes the user's vote on an image. The remote service has no
// delete-by-image endpoint, so the user's votes are listed first to discover
// the remote vote id. A missing vote is a tagged not-found outcome, distinct
// from a transport error.
func (c *HTTPClient) DeleteVote(ctx context.Context, userID, imageID string) (string, error) {
	votes, err := c.ListVotes(ctx, userID)
	if err != nil {
		return "", err
	}

	var voteID string
	for _, v := range votes {
		if v.ImageID == imageID {
			voteID = v.ID
			break
		}
	}
	if voteID == "" {
		return "", apperrors.NewNotFoundError("no vote found for image", nil)
	}

	if err := c.delete(ctx, "/votes/"+url.PathEscape(voteID)); err != nil {
		return "", err
	}
	return voteID, nil
}

// SubmitFavourite bookmarks an image and returns the remote favourite id.
// The remote's duplicate-favourite error text maps to a tagged outcome.
func (c *HTTPClient) SubmitFavourite(ctx context.Context, userID, imageID string) (string, error) {
	body := map[string]interface{}{
		"image_id": imageID,
		"sub_id":   userID,
	}
	var created createdRecord
	if err := c.postJSON(ctx, "/favourites", body, &created); err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok && strings.Contains(appErr.Details, duplicateFavouriteMarker) {
			return "", apperrors.NewAlreadyFavouritedError("image is already favourited")
		}
		return "", err
	}
	return created.ID.String(), nil
}

// DeleteFavourite removes a favourite by its remote id
func (c *HTTPClient) DeleteFavourite(ctx context.Context, favouriteID string) error {
	return c.delete(ctx, "/favourites/"+url.PathEscape(favouriteID))
}

// ListVotes returns the user's votes normalized to the domain shape
func (c *HTTPClient) ListVotes(ctx context.Context, userID string) ([]Vote, error) {
	var records []voteRecord
	if err := c.getJSON(ctx, "/votes?sub_id="+url.QueryEscape(userID), &records); err != nil {
		return nil, err
	}
	votes := make([]Vote, 0, len(records))
	for _, r := range records {
		votes = append(votes, r.toDomain())
	}
	return votes, nil
}

// ListFavourites returns the user's favourites normalized to the domain shape
func (c *HTTPClient) ListFavourites(ctx context.Context, userID string) ([]Favourite, error) {
	var records []favouriteRecord
	if err := c.getJSON(ctx, "/favourites?sub_id="+url.QueryEscape(userID), &records); err != nil {
		return nil, err
	}
	favourites := make([]Favourite, 0, len(records))
	for _, r := range records {
		favourites = append(favourites, r.toDomain())
	}
	return favourites, nil
}

// ListImages returns one page of the user's image feed, newest first
func (c *HTTPClient) ListImages(ctx context.Context, userID string, limit, page int) ([]Image, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("page", strconv.Itoa(page))
	query.Set("order", "DESC")
	query.Set("sub_id", userID)

	var images []Image
	if err := c.getJSON(ctx, "/images?"+query.Encode(), &images); err != nil {
		return nil, err
	}
	return images, nil
}

// UploadImage proxies a multipart upload to the remote service
func (c *HTTPClient) UploadImage(ctx context.Context, userID, filename string, file io.Reader) (*Image, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build upload form", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, apperrors.NewInternalError("failed to read upload", err)
	}
	if err := writer.WriteField("sub_id", userID); err != nil {
		return nil, apperrors.NewInternalError("failed to build upload form", err)
	}
	if err := writer.Close(); err != nil {
		return nil, apperrors.NewInternalError("failed to build upload form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/upload", &buf)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build upload request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var created uploadedRecord
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, apperrors.NewInternalError("failed to decode upload response", err)
	}
	return &Image{ID: created.ID, URL: created.URL, SubID: userID, OriginalFilename: filename}, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return apperrors.NewInternalError("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewInternalError("failed to decode remote response", err)
	}
	return nil
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewInternalError("failed to encode request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return apperrors.NewInternalError("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return apperrors.NewInternalError("failed to decode remote response", err)
		}
	}
	return nil
}

func (c *HTTPClient) delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return apperrors.NewInternalError("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(req)
	return err
}

// do executes one request and maps the outcome: success returns the raw body,
// non-2xx becomes a transport error carrying status and body text, and a
// failure to reach the remote at all becomes a network error.
func (c *HTTPClient) do(req *http.Request) ([]byte, error) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("cat API unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to read cat API response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := fmt.Sprintf("cat API responded %d", resp.StatusCode)
		return nil, apperrors.NewTransportError(message, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
