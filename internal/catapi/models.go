package catapi

import "encoding/json"

// TemporaryID is the reserved sentinel id for cache entries created
// speculatively before the remote service has assigned a real one. The next
// reconciling refetch replaces it.
const TemporaryID = "9999999"

// VoteValue is the direction of a user's vote on an image.
type VoteValue string

const (
	VoteUp   VoteValue = "up"
	VoteDown VoteValue = "down"
)

// Vote is one user's rating of one image. At most one Vote exists per
// (UserID, ImageID) pair in the reflected cache.
type Vote struct {
	ID      string    `json:"id"`
	ImageID string    `json:"image_id"`
	Value   VoteValue `json:"value"`
	UserID  string    `json:"user_id"`
}

// Favourite is a user's bookmark of one image.
type Favourite struct {
	ID      string `json:"id"`
	ImageID string `json:"image_id"`
}

// Image is the read-only remote image record. It is never mutated locally,
// only referenced by id.
type Image struct {
	ID               string `json:"id"`
	URL              string `json:"url"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	SubID            string `json:"sub_id,omitempty"`
	OriginalFilename string `json:"original_filename,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
}

// Wire shapes of the remote service. Vote and favourite ids arrive as JSON
// numbers; the domain treats ids as opaque strings.

type voteRecord struct {
	ID      json.Number `json:"id"`
	ImageID string      `json:"image_id"`
	Value   int         `json:"value"`
	SubID   string      `json:"sub_id"`
}

type favouriteRecord struct {
	ID      json.Number `json:"id"`
	ImageID string      `json:"image_id"`
}

type createdRecord struct {
	ID  json.Number `json:"id"`
	URL string      `json:"url"`
}

// Uploaded images get string ids from the remote service, unlike votes and
// favourites whose ids arrive as numbers.
type uploadedRecord struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (r voteRecord) toDomain() Vote {
	value := VoteDown
	if r.Value == 1 {
		value = VoteUp
	}
	return Vote{
		ID:      r.ID.String(),
		ImageID: r.ImageID,
		Value:   value,
		UserID:  r.SubID,
	}
}

func (r favouriteRecord) toDomain() Favourite {
	return Favourite{
		ID:      r.ID.String(),
		ImageID: r.ImageID,
	}
}

func wireValue(v VoteValue) int {
	if v == VoteUp {
		return 1
	}
	return 0
}
