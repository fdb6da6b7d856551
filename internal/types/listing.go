package types

import (
	"time"

	"github.com/google/uuid"
)

// ListingStatus is the publication stage of a listing.
type ListingStatus string

// Listing statuses. Live listings must carry a listing URL.
const (
	StatusConcept ListingStatus = "Concept"
	StatusWIP     ListingStatus = "WIP"
	StatusLive    ListingStatus = "Live"
)

// Valid reports whether s is a known listing status.
func (s ListingStatus) Valid() bool {
	switch s {
	case StatusConcept, StatusWIP, StatusLive:
		return true
	}
	return false
}

// Listing is a published catalog entry describing an application.
type Listing struct {
	ID          int64         `json:"id"`
	CreatorID   uuid.UUID     `json:"creator_id"`
	Title       string        `json:"title"`
	HookText    string        `json:"hook_text"`
	Description string        `json:"description"`
	Status      ListingStatus `json:"status"`
	Slug        string        `json:"slug"`
	ListingURL  string        `json:"listing_url,omitempty"`
	VideoURL    string        `json:"video_url,omitempty"`
	// SourceURL tracks the social post the listing was ingested from and is
	// the dedup key for re-submitted posts.
	SourceURL      string    `json:"source_url,omitempty"`
	AgentSubmitted bool      `json:"agent_submitted"`
	TagIDs         []int64   `json:"tag_ids,omitempty"`
	ToolIDs        []int64   `json:"tool_ids,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Tag categorizes listings (e.g. "Productivity", "Games").
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// BuilderTool names a tool listings were built with (e.g. "Cursor", "v0").
type BuilderTool struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ListingMedia is a stored media pointer attached to a listing.
type ListingMedia struct {
	ID        int64  `json:"id"`
	ListingID int64  `json:"listing_id"`
	MediaURL  string `json:"media_url"`
}

// User is an account that can own listings and submit jobs.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}
