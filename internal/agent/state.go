package agent

import (
	"context"

	"github.com/google/uuid"

	"github.com/showyourapp/backend/internal/db"
	"github.com/showyourapp/backend/internal/types"
)

// MaxBrowserSteps is the per-run ceiling on browser tool calls.
const MaxBrowserSteps = 10

// Catalog is the listing storage surface the tool interpreter needs.
// *db.DB satisfies it; tests substitute fakes.
type Catalog interface {
	ListTags(ctx context.Context) ([]types.Tag, error)
	ListTools(ctx context.Context) ([]types.BuilderTool, error)
	ListingsByCreator(ctx context.Context, creatorID uuid.UUID, limit int) ([]db.ListingSummary, error)
	SearchListings(ctx context.Context, urlFragment, titleFragment string, limit int) ([]db.ListingSummary, error)
	CreateListing(ctx context.Context, l *types.Listing) (int64, error)
	UpdateListing(ctx context.Context, id int64, creatorID uuid.UUID, upd db.ListingUpdate) (bool, error)
	SlugExists(ctx context.Context, slug string, exceptID int64) (bool, error)
	AddListingMedia(ctx context.Context, listingID int64, mediaURL string) (int64, error)
}

// Browser is the subset of browser.Session the tools drive.
type Browser interface {
	Navigate(url string) error
	PageInfo() (title, url string, err error)
	Screenshot() ([]byte, error)
	PageText() (string, error)
	Click(selector string) error
	Scroll(pixels int) error
}

// Uploader pushes screenshot bytes to media storage and returns a public URL.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// pendingShot is a captured screenshot awaiting upload on create_listing.
type pendingShot struct {
	name string
	data []byte
}

// runState is the ephemeral per-run agent state. It lives for exactly one
// runner invocation (one post) and is discarded afterwards.
type runState struct {
	browserSteps int

	// Memoized catalog reads; one run never needs a fresh view.
	tags     []types.Tag
	tools    []types.BuilderTool
	myLists  []db.ListingSummary
	hasLists bool

	screenshots []pendingShot
	createdIDs  []int64
}
