package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showyourapp/backend/internal/db"
	"github.com/showyourapp/backend/internal/llm"
	"github.com/showyourapp/backend/internal/types"
)

// fakeCatalog is an in-memory Catalog.
type fakeCatalog struct {
	tags     []types.Tag
	tools    []types.BuilderTool
	listings []types.Listing
	media    map[int64][]string
	nextID   int64

	tagCalls int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		tags:   []types.Tag{{ID: 1, Name: "Productivity"}},
		tools:  []types.BuilderTool{{ID: 7, Name: "Cursor"}},
		media:  map[int64][]string{},
		nextID: 1,
	}
}

func (f *fakeCatalog) ListTags(context.Context) ([]types.Tag, error) {
	f.tagCalls++
	return f.tags, nil
}

func (f *fakeCatalog) ListTools(context.Context) ([]types.BuilderTool, error) {
	return f.tools, nil
}

func (f *fakeCatalog) ListingsByCreator(_ context.Context, creatorID uuid.UUID, _ int) ([]db.ListingSummary, error) {
	var out []db.ListingSummary
	for _, l := range f.listings {
		if l.CreatorID == creatorID {
			out = append(out, db.ListingSummary{ID: l.ID, Title: l.Title, Slug: l.Slug, CreatorID: l.CreatorID})
		}
	}
	return out, nil
}

func (f *fakeCatalog) SearchListings(_ context.Context, urlFragment, titleFragment string, _ int) ([]db.ListingSummary, error) {
	var out []db.ListingSummary
	for _, l := range f.listings {
		if urlFragment != "" && l.ListingURL == urlFragment ||
			titleFragment != "" && l.Title == titleFragment {
			out = append(out, db.ListingSummary{ID: l.ID, Title: l.Title, CreatorID: l.CreatorID})
		}
	}
	return out, nil
}

func (f *fakeCatalog) CreateListing(_ context.Context, l *types.Listing) (int64, error) {
	l.ID = f.nextID
	f.nextID++
	f.listings = append(f.listings, *l)
	return l.ID, nil
}

func (f *fakeCatalog) UpdateListing(_ context.Context, id int64, creatorID uuid.UUID, upd db.ListingUpdate) (bool, error) {
	for i := range f.listings {
		if f.listings[i].ID == id && f.listings[i].CreatorID == creatorID {
			if upd.Title != nil {
				f.listings[i].Title = *upd.Title
			}
			if upd.Slug != nil {
				f.listings[i].Slug = *upd.Slug
			}
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCatalog) SlugExists(_ context.Context, slug string, exceptID int64) (bool, error) {
	for _, l := range f.listings {
		if l.Slug == slug && l.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCatalog) AddListingMedia(_ context.Context, listingID int64, mediaURL string) (int64, error) {
	f.media[listingID] = append(f.media[listingID], mediaURL)
	return int64(len(f.media[listingID])), nil
}

// fakeBrowser records actions and serves canned pages.
type fakeBrowser struct {
	navigated []string
	clicks    []string
	scrolls   []int
	shotErr   error
}

func (f *fakeBrowser) Navigate(url string) error {
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *fakeBrowser) PageInfo() (string, string, error) {
	if len(f.navigated) == 0 {
		return "", "", fmt.Errorf("no page loaded")
	}
	return "PixelPet", f.navigated[len(f.navigated)-1], nil
}

func (f *fakeBrowser) Screenshot() ([]byte, error) {
	if f.shotErr != nil {
		return nil, f.shotErr
	}
	return []byte("png"), nil
}

func (f *fakeBrowser) PageText() (string, error) { return "An AI companion.", nil }

func (f *fakeBrowser) Click(selector string) error {
	f.clicks = append(f.clicks, selector)
	return nil
}

func (f *fakeBrowser) Scroll(pixels int) error {
	f.scrolls = append(f.scrolls, pixels)
	return nil
}

// fakeUploader returns deterministic public URLs.
type fakeUploader struct {
	uploads []string
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, filename, _ string, _ []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads = append(f.uploads, filename)
	return "https://cdn.example/" + filename, nil
}

func newTestInterpreter(catalog *fakeCatalog, browser *fakeBrowser, uploader *fakeUploader) (*Interpreter, uuid.UUID) {
	owner := uuid.New()
	var up Uploader
	if uploader != nil {
		up = uploader
	}
	return NewInterpreter(catalog, browser, up, owner, "https://show-your.app"), owner
}

func dispatch(t *testing.T, in *Interpreter, name string, args map[string]any) map[string]any {
	t.Helper()
	result := in.Dispatch(context.Background(), llm.ToolCall{Name: name, Args: args})
	assert.Equal(t, name, result.Name)
	return result.Payload
}

func TestGetCatalog_CachedPerRun(t *testing.T) {
	catalog := newFakeCatalog()
	in, _ := newTestInterpreter(catalog, &fakeBrowser{}, nil)

	first := dispatch(t, in, "get_catalog", nil)
	assert.Equal(t, true, first["success"])
	second := dispatch(t, in, "get_catalog", nil)
	assert.Equal(t, true, second["success"])

	assert.Equal(t, 1, catalog.tagCalls)
}

func TestSearchListings_RequiresArgument(t *testing.T) {
	in, _ := newTestInterpreter(newFakeCatalog(), &fakeBrowser{}, nil)

	payload := dispatch(t, in, "search_listings", map[string]any{})
	assert.Equal(t, false, payload["success"])
	assert.Contains(t, payload["error"], "url or title")
}

func TestCreateListing_AssignsSlugAndOwner(t *testing.T) {
	catalog := newFakeCatalog()
	in, owner := newTestInterpreter(catalog, &fakeBrowser{}, nil)

	payload := dispatch(t, in, "create_listing", map[string]any{
		"title":     "PixelPet - AI Companion!",
		"hook_text": "A desktop pet with a brain.",
		"status":    "Live",
		"url":       "https://pixelpet.app",
	})

	require.Equal(t, true, payload["success"])
	assert.Equal(t, "pixelpet-ai-companion", payload["slug"])
	assert.Equal(t, "https://show-your.app/apps/pixelpet-ai-companion", payload["url"])

	require.Len(t, catalog.listings, 1)
	created := catalog.listings[0]
	assert.Equal(t, owner, created.CreatorID)
	assert.True(t, created.AgentSubmitted)
	assert.Equal(t, []int64{1}, in.CreatedIDs())
}

func TestCreateListing_SlugCollision(t *testing.T) {
	catalog := newFakeCatalog()
	in, _ := newTestInterpreter(catalog, &fakeBrowser{}, nil)

	args := map[string]any{"title": "PixelPet", "hook_text": "x", "status": "Concept"}
	first := dispatch(t, in, "create_listing", args)
	second := dispatch(t, in, "create_listing", args)

	assert.Equal(t, "pixelpet", first["slug"])
	assert.Equal(t, "pixelpet-1", second["slug"])
}

func TestCreateListing_LiveRequiresURL(t *testing.T) {
	in, _ := newTestInterpreter(newFakeCatalog(), &fakeBrowser{}, nil)

	payload := dispatch(t, in, "create_listing", map[string]any{
		"title":     "Ghost App",
		"hook_text": "x",
		"status":    "Live",
	})
	assert.Equal(t, false, payload["success"])
	assert.Contains(t, payload["error"], "url is required")
}

func TestCreateListing_InvalidStatus(t *testing.T) {
	in, _ := newTestInterpreter(newFakeCatalog(), &fakeBrowser{}, nil)

	payload := dispatch(t, in, "create_listing", map[string]any{
		"title":     "App",
		"hook_text": "x",
		"status":    "Launched",
	})
	assert.Equal(t, false, payload["success"])
}

func TestCreateListing_AttachesPendingScreenshots(t *testing.T) {
	catalog := newFakeCatalog()
	uploader := &fakeUploader{}
	in, _ := newTestInterpreter(catalog, &fakeBrowser{navigated: []string{"https://pixelpet.app"}}, uploader)

	dispatch(t, in, "screenshot", map[string]any{"name": "main-page"})
	dispatch(t, in, "screenshot", map[string]any{"name": "pricing"})

	payload := dispatch(t, in, "create_listing", map[string]any{
		"title": "PixelPet", "hook_text": "x", "status": "Concept",
	})
	require.Equal(t, true, payload["success"])
	assert.Equal(t, 2, payload["media_uploaded"])
	assert.Equal(t, []string{"main-page.png", "pricing.png"}, uploader.uploads)
	assert.Len(t, catalog.media[1], 2)

	// Queue is cleared after the attempt; a second create attaches nothing.
	again := dispatch(t, in, "create_listing", map[string]any{
		"title": "PixelPet Two", "hook_text": "x", "status": "Concept",
	})
	assert.Equal(t, 0, again["media_uploaded"])
}

func TestCreateListing_MediaFailureDoesNotBlockListing(t *testing.T) {
	catalog := newFakeCatalog()
	uploader := &fakeUploader{err: fmt.Errorf("storage down")}
	in, _ := newTestInterpreter(catalog, &fakeBrowser{navigated: []string{"x"}}, uploader)

	dispatch(t, in, "screenshot", map[string]any{"name": "shot"})
	payload := dispatch(t, in, "create_listing", map[string]any{
		"title": "Survivor", "hook_text": "x", "status": "Concept",
	})

	require.Equal(t, true, payload["success"])
	assert.Equal(t, 0, payload["media_uploaded"])
	assert.Len(t, payload["media_errors"], 1)
	assert.Len(t, catalog.listings, 1)
}

func TestUpdateListing_OwnedOnly(t *testing.T) {
	catalog := newFakeCatalog()
	in, _ := newTestInterpreter(catalog, &fakeBrowser{}, nil)

	dispatch(t, in, "create_listing", map[string]any{
		"title": "Old Name", "hook_text": "x", "status": "Concept",
	})

	payload := dispatch(t, in, "update_listing", map[string]any{
		"listing_id": 1,
		"title":      "New Name",
	})
	require.Equal(t, true, payload["success"])
	assert.Equal(t, "new-name", payload["slug"])

	missing := dispatch(t, in, "update_listing", map[string]any{
		"listing_id": 999,
		"title":      "Nope",
	})
	assert.Equal(t, false, missing["success"])
	assert.Contains(t, missing["error"], "not found")
}

func TestBrowserBudget_SoftStop(t *testing.T) {
	browser := &fakeBrowser{}
	in, _ := newTestInterpreter(newFakeCatalog(), browser, nil)

	for i := 0; i < MaxBrowserSteps; i++ {
		payload := dispatch(t, in, "scroll", map[string]any{"direction": "down"})
		assert.Equal(t, true, payload["success"])
	}

	// The call past the ceiling is refused and performs no action.
	over := dispatch(t, in, "scroll", map[string]any{"direction": "down"})
	assert.Equal(t, false, over["success"])
	assert.Contains(t, over["error"], "browser step limit")
	assert.Len(t, browser.scrolls, MaxBrowserSteps)

	// Non-browser tools still work; the run can finalize a listing.
	created := dispatch(t, in, "create_listing", map[string]any{
		"title": "Late App", "hook_text": "x", "status": "Concept",
	})
	assert.Equal(t, true, created["success"])
}

func TestNavigate_ReturnsPageInfo(t *testing.T) {
	browser := &fakeBrowser{}
	in, _ := newTestInterpreter(newFakeCatalog(), browser, nil)

	payload := dispatch(t, in, "navigate", map[string]any{"url": "https://pixelpet.app"})
	require.Equal(t, true, payload["success"])
	assert.Equal(t, "PixelPet", payload["title"])
	assert.Equal(t, "https://pixelpet.app", payload["url"])
}

func TestGetPageText(t *testing.T) {
	browser := &fakeBrowser{navigated: []string{"https://pixelpet.app"}}
	in, _ := newTestInterpreter(newFakeCatalog(), browser, nil)

	payload := dispatch(t, in, "get_page_text", nil)
	require.Equal(t, true, payload["success"])
	assert.Equal(t, "An AI companion.", payload["text"])
}

func TestDispatch_UnknownTool(t *testing.T) {
	in, _ := newTestInterpreter(newFakeCatalog(), &fakeBrowser{}, nil)

	payload := dispatch(t, in, "rm_rf", nil)
	assert.Equal(t, false, payload["success"])
	assert.Contains(t, payload["error"], "unknown tool")
}
