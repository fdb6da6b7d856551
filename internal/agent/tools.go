package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/showyourapp/backend/internal/db"
	"github.com/showyourapp/backend/internal/llm"
	"github.com/showyourapp/backend/internal/types"
	"github.com/showyourapp/backend/internal/urls"
)

// Interpreter services the agent's tool calls against the catalog, browser
// and media pipeline. One interpreter is created per run and carries the
// run-scoped state (step counter, memoized reads, pending screenshots).
type Interpreter struct {
	catalog  Catalog
	browser  Browser
	uploader Uploader // nil disables media uploads
	validate *validator.Validate

	ownerID uuid.UUID
	baseURL string

	state runState
}

// NewInterpreter creates a fresh interpreter for one agent run.
func NewInterpreter(catalog Catalog, browser Browser, uploader Uploader, ownerID uuid.UUID, baseURL string) *Interpreter {
	return &Interpreter{
		catalog:  catalog,
		browser:  browser,
		uploader: uploader,
		validate: validator.New(),
		ownerID:  ownerID,
		baseURL:  baseURL,
	}
}

// CreatedIDs returns the listings created by tool calls during this run.
func (in *Interpreter) CreatedIDs() []int64 {
	return in.state.createdIDs
}

// Specs declares the closed tool set exposed to the model.
func (in *Interpreter) Specs() []llm.ToolSpec {
	return []llm.ToolSpec{
		{
			Name:        "get_catalog",
			Description: "Get all available tags (categories) and builder tools with their ids. Use these ids when creating listings.",
		},
		{
			Name:        "list_my_listings",
			Description: "List the listings you already own. Use this to check for duplicates before creating a new listing.",
		},
		{
			Name:        "search_listings",
			Description: "Search existing listings platform-wide to check for duplicates. Search by URL first (most reliable), then by title. At least one of url or title is required.",
			Params: []llm.Param{
				{Name: "url", Type: "string", Description: "App URL to search for; matching ignores scheme, www and tracking parameters"},
				{Name: "title", Type: "string", Description: "Listing title to search for (fuzzy match)"},
			},
		},
		{
			Name:        "create_listing",
			Description: "Create a new app listing. Screenshots taken during this run are attached automatically.",
			Params: []llm.Param{
				{Name: "title", Type: "string", Description: "App name, specific not generic", Required: true},
				{Name: "hook_text", Type: "string", Description: "1-2 sentence hook that sells the app", Required: true},
				{Name: "description", Type: "string", Description: "Full description in HTML (<h2>, <p>, <ul>, <li>)"},
				{Name: "status", Type: "string", Description: "Publication stage", Required: true, Enum: []string{"Concept", "WIP", "Live"}},
				{Name: "tool_ids", Type: "integer[]", Description: "Builder tool ids from get_catalog"},
				{Name: "tag_ids", Type: "integer[]", Description: "Tag ids from get_catalog"},
				{Name: "url", Type: "string", Description: "URL of the live app; required when status is Live"},
				{Name: "video_url", Type: "string", Description: "Optional demo video URL"},
				{Name: "source_url", Type: "string", Description: "Source post permalink for tracking"},
			},
		},
		{
			Name:        "update_listing",
			Description: "Update a listing you own. Provide only the fields to change.",
			Params: []llm.Param{
				{Name: "listing_id", Type: "integer", Description: "Id of the listing to update", Required: true},
				{Name: "title", Type: "string", Description: "New title"},
				{Name: "hook_text", Type: "string", Description: "New hook text"},
				{Name: "description", Type: "string", Description: "New description (HTML)"},
				{Name: "status", Type: "string", Description: "New status", Enum: []string{"Concept", "WIP", "Live"}},
				{Name: "tool_ids", Type: "integer[]", Description: "Replacement builder tool ids"},
				{Name: "tag_ids", Type: "integer[]", Description: "Replacement tag ids"},
				{Name: "url", Type: "string", Description: "New app URL"},
				{Name: "video_url", Type: "string", Description: "New video URL"},
			},
		},
		{
			Name:        "navigate",
			Description: "Load a URL in the browser to explore the app before creating a listing. Consumes one browser step.",
			Params: []llm.Param{
				{Name: "url", Type: "string", Description: "URL to visit", Required: true},
			},
		},
		{
			Name:        "screenshot",
			Description: "Capture the current viewport. The file is uploaded automatically on the next create_listing. Consumes one browser step.",
			Params: []llm.Param{
				{Name: "name", Type: "string", Description: "Name for the screenshot file, e.g. main-page", Required: true},
			},
		},
		{
			Name:        "get_page_text",
			Description: "Read the visible text of the current page to understand what the app does. Consumes one browser step.",
		},
		{
			Name:        "click",
			Description: "Click an element on the current page. Consumes one browser step.",
			Params: []llm.Param{
				{Name: "selector", Type: "string", Description: "CSS selector, e.g. button.submit or #start-btn", Required: true},
			},
		},
		{
			Name:        "scroll",
			Description: "Scroll the page. Consumes one browser step.",
			Params: []llm.Param{
				{Name: "direction", Type: "string", Description: "Scroll direction", Enum: []string{"up", "down"}},
			},
		},
	}
}

// Dispatch services one tool call. Failures become structured error payloads;
// nothing raises back into the model.
func (in *Interpreter) Dispatch(ctx context.Context, call llm.ToolCall) llm.ToolResult {
	var payload map[string]any
	switch call.Name {
	case "get_catalog":
		payload = in.getCatalog(ctx)
	case "list_my_listings":
		payload = in.listMyListings(ctx)
	case "search_listings":
		payload = in.searchListings(ctx, call.Args)
	case "create_listing":
		payload = in.createListing(ctx, call.Args)
	case "update_listing":
		payload = in.updateListing(ctx, call.Args)
	case "navigate":
		payload = in.navigate(call.Args)
	case "screenshot":
		payload = in.screenshot(call.Args)
	case "get_page_text":
		payload = in.getPageText()
	case "click":
		payload = in.click(call.Args)
	case "scroll":
		payload = in.scroll(call.Args)
	default:
		payload = errPayload("unknown tool %q", call.Name)
	}
	return llm.ToolResult{Name: call.Name, Payload: payload}
}

func okPayload(fields map[string]any) map[string]any {
	payload := map[string]any{"success": true}
	for k, v := range fields {
		payload[k] = v
	}
	return payload
}

func errPayload(format string, args ...any) map[string]any {
	return map[string]any{"success": false, "error": fmt.Sprintf(format, args...)}
}

// decodeArgs converts loosely-typed model arguments into a typed struct and
// validates it.
func (in *Interpreter) decodeArgs(args map[string]any, dst any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("invalid arguments: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid arguments: %v", err)
	}
	if err := in.validate.Struct(dst); err != nil {
		return fmt.Errorf("invalid arguments: %v", err)
	}
	return nil
}

// browserBudget enforces the per-run browser step ceiling. At the ceiling it
// returns a limit-reached payload and does not increment further, so the
// model can still finalize a listing with what it has gathered.
func (in *Interpreter) browserBudget() map[string]any {
	if in.state.browserSteps >= MaxBrowserSteps {
		return errPayload("browser step limit (%d) reached; create the listing with information gathered so far", MaxBrowserSteps)
	}
	in.state.browserSteps++
	return nil
}

// --- catalog tools ---

func (in *Interpreter) getCatalog(ctx context.Context) map[string]any {
	if in.state.tags == nil {
		tags, err := in.catalog.ListTags(ctx)
		if err != nil {
			return errPayload("failed to load tags: %v", err)
		}
		in.state.tags = tags
	}
	if in.state.tools == nil {
		tools, err := in.catalog.ListTools(ctx)
		if err != nil {
			return errPayload("failed to load tools: %v", err)
		}
		in.state.tools = tools
	}

	tags := make([]map[string]any, 0, len(in.state.tags))
	for _, t := range in.state.tags {
		tags = append(tags, map[string]any{"id": t.ID, "name": t.Name})
	}
	tools := make([]map[string]any, 0, len(in.state.tools))
	for _, t := range in.state.tools {
		tools = append(tools, map[string]any{"id": t.ID, "name": t.Name})
	}
	return okPayload(map[string]any{"tags": tags, "tools": tools})
}

func (in *Interpreter) listMyListings(ctx context.Context) map[string]any {
	if !in.state.hasLists {
		lists, err := in.catalog.ListingsByCreator(ctx, in.ownerID, 100)
		if err != nil {
			return errPayload("failed to load listings: %v", err)
		}
		in.state.myLists = lists
		in.state.hasLists = true
	}
	return okPayload(map[string]any{"listings": summariesPayload(in.state.myLists, in.ownerID)})
}

type searchArgs struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

func (in *Interpreter) searchListings(ctx context.Context, args map[string]any) map[string]any {
	var a searchArgs
	if err := in.decodeArgs(args, &a); err != nil {
		return errPayload("%v", err)
	}
	if a.URL == "" && a.Title == "" {
		return errPayload("must provide either url or title to search")
	}

	results, err := in.catalog.SearchListings(ctx, urls.Normalize(a.URL), a.Title, 20)
	if err != nil {
		return errPayload("search failed: %v", err)
	}
	return okPayload(map[string]any{"listings": summariesPayload(results, in.ownerID)})
}

func summariesPayload(summaries []db.ListingSummary, ownerID uuid.UUID) []map[string]any {
	out := make([]map[string]any, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, map[string]any{
			"id":          s.ID,
			"title":       s.Title,
			"slug":        s.Slug,
			"status":      string(s.Status),
			"listing_url": s.ListingURL,
			"creator":     s.Creator,
			"is_mine":     s.CreatorID == ownerID,
		})
	}
	return out
}

type createArgs struct {
	Title       string  `json:"title" validate:"required"`
	HookText    string  `json:"hook_text" validate:"required"`
	Description string  `json:"description"`
	Status      string  `json:"status" validate:"required,oneof=Concept WIP Live"`
	ToolIDs     []int64 `json:"tool_ids"`
	TagIDs      []int64 `json:"tag_ids"`
	URL         string  `json:"url"`
	VideoURL    string  `json:"video_url"`
	SourceURL   string  `json:"source_url"`
}

func (in *Interpreter) createListing(ctx context.Context, args map[string]any) map[string]any {
	var a createArgs
	if err := in.decodeArgs(args, &a); err != nil {
		return errPayload("%v", err)
	}

	status := types.ListingStatus(a.Status)
	if status == types.StatusLive && a.URL == "" {
		return errPayload("url is required when status is 'Live'")
	}

	slug, err := uniqueSlug(ctx, in.catalog, a.Title, 0)
	if err != nil {
		return errPayload("failed to assign slug: %v", err)
	}

	id, err := in.catalog.CreateListing(ctx, &types.Listing{
		CreatorID:      in.ownerID,
		Title:          a.Title,
		HookText:       a.HookText,
		Description:    a.Description,
		Status:         status,
		Slug:           slug,
		ListingURL:     a.URL,
		VideoURL:       a.VideoURL,
		SourceURL:      a.SourceURL,
		AgentSubmitted: true,
		TagIDs:         a.TagIDs,
		ToolIDs:        a.ToolIDs,
	})
	if err != nil {
		return errPayload("failed to create listing: %v", err)
	}
	in.state.createdIDs = append(in.state.createdIDs, id)

	// Media is best-effort; the listing is the deliverable.
	uploaded := 0
	var mediaErrors []string
	for _, shot := range in.state.screenshots {
		if err := in.attachScreenshot(ctx, id, shot); err != nil {
			mediaErrors = append(mediaErrors, fmt.Sprintf("%s.png: %v", shot.name, err))
			continue
		}
		uploaded++
	}
	in.state.screenshots = nil

	payload := okPayload(map[string]any{
		"listing_id":     id,
		"slug":           slug,
		"title":          a.Title,
		"url":            fmt.Sprintf("%s/apps/%s", in.baseURL, slug),
		"media_uploaded": uploaded,
	})
	if len(mediaErrors) > 0 {
		payload["media_errors"] = mediaErrors
	}
	return payload
}

func (in *Interpreter) attachScreenshot(ctx context.Context, listingID int64, shot pendingShot) error {
	if in.uploader == nil {
		return fmt.Errorf("media uploads not configured")
	}
	publicURL, err := in.uploader.Upload(ctx, shot.name+".png", "image/png", shot.data)
	if err != nil {
		return err
	}
	if _, err := in.catalog.AddListingMedia(ctx, listingID, publicURL); err != nil {
		return err
	}
	return nil
}

type updateArgs struct {
	ListingID   int64   `json:"listing_id" validate:"required"`
	Title       *string `json:"title"`
	HookText    *string `json:"hook_text"`
	Description *string `json:"description"`
	Status      *string `json:"status" validate:"omitempty,oneof=Concept WIP Live"`
	ToolIDs     []int64 `json:"tool_ids"`
	TagIDs      []int64 `json:"tag_ids"`
	URL         *string `json:"url"`
	VideoURL    *string `json:"video_url"`
}

func (in *Interpreter) updateListing(ctx context.Context, args map[string]any) map[string]any {
	var a updateArgs
	if err := in.decodeArgs(args, &a); err != nil {
		return errPayload("%v", err)
	}

	upd := db.ListingUpdate{
		Title:       a.Title,
		HookText:    a.HookText,
		Description: a.Description,
		ListingURL:  a.URL,
		VideoURL:    a.VideoURL,
		ToolIDs:     a.ToolIDs,
		TagIDs:      a.TagIDs,
	}
	if a.Status != nil {
		status := types.ListingStatus(*a.Status)
		upd.Status = &status
	}
	if a.Title != nil {
		// Retitling re-derives the slug.
		slug, err := uniqueSlug(ctx, in.catalog, *a.Title, a.ListingID)
		if err != nil {
			return errPayload("failed to assign slug: %v", err)
		}
		upd.Slug = &slug
	}

	ok, err := in.catalog.UpdateListing(ctx, a.ListingID, in.ownerID, upd)
	if err != nil {
		return errPayload("failed to update listing: %v", err)
	}
	if !ok {
		return errPayload("listing %d not found or you don't have permission to edit it", a.ListingID)
	}

	payload := map[string]any{"listing_id": a.ListingID}
	if upd.Slug != nil {
		payload["slug"] = *upd.Slug
	}
	return okPayload(payload)
}

// --- browser tools ---

type navigateArgs struct {
	URL string `json:"url" validate:"required,url"`
}

func (in *Interpreter) navigate(args map[string]any) map[string]any {
	if limit := in.browserBudget(); limit != nil {
		return limit
	}
	var a navigateArgs
	if err := in.decodeArgs(args, &a); err != nil {
		return errPayload("%v", err)
	}

	if err := in.browser.Navigate(a.URL); err != nil {
		return errPayload("%v", err)
	}
	title, current, err := in.browser.PageInfo()
	if err != nil {
		return errPayload("%v", err)
	}
	return okPayload(map[string]any{"title": title, "url": current})
}

type screenshotArgs struct {
	Name string `json:"name" validate:"required"`
}

func (in *Interpreter) screenshot(args map[string]any) map[string]any {
	if limit := in.browserBudget(); limit != nil {
		return limit
	}
	var a screenshotArgs
	if err := in.decodeArgs(args, &a); err != nil {
		return errPayload("%v", err)
	}

	data, err := in.browser.Screenshot()
	if err != nil {
		return errPayload("%v", err)
	}
	in.state.screenshots = append(in.state.screenshots, pendingShot{name: a.Name, data: data})
	return okPayload(map[string]any{
		"name":           a.Name,
		"pending_upload": len(in.state.screenshots),
	})
}

func (in *Interpreter) getPageText() map[string]any {
	if limit := in.browserBudget(); limit != nil {
		return limit
	}

	title, current, err := in.browser.PageInfo()
	if err != nil {
		return errPayload("%v", err)
	}
	text, err := in.browser.PageText()
	if err != nil {
		return errPayload("%v", err)
	}
	return okPayload(map[string]any{"title": title, "url": current, "text": text})
}

type clickArgs struct {
	Selector string `json:"selector" validate:"required"`
}

func (in *Interpreter) click(args map[string]any) map[string]any {
	if limit := in.browserBudget(); limit != nil {
		return limit
	}
	var a clickArgs
	if err := in.decodeArgs(args, &a); err != nil {
		return errPayload("%v", err)
	}

	if err := in.browser.Click(a.Selector); err != nil {
		return errPayload("%v", err)
	}
	return okPayload(nil)
}

type scrollArgs struct {
	Direction string `json:"direction" validate:"omitempty,oneof=up down"`
}

func (in *Interpreter) scroll(args map[string]any) map[string]any {
	if limit := in.browserBudget(); limit != nil {
		return limit
	}
	var a scrollArgs
	if err := in.decodeArgs(args, &a); err != nil {
		return errPayload("%v", err)
	}

	if a.Direction == "" {
		a.Direction = "down"
	}
	pixels := 600
	if a.Direction == "up" {
		pixels = -600
	}
	if err := in.browser.Scroll(pixels); err != nil {
		return errPayload("%v", err)
	}
	return okPayload(map[string]any{"direction": a.Direction})
}
