package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/showyourapp/backend/internal/types"
)

// -----------------------------------------------------------------------------
// Listing Methods
// -----------------------------------------------------------------------------

// ListingSummary is the lightweight listing view returned by search and
// ownership queries.
type ListingSummary struct {
	ID         int64               `json:"id"`
	Title      string              `json:"title"`
	Slug       string              `json:"slug"`
	Status     types.ListingStatus `json:"status"`
	ListingURL string              `json:"listing_url,omitempty"`
	CreatorID  uuid.UUID           `json:"creator_id"`
	Creator    string              `json:"creator,omitempty"`
}

// ListingUpdate holds the optional fields of an update; nil means unchanged.
type ListingUpdate struct {
	Title       *string
	HookText    *string
	Description *string
	Status      *types.ListingStatus
	ListingURL  *string
	VideoURL    *string
	Slug        *string
	ToolIDs     []int64
	TagIDs      []int64
}

// CreateListing inserts a listing with its tag and tool junctions in one
// transaction and returns the new id.
func (db *DB) CreateListing(ctx context.Context, l *types.Listing) (int64, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO listings
		     (creator_id, title, hook_text, description, status, slug,
		      listing_url, video_url, source_url, agent_submitted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		l.CreatorID, l.Title, l.HookText, l.Description, string(l.Status), l.Slug,
		l.ListingURL, l.VideoURL, l.SourceURL, l.AgentSubmitted,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert listing: %w", err)
	}

	for _, tagID := range l.TagIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO listing_tags (listing_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			id, tagID); err != nil {
			return 0, fmt.Errorf("failed to attach tag %d: %w", tagID, err)
		}
	}
	for _, toolID := range l.ToolIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO listing_tools (listing_id, tool_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			id, toolID); err != nil {
			return 0, fmt.Errorf("failed to attach tool %d: %w", toolID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit listing: %w", err)
	}
	return id, nil
}

// UpdateListing applies the non-nil fields of upd to a listing owned by
// creatorID. Returns false if no such listing exists or it belongs to
// someone else.
func (db *DB) UpdateListing(ctx context.Context, id int64, creatorID uuid.UUID, upd ListingUpdate) (bool, error) {
	sets := []string{}
	args := []any{id, creatorID}
	n := 3

	addSet := func(col string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, n))
		args = append(args, v)
		n++
	}

	if upd.Title != nil {
		addSet("title", *upd.Title)
	}
	if upd.HookText != nil {
		addSet("hook_text", *upd.HookText)
	}
	if upd.Description != nil {
		addSet("description", *upd.Description)
	}
	if upd.Status != nil {
		addSet("status", string(*upd.Status))
	}
	if upd.ListingURL != nil {
		addSet("listing_url", *upd.ListingURL)
	}
	if upd.VideoURL != nil {
		addSet("video_url", *upd.VideoURL)
	}
	if upd.Slug != nil {
		addSet("slug", *upd.Slug)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if len(sets) > 0 {
		query := "UPDATE listings SET " + strings.Join(sets, ", ") +
			" WHERE id = $1 AND creator_id = $2"
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return false, fmt.Errorf("failed to update listing: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return false, nil
		}
	} else {
		// Nothing but junctions to change; verify ownership first.
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM listings WHERE id = $1 AND creator_id = $2)`,
			id, creatorID).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("failed to check listing ownership: %w", err)
		}
		if !exists {
			return false, nil
		}
	}

	if upd.TagIDs != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM listing_tags WHERE listing_id = $1`, id); err != nil {
			return false, fmt.Errorf("failed to clear tags: %w", err)
		}
		for _, tagID := range upd.TagIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO listing_tags (listing_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				id, tagID); err != nil {
				return false, fmt.Errorf("failed to attach tag %d: %w", tagID, err)
			}
		}
	}
	if upd.ToolIDs != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM listing_tools WHERE listing_id = $1`, id); err != nil {
			return false, fmt.Errorf("failed to clear tools: %w", err)
		}
		for _, toolID := range upd.ToolIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO listing_tools (listing_id, tool_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				id, toolID); err != nil {
				return false, fmt.Errorf("failed to attach tool %d: %w", toolID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit update: %w", err)
	}
	return true, nil
}

// GetListingSlug returns the slug of a listing, or "" if it does not exist.
func (db *DB) GetListingSlug(ctx context.Context, id int64) (string, error) {
	var slug string
	err := db.pool.QueryRow(ctx, `SELECT slug FROM listings WHERE id = $1`, id).Scan(&slug)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to get listing slug: %w", err)
	}
	return slug, nil
}

// SlugExists reports whether any listing other than exceptID uses the slug.
// Pass exceptID 0 when creating.
func (db *DB) SlugExists(ctx context.Context, slug string, exceptID int64) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM listings WHERE slug = $1 AND id <> $2)`,
		slug, exceptID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to probe slug: %w", err)
	}
	return exists, nil
}

// SourceURLExists reports whether a listing was already ingested from the
// given source post URL (dedup check A).
func (db *DB) SourceURLExists(ctx context.Context, sourceURL string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM listings WHERE source_url = $1)`,
		sourceURL).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check source url: %w", err)
	}
	return exists, nil
}

// ListingURLsMatching returns stored listing URLs that contain any of the
// given normalized fragments (dedup check B). Matching is case-insensitive
// substring containment.
func (db *DB) ListingURLsMatching(ctx context.Context, fragments []string) ([]string, error) {
	if len(fragments) == 0 {
		return nil, nil
	}

	conds := make([]string, len(fragments))
	args := make([]any, len(fragments))
	for i, f := range fragments {
		conds[i] = fmt.Sprintf("listing_url ILIKE $%d", i+1)
		args[i] = "%" + f + "%"
	}

	rows, err := db.pool.Query(ctx,
		`SELECT listing_url FROM listings WHERE listing_url <> '' AND (`+strings.Join(conds, " OR ")+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to match listing urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan listing url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, nil
}

// SearchListings searches platform-wide by normalized URL fragment and/or
// title fragment, newest first.
func (db *DB) SearchListings(ctx context.Context, urlFragment, titleFragment string, limit int) ([]ListingSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	conds := []string{}
	args := []any{}
	n := 1
	if urlFragment != "" {
		conds = append(conds, fmt.Sprintf("l.listing_url ILIKE $%d", n))
		args = append(args, "%"+urlFragment+"%")
		n++
	}
	if titleFragment != "" {
		conds = append(conds, fmt.Sprintf("l.title ILIKE $%d", n))
		args = append(args, "%"+titleFragment+"%")
		n++
	}
	if len(conds) == 0 {
		return nil, fmt.Errorf("search requires a url or title fragment")
	}

	query := fmt.Sprintf(
		`SELECT l.id, l.title, l.slug, l.status, l.listing_url, l.creator_id, u.username
		 FROM listings l JOIN users u ON u.id = l.creator_id
		 WHERE %s ORDER BY l.created_at DESC LIMIT $%d`,
		strings.Join(conds, " OR "), n)
	args = append(args, limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// ListingsByCreator returns the most recent listings owned by a user.
func (db *DB) ListingsByCreator(ctx context.Context, creatorID uuid.UUID, limit int) ([]ListingSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.pool.Query(ctx,
		`SELECT l.id, l.title, l.slug, l.status, l.listing_url, l.creator_id, u.username
		 FROM listings l JOIN users u ON u.id = l.creator_id
		 WHERE l.creator_id = $1 ORDER BY l.created_at DESC LIMIT $2`,
		creatorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

func scanSummaries(rows pgx.Rows) ([]ListingSummary, error) {
	var out []ListingSummary
	for rows.Next() {
		var (
			s      ListingSummary
			status string
		)
		if err := rows.Scan(&s.ID, &s.Title, &s.Slug, &status, &s.ListingURL, &s.CreatorID, &s.Creator); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		s.Status = types.ListingStatus(status)
		out = append(out, s)
	}
	return out, nil
}
