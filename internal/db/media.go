package db

import (
	"context"
	"fmt"

	"github.com/showyourapp/backend/internal/types"
)

// -----------------------------------------------------------------------------
// Listing Media Methods
// -----------------------------------------------------------------------------

// AddListingMedia attaches a stored media URL to a listing.
func (db *DB) AddListingMedia(ctx context.Context, listingID int64, mediaURL string) (int64, error) {
	var id int64
	err := db.pool.QueryRow(ctx,
		`INSERT INTO listing_media (listing_id, media_url) VALUES ($1, $2) RETURNING id`,
		listingID, mediaURL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to add listing media: %w", err)
	}
	return id, nil
}

// ListingMedia returns the media attached to a listing, oldest first.
func (db *DB) ListingMedia(ctx context.Context, listingID int64) ([]types.ListingMedia, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, listing_id, media_url FROM listing_media
		 WHERE listing_id = $1 ORDER BY created_at`, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	defer rows.Close()

	var media []types.ListingMedia
	for rows.Next() {
		var m types.ListingMedia
		if err := rows.Scan(&m.ID, &m.ListingID, &m.MediaURL); err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		media = append(media, m)
	}
	return media, nil
}
