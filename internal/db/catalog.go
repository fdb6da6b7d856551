package db

import (
	"context"
	"fmt"

	"github.com/showyourapp/backend/internal/types"
)

// -----------------------------------------------------------------------------
// Catalog Methods
// -----------------------------------------------------------------------------

// ListTags returns all tags ordered by name.
func (db *DB) ListTags(ctx context.Context) ([]types.Tag, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []types.Tag
	for rows.Next() {
		var t types.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// ListTools returns all builder tools ordered by name.
func (db *DB) ListTools(ctx context.Context) ([]types.BuilderTool, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, name FROM tools ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	defer rows.Close()

	var tools []types.BuilderTool
	for rows.Next() {
		var t types.BuilderTool
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tool: %w", err)
		}
		tools = append(tools, t)
	}
	return tools, nil
}
