// Package reddit fetches candidate posts for ingestion jobs.
package reddit

import (
	"context"
	"fmt"
	"time"

	"github.com/loganintech/go-reddit/v2/reddit"
	"golang.org/x/time/rate"

	"github.com/showyourapp/backend/internal/types"
	"github.com/showyourapp/backend/internal/urls"
)

const userAgent = "showyourapp-ingest/1.0"

// Fetcher pulls new posts from a subreddit through the Reddit API.
type Fetcher struct {
	client  *reddit.Client
	limiter *rate.Limiter
}

// NewFetcher creates an API-backed fetcher. Script-type app credentials
// suffice; username and password are only needed for write access.
func NewFetcher(clientID, clientSecret, username, password string) (*Fetcher, error) {
	creds := reddit.Credentials{ID: clientID, Secret: clientSecret, Username: username, Password: password}

	client, err := reddit.NewClient(creds, reddit.WithUserAgent(userAgent))
	if err != nil {
		return nil, fmt.Errorf("failed to create reddit client: %w", err)
	}

	// API rate limit is ~60 requests/min; stay under it.
	return &Fetcher{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}, nil
}

// FetchNewPosts returns up to limit new posts from the subreddit, with
// candidate URLs pre-extracted from the post body.
func (f *Fetcher) FetchNewPosts(ctx context.Context, subreddit string, limit int) ([]types.Post, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	posts, _, err := f.client.Subreddit.NewPosts(ctx, subreddit, &reddit.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts from r/%s: %w", subreddit, err)
	}

	result := make([]types.Post, 0, len(posts))
	for _, p := range posts {
		result = append(result, types.Post{
			Title:         p.Title,
			SelfText:      p.Body,
			Permalink:     p.Permalink,
			Score:         p.Score,
			CreatedUTC:    float64(p.Created.Time.Unix()),
			ExtractedURLs: urls.Extract(p.Body),
		})
	}
	return result, nil
}
