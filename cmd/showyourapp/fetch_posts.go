package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/showyourapp/backend/internal/config"
	"github.com/showyourapp/backend/internal/db"
	"github.com/showyourapp/backend/internal/reddit"
	"github.com/showyourapp/backend/internal/types"
)

var (
	fetchSubreddit string
	fetchLimit     int
	fetchOut       string
	fetchSubmit    bool
	fetchCreator   string
)

var fetchPostsCmd = &cobra.Command{
	Use:   "fetch-posts",
	Short: "Fetch new posts from a subreddit",
	Long:  "Fetch new posts from a subreddit via the Reddit API. Writes a posts JSON file suitable for submit, or enqueues a job directly with --submit.",
	RunE:  runFetchPosts,
}

func init() {
	fetchPostsCmd.Flags().StringVar(&fetchSubreddit, "subreddit", "SideProject", "Subreddit to fetch from")
	fetchPostsCmd.Flags().IntVar(&fetchLimit, "limit", 25, "Maximum number of posts to fetch")
	fetchPostsCmd.Flags().StringVarP(&fetchOut, "out", "o", "", "Output file (default stdout)")
	fetchPostsCmd.Flags().BoolVar(&fetchSubmit, "submit", false, "Enqueue an ingestion job instead of writing JSON")
	fetchPostsCmd.Flags().StringVarP(&fetchCreator, "creator", "c", "", "Username of the admin submitting the job (required with --submit)")

	rootCmd.AddCommand(fetchPostsCmd)
}

func runFetchPosts(_ *cobra.Command, _ []string) error {
	if fetchSubmit && fetchCreator == "" {
		return fmt.Errorf("--creator is required with --submit")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.RedditClientID == "" || cfg.RedditClientSecret == "" {
		return fmt.Errorf("REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET are required")
	}

	fetcher, err := reddit.NewFetcher(cfg.RedditClientID, cfg.RedditClientSecret, cfg.RedditUsername, cfg.RedditPassword)
	if err != nil {
		return err
	}

	ctx := context.Background()
	posts, err := fetcher.FetchNewPosts(ctx, fetchSubreddit, fetchLimit)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return fmt.Errorf("no posts fetched from r/%s", fetchSubreddit)
	}

	if fetchSubmit {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		creator, err := database.GetUserByUsername(ctx, fetchCreator)
		if err != nil {
			return err
		}
		if creator == nil {
			return fmt.Errorf("creator user not found: %s", fetchCreator)
		}
		if !creator.IsAdmin {
			return fmt.Errorf("creator %s is not an admin", fetchCreator)
		}

		id, err := database.CreateJob(ctx, &types.IngestionJob{
			Source:      "r/" + fetchSubreddit,
			Posts:       posts,
			CreatedByID: creator.ID,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Enqueued ingestion job %d with %d posts from r/%s\n", id, len(posts), fetchSubreddit)
		return nil
	}

	raw, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode posts: %w", err)
	}

	if fetchOut == "" {
		fmt.Fprintln(os.Stdout, string(raw))
		return nil
	}
	if err := os.WriteFile(fetchOut, raw, 0644); err != nil {
		return fmt.Errorf("failed to write posts file: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Wrote %d posts to %s\n", len(posts), fetchOut)
	return nil
}
