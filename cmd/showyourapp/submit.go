package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/showyourapp/backend/internal/config"
	"github.com/showyourapp/backend/internal/db"
	"github.com/showyourapp/backend/internal/schemas"
	"github.com/showyourapp/backend/internal/types"
)

var (
	submitPostsFile string
	submitSource    string
	submitCreator   string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Enqueue an ingestion job from a posts JSON file",
	Long:  "Validate a JSON file of source posts and enqueue it as a pending ingestion job. The worker picks it up on its next poll.",
	RunE:  runSubmit,
}

func init() {
	submitCmd.Flags().StringVarP(&submitPostsFile, "posts", "p", "", "Path to posts JSON file (required)")
	submitCmd.Flags().StringVarP(&submitSource, "source", "s", "r/SideProject", "Source label for the job")
	submitCmd.Flags().StringVarP(&submitCreator, "creator", "c", "", "Username of the admin submitting the job (required)")

	submitCmd.MarkFlagRequired("posts")
	submitCmd.MarkFlagRequired("creator")

	rootCmd.AddCommand(submitCmd)
}

func runSubmit(_ *cobra.Command, _ []string) error {
	posts, err := readPosts(submitPostsFile)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	creator, err := database.GetUserByUsername(ctx, submitCreator)
	if err != nil {
		return err
	}
	if creator == nil {
		return fmt.Errorf("creator user not found: %s", submitCreator)
	}
	if !creator.IsAdmin {
		return fmt.Errorf("creator %s is not an admin", submitCreator)
	}

	id, err := database.CreateJob(ctx, &types.IngestionJob{
		Source:      submitSource,
		Posts:       posts,
		CreatedByID: creator.ID,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Enqueued ingestion job %d with %d posts\n", id, len(posts))
	return nil
}

// readPosts loads and validates a posts JSON file.
func readPosts(path string) ([]types.Post, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read posts file: %w", err)
	}

	if err := schemas.ValidatePosts(raw); err != nil {
		return nil, fmt.Errorf("posts file is invalid: %w", err)
	}

	var posts []types.Post
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, fmt.Errorf("failed to decode posts file: %w", err)
	}
	return posts, nil
}
