package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/showyourapp/backend/internal/agent"
	"github.com/showyourapp/backend/internal/browser"
	"github.com/showyourapp/backend/internal/config"
	"github.com/showyourapp/backend/internal/db"
	"github.com/showyourapp/backend/internal/jobs"
	"github.com/showyourapp/backend/internal/llm"
	"github.com/showyourapp/backend/internal/media"
	"github.com/showyourapp/backend/internal/notify"
	"github.com/showyourapp/backend/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server and the ingestion worker",
	Long:  "Start the HTTP server and, when the agent is configured, the background worker that polls for pending ingestion jobs.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	srv, err := server.New(cfg, database)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })

	if cfg.AgentConfigured() {
		client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
		if err != nil {
			return fmt.Errorf("failed to create LLM client: %w", err)
		}

		session := browser.NewSession(cfg.AgentHeadless)
		defer session.Close()

		var uploader agent.Uploader
		if cfg.MediaIssuerURL != "" {
			uploader = media.NewUploader(media.NewHTTPIssuer(cfg.MediaIssuerURL))
		}

		runner := agent.NewRunner(client, database, session, uploader, cfg.PublicBaseURL)
		srv.SetAgentRunner(runner)
		notifier := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
		processor := jobs.NewProcessor(database, runner, notifier)
		scheduler := jobs.NewScheduler(database, processor, cfg.PollInterval, cfg.JobRetention)

		g.Go(func() error { return scheduler.Run(ctx) })
		log.Printf("[JOBS] worker started, polling every %s", cfg.PollInterval)
	} else {
		log.Println("[JOBS] GEMINI_API_KEY not set; ingestion worker disabled")
	}

	return g.Wait()
}
