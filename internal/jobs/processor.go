// Package jobs runs ingestion jobs: polling, claiming, per-post processing.
package jobs

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/showyourapp/backend/internal/agent"
	"github.com/showyourapp/backend/internal/prompts"
	"github.com/showyourapp/backend/internal/types"
	"github.com/showyourapp/backend/internal/urls"
)

// Error messages are truncated before persisting: per-post errors to 200
// characters, a job-fatal message to 500.
const (
	postErrorLimit = 200
	jobErrorLimit  = 500
)

// Store is the job and dedup storage surface the processor needs.
// *db.DB satisfies it.
type Store interface {
	GetJob(ctx context.Context, id int64) (*types.IngestionJob, error)
	MarkJobRunning(ctx context.Context, id int64) (bool, error)
	UpdateJobProgress(ctx context.Context, job *types.IngestionJob) error
	FinishJob(ctx context.Context, job *types.IngestionJob, status types.JobStatus, errorMessage string) error
	JobCancelRequested(ctx context.Context, id int64) (bool, error)
	SourceURLExists(ctx context.Context, sourceURL string) (bool, error)
	ListingURLsMatching(ctx context.Context, fragments []string) ([]string, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*types.User, error)
}

// Runner is the agent invocation surface. *agent.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, ownerID uuid.UUID, task string) (*agent.Result, error)
}

// Notifier pushes an operator notification. May be nil.
type Notifier interface {
	Notify(message string)
}

// Processor runs one claimed job to a terminal state.
type Processor struct {
	store    Store
	runner   Runner
	notifier Notifier
}

// NewProcessor creates a processor. notifier may be nil.
func NewProcessor(store Store, runner Runner, notifier Notifier) *Processor {
	return &Processor{store: store, runner: runner, notifier: notifier}
}

// postOutcome is the folded result of processing one post.
type postOutcome struct {
	createdIDs []int64
	skipReason string
	matched    []string // existing listing URLs, for url_exists skips
	err        error
}

// Process claims a pending job and runs it to completion. Per-post failures
// are counted and logged; only faults outside the per-post boundary fail the
// whole job.
func (p *Processor) Process(ctx context.Context, jobID int64) error {
	job, err := p.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil || job.Status != types.JobStatusPending {
		return nil
	}

	claimed, err := p.store.MarkJobRunning(ctx, jobID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}
	job.Status = types.JobStatusRunning

	owner, err := p.store.GetUserByID(ctx, job.CreatedByID)
	if err != nil {
		return p.failJob(ctx, job, fmt.Errorf("failed to resolve creator: %w", err))
	}
	if owner == nil {
		return p.failJob(ctx, job, fmt.Errorf("creator user not found"))
	}

	total := len(job.Posts)
	p.addLog(ctx, job, fmt.Sprintf("Starting processing of %d posts", total))

	for i, post := range job.Posts {
		cancelled, err := p.store.JobCancelRequested(ctx, jobID)
		if err != nil {
			return p.failJob(ctx, job, fmt.Errorf("failed to read cancel flag: %w", err))
		}
		if cancelled {
			job.LogEntries = append(job.LogEntries, fmt.Sprintf("Cancelled at post %d/%d", i+1, total))
			p.finish(ctx, job, types.JobStatusCancelled, "")
			return nil
		}

		p.addLog(ctx, job, fmt.Sprintf("[%d/%d] Processing: %s...", i+1, total, truncate(post.Title, 60)))

		outcome := p.processPost(ctx, owner, &post, job.Source)
		switch {
		case outcome.err != nil:
			job.ErrorCount++
			job.LogEntries = append(job.LogEntries, "  Error: "+truncate(outcome.err.Error(), postErrorLimit))
		case outcome.skipReason != "":
			job.SkippedPosts++
			line := "  Skipped: " + outcome.skipReason
			if len(outcome.matched) > 0 {
				line += " (existing: " + strings.Join(outcome.matched, ", ") + ")"
			}
			job.LogEntries = append(job.LogEntries, line)
		default:
			job.CreatedCount += len(outcome.createdIDs)
			job.CreatedIDs = append(job.CreatedIDs, outcome.createdIDs...)
			job.LogEntries = append(job.LogEntries, fmt.Sprintf("  Created listings: %v", outcome.createdIDs))
		}

		job.ProcessedPosts++
		if err := p.store.UpdateJobProgress(ctx, job); err != nil {
			return p.failJob(ctx, job, fmt.Errorf("failed to persist progress: %w", err))
		}
	}

	job.LogEntries = append(job.LogEntries, fmt.Sprintf(
		"Completed. Created %d listings, skipped %d, errors %d",
		job.CreatedCount, job.SkippedPosts, job.ErrorCount))
	p.finish(ctx, job, types.JobStatusCompleted, "")
	return nil
}

// processPost is the per-post boundary: any error escaping it is counted,
// logged and swallowed by the caller.
func (p *Processor) processPost(ctx context.Context, owner *types.User, post *types.Post, source string) postOutcome {
	candidates := post.ExtractedURLs
	if len(candidates) == 0 {
		candidates = urls.Extract(post.SelfText)
	}
	if len(candidates) == 0 {
		return postOutcome{skipReason: "no_urls"}
	}

	permalink := post.AbsolutePermalink()
	exists, err := p.store.SourceURLExists(ctx, permalink)
	if err != nil {
		return postOutcome{err: err}
	}
	if exists {
		return postOutcome{skipReason: "post_exists"}
	}

	var fragments []string
	for _, c := range candidates {
		if n := urls.Normalize(c); n != "" {
			fragments = append(fragments, n)
		}
	}
	matched, err := p.store.ListingURLsMatching(ctx, fragments)
	if err != nil {
		return postOutcome{err: err}
	}
	if len(matched) > 0 {
		return postOutcome{skipReason: "url_exists", matched: matched}
	}

	task := buildTask(post, permalink, source)
	result, err := p.runner.Run(ctx, owner.ID, task)
	if err != nil {
		return postOutcome{err: err}
	}
	if result.Declined {
		return postOutcome{skipReason: "agent_declined"}
	}
	return postOutcome{createdIDs: result.CreatedIDs}
}

// buildTask renders the per-post agent task from the embedded template.
func buildTask(post *types.Post, permalink, source string) string {
	if source == "" {
		source = "r/SideProject"
	}
	template := prompts.MustGet("agent.json", "task")
	return prompts.Format(template, map[string]string{
		"Source":    source,
		"Title":     post.Title,
		"Body":      post.SelfText,
		"Permalink": permalink,
	})
}

// addLog appends a log line and persists immediately so polling clients see
// progress.
func (p *Processor) addLog(ctx context.Context, job *types.IngestionJob, line string) {
	job.LogEntries = append(job.LogEntries, line)
	if err := p.store.UpdateJobProgress(ctx, job); err != nil {
		log.Printf("[JOBS] failed to persist log for job %d: %v", job.ID, err)
	}
}

func (p *Processor) failJob(ctx context.Context, job *types.IngestionJob, cause error) error {
	msg := truncate(cause.Error(), jobErrorLimit)
	job.LogEntries = append(job.LogEntries, "Job failed: "+truncate(cause.Error(), postErrorLimit))
	p.finish(ctx, job, types.JobStatusFailed, msg)
	return cause
}

func (p *Processor) finish(ctx context.Context, job *types.IngestionJob, status types.JobStatus, errorMessage string) {
	if err := p.store.FinishJob(ctx, job, status, errorMessage); err != nil {
		log.Printf("[JOBS] failed to finish job %d: %v", job.ID, err)
		return
	}
	log.Printf("[JOBS] job %d finished: %s (created=%d skipped=%d errors=%d)",
		job.ID, status, job.CreatedCount, job.SkippedPosts, job.ErrorCount)

	if p.notifier != nil {
		p.notifier.Notify(fmt.Sprintf(
			"Ingestion job %d %s: %d created, %d skipped, %d errors",
			job.ID, status, job.CreatedCount, job.SkippedPosts, job.ErrorCount))
	}
}

// truncate caps s at limit bytes without splitting a multibyte rune, so
// truncated log lines stay valid UTF-8.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
