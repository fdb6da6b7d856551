// Package agent runs the bounded tool-calling loop that turns a social post
// into a listing.
package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/showyourapp/backend/internal/llm"
	"github.com/showyourapp/backend/internal/prompts"
)

// maxToolTurns bounds the conversation itself; a model stuck re-calling
// non-browser tools forever would otherwise never terminate.
const maxToolTurns = 40

// Result is the outcome of one agent run over one post.
type Result struct {
	// CreatedIDs are the listings created by tool calls during the run.
	CreatedIDs []int64
	// Summary is the model's final free-text answer.
	Summary string
	// Declined is set when the run finished without creating anything:
	// the model judged the post not worth a listing.
	Declined bool
}

// Runner drives agent runs. It is safe to reuse across jobs; all per-run
// state lives in the interpreter it creates for each invocation.
type Runner struct {
	client   llm.Client
	catalog  Catalog
	browser  Browser
	uploader Uploader
	baseURL  string
	system   string
}

// NewRunner creates a runner over the given collaborators. uploader may be
// nil when media uploads are not configured.
func NewRunner(client llm.Client, catalog Catalog, browser Browser, uploader Uploader, baseURL string) *Runner {
	return &Runner{
		client:   client,
		catalog:  catalog,
		browser:  browser,
		uploader: uploader,
		baseURL:  baseURL,
		system:   prompts.MustGet("agent.json", "system"),
	}
}

// Run executes one bounded tool-calling loop for the given task, creating
// listings on behalf of ownerID. Tool failures stay inside the loop as
// structured payloads; only conversation-level faults return an error.
func (r *Runner) Run(ctx context.Context, ownerID uuid.UUID, task string) (*Result, error) {
	interp := NewInterpreter(r.catalog, r.browser, r.uploader, ownerID, r.baseURL)

	conv, err := r.client.StartConversation(llm.TierAdvanced, r.system, interp.Specs())
	if err != nil {
		return nil, fmt.Errorf("failed to start agent conversation: %w", err)
	}

	turn, err := conv.Send(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("agent conversation failed: %w", err)
	}

	for turns := 0; len(turn.Calls) > 0; turns++ {
		if turns >= maxToolTurns {
			return nil, fmt.Errorf("agent exceeded %d tool turns without concluding", maxToolTurns)
		}

		results := make([]llm.ToolResult, 0, len(turn.Calls))
		for _, call := range turn.Calls {
			log.Printf("[AGENT] tool call: %s", call.Name)
			results = append(results, interp.Dispatch(ctx, call))
		}

		turn, err = conv.ReplyTools(ctx, results)
		if err != nil {
			return nil, fmt.Errorf("agent conversation failed: %w", err)
		}
	}

	created := interp.CreatedIDs()
	return &Result{
		CreatedIDs: created,
		Summary:    turn.Text,
		Declined:   len(created) == 0,
	}, nil
}
