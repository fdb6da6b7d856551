package jobs

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showyourapp/backend/internal/agent"
	"github.com/showyourapp/backend/internal/types"
)

// memStore is an in-memory processor store.
type memStore struct {
	job  *types.IngestionJob
	user *types.User

	sourceURLs  map[string]bool
	listingURLs []string

	userErr error

	// cancelAfter requests cancellation once ProcessedPosts reaches the value.
	cancelAfter int

	progressWrites int
}

func newMemStore(job *types.IngestionJob) *memStore {
	user := &types.User{ID: job.CreatedByID, Username: "admin", IsAdmin: true}
	return &memStore{
		job:         job,
		user:        user,
		sourceURLs:  map[string]bool{},
		cancelAfter: -1,
	}
}

func (m *memStore) GetJob(_ context.Context, id int64) (*types.IngestionJob, error) {
	if m.job == nil || m.job.ID != id {
		return nil, nil
	}
	snapshot := *m.job
	return &snapshot, nil
}

func (m *memStore) MarkJobRunning(_ context.Context, id int64) (bool, error) {
	if m.job.Status != types.JobStatusPending {
		return false, nil
	}
	m.job.Status = types.JobStatusRunning
	return true, nil
}

func (m *memStore) UpdateJobProgress(_ context.Context, job *types.IngestionJob) error {
	m.progressWrites++
	m.job.ProcessedPosts = job.ProcessedPosts
	m.job.CreatedCount = job.CreatedCount
	m.job.SkippedPosts = job.SkippedPosts
	m.job.ErrorCount = job.ErrorCount
	m.job.CreatedIDs = append([]int64(nil), job.CreatedIDs...)
	m.job.LogEntries = append([]string(nil), job.LogEntries...)
	return nil
}

func (m *memStore) FinishJob(_ context.Context, job *types.IngestionJob, status types.JobStatus, errorMessage string) error {
	if m.job.Status.Terminal() {
		return nil
	}
	m.job.Status = status
	m.job.ErrorMessage = errorMessage
	m.job.LogEntries = append([]string(nil), job.LogEntries...)
	return nil
}

func (m *memStore) JobCancelRequested(_ context.Context, _ int64) (bool, error) {
	return m.cancelAfter >= 0 && m.job.ProcessedPosts >= m.cancelAfter, nil
}

func (m *memStore) SourceURLExists(_ context.Context, sourceURL string) (bool, error) {
	return m.sourceURLs[sourceURL], nil
}

func (m *memStore) ListingURLsMatching(_ context.Context, fragments []string) ([]string, error) {
	var matched []string
	for _, existing := range m.listingURLs {
		for _, f := range fragments {
			if strings.Contains(strings.ToLower(existing), f) {
				matched = append(matched, existing)
				break
			}
		}
	}
	return matched, nil
}

func (m *memStore) GetUserByID(_ context.Context, id uuid.UUID) (*types.User, error) {
	if m.userErr != nil {
		return nil, m.userErr
	}
	if m.user == nil || m.user.ID != id {
		return nil, nil
	}
	return m.user, nil
}

// stubRunner scripts per-invocation agent outcomes.
type stubRunner struct {
	results []*agent.Result
	errs    []error
	calls   int
	tasks   []string
}

func (s *stubRunner) Run(_ context.Context, _ uuid.UUID, task string) (*agent.Result, error) {
	i := s.calls
	s.calls++
	s.tasks = append(s.tasks, task)
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.results) {
		return s.results[i], nil
	}
	return &agent.Result{Declined: true}, nil
}

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) Notify(message string) {
	r.messages = append(r.messages, message)
}

func pendingJob(posts ...types.Post) *types.IngestionJob {
	return &types.IngestionJob{
		ID:          1,
		Status:      types.JobStatusPending,
		Source:      "SideProject",
		TotalPosts:  len(posts),
		Posts:       posts,
		CreatedByID: uuid.New(),
	}
}

func TestProcess_MixedOutcomes(t *testing.T) {
	// Post A: no URLs. Post B: URL already listed. Post C: novel, agent creates.
	job := pendingJob(
		types.Post{Title: "Just a question", SelfText: "how do you market?"},
		types.Post{Title: "My tracker", SelfText: "live at https://tracked.app", Permalink: "/r/SideProject/b"},
		types.Post{Title: "PixelPet", SelfText: "see https://pixelpet.app", Permalink: "/r/SideProject/c"},
	)
	store := newMemStore(job)
	store.listingURLs = []string{"https://www.tracked.app"}

	runner := &stubRunner{results: []*agent.Result{
		{CreatedIDs: []int64{42}, Summary: "created"},
	}}
	notifier := &recordingNotifier{}

	p := NewProcessor(store, runner, notifier)
	require.NoError(t, p.Process(context.Background(), 1))

	assert.Equal(t, types.JobStatusCompleted, store.job.Status)
	assert.Equal(t, 3, store.job.ProcessedPosts)
	assert.Equal(t, 2, store.job.SkippedPosts)
	assert.Equal(t, 1, store.job.CreatedCount)
	assert.Equal(t, []int64{42}, store.job.CreatedIDs)

	// Only the novel post reached the agent.
	assert.Equal(t, 1, runner.calls)

	logText := strings.Join(store.job.LogEntries, "\n")
	assert.Contains(t, logText, "Skipped: no_urls")
	assert.Contains(t, logText, "Skipped: url_exists")
	assert.Contains(t, logText, "existing: https://www.tracked.app")
	assert.Contains(t, logText, "Created listings: [42]")
	assert.Contains(t, logText, "Completed. Created 1 listings, skipped 2, errors 0")

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "1 created")
}

func TestProcess_CancellationBetweenPosts(t *testing.T) {
	job := pendingJob(
		types.Post{Title: "First", SelfText: "https://one.app"},
		types.Post{Title: "Second", SelfText: "https://two.app"},
		types.Post{Title: "Third", SelfText: "https://three.app"},
	)
	store := newMemStore(job)
	store.cancelAfter = 1 // flag observed once post 1 has been processed

	runner := &stubRunner{results: []*agent.Result{
		{CreatedIDs: []int64{7}},
		{CreatedIDs: []int64{8}},
		{CreatedIDs: []int64{9}},
	}}

	p := NewProcessor(store, runner, nil)
	require.NoError(t, p.Process(context.Background(), 1))

	assert.Equal(t, types.JobStatusCancelled, store.job.Status)
	assert.Equal(t, 1, store.job.ProcessedPosts)
	assert.Equal(t, 1, runner.calls)
	assert.Contains(t, strings.Join(store.job.LogEntries, "\n"), "Cancelled at post 2/3")
}

func TestProcess_PostExistsSkipsAgent(t *testing.T) {
	job := pendingJob(types.Post{
		Title:     "Repost",
		SelfText:  "https://repost.app",
		Permalink: "/r/SideProject/dup",
	})
	store := newMemStore(job)
	store.sourceURLs["https://reddit.com/r/SideProject/dup"] = true

	runner := &stubRunner{}
	p := NewProcessor(store, runner, nil)
	require.NoError(t, p.Process(context.Background(), 1))

	assert.Equal(t, types.JobStatusCompleted, store.job.Status)
	assert.Equal(t, 1, store.job.SkippedPosts)
	assert.Equal(t, 0, runner.calls)
	assert.Contains(t, strings.Join(store.job.LogEntries, "\n"), "Skipped: post_exists")
}

func TestProcess_AgentDeclineCountsAsSkip(t *testing.T) {
	job := pendingJob(types.Post{Title: "Meh", SelfText: "https://meh.app"})
	store := newMemStore(job)

	runner := &stubRunner{results: []*agent.Result{{Declined: true, Summary: "spam"}}}
	p := NewProcessor(store, runner, nil)
	require.NoError(t, p.Process(context.Background(), 1))

	assert.Equal(t, 1, store.job.SkippedPosts)
	assert.Equal(t, 0, store.job.ErrorCount)
	assert.Contains(t, strings.Join(store.job.LogEntries, "\n"), "Skipped: agent_declined")
}

func TestProcess_PerPostErrorIsIsolated(t *testing.T) {
	job := pendingJob(
		types.Post{Title: "Broken", SelfText: "https://broken.app"},
		types.Post{Title: "Fine", SelfText: "https://fine.app"},
	)
	store := newMemStore(job)

	runner := &stubRunner{
		errs:    []error{fmt.Errorf("agent exploded: %s", strings.Repeat("x", 300)), nil},
		results: []*agent.Result{nil, {CreatedIDs: []int64{5}}},
	}

	p := NewProcessor(store, runner, nil)
	require.NoError(t, p.Process(context.Background(), 1))

	assert.Equal(t, types.JobStatusCompleted, store.job.Status)
	assert.Equal(t, 2, store.job.ProcessedPosts)
	assert.Equal(t, 1, store.job.ErrorCount)
	assert.Equal(t, 1, store.job.CreatedCount)

	// The error line is truncated.
	var errLine string
	for _, l := range store.job.LogEntries {
		if strings.HasPrefix(l, "  Error: ") {
			errLine = l
		}
	}
	require.NotEmpty(t, errLine)
	assert.LessOrEqual(t, len(errLine), len("  Error: ")+postErrorLimit)
}

func TestProcess_MissingCreatorFailsJob(t *testing.T) {
	job := pendingJob(types.Post{Title: "Orphan", SelfText: "https://orphan.app"})
	store := newMemStore(job)
	store.user = nil

	p := NewProcessor(store, &stubRunner{}, nil)
	err := p.Process(context.Background(), 1)
	require.Error(t, err)

	assert.Equal(t, types.JobStatusFailed, store.job.Status)
	assert.Equal(t, "creator user not found", store.job.ErrorMessage)
	assert.Equal(t, 0, store.job.ProcessedPosts)
}

func TestProcess_AccountingInvariant(t *testing.T) {
	job := pendingJob(
		types.Post{Title: "A"},
		types.Post{Title: "B", SelfText: "https://b.app"},
		types.Post{Title: "C", SelfText: "https://c.app"},
		types.Post{Title: "D", SelfText: "https://d.app"},
	)
	store := newMemStore(job)
	runner := &stubRunner{
		errs: []error{nil, fmt.Errorf("boom"), nil},
		results: []*agent.Result{
			{CreatedIDs: []int64{1}},
			nil,
			{Declined: true},
		},
	}

	p := NewProcessor(store, runner, nil)
	require.NoError(t, p.Process(context.Background(), 1))

	j := store.job
	assert.Equal(t, 4, j.ProcessedPosts)
	assert.Equal(t, j.ProcessedPosts, j.SkippedPosts+len(j.CreatedIDs)+j.ErrorCount)
}

func TestProcess_TaskEmbedsPostDetails(t *testing.T) {
	job := pendingJob(types.Post{
		Title:     "PixelPet",
		SelfText:  "An AI pet at https://pixelpet.app",
		Permalink: "/r/SideProject/px",
	})
	store := newMemStore(job)
	runner := &stubRunner{results: []*agent.Result{{CreatedIDs: []int64{1}}}}

	p := NewProcessor(store, runner, nil)
	require.NoError(t, p.Process(context.Background(), 1))

	require.Len(t, runner.tasks, 1)
	task := runner.tasks[0]
	assert.Contains(t, task, "PixelPet")
	assert.Contains(t, task, "An AI pet at https://pixelpet.app")
	assert.Contains(t, task, "https://reddit.com/r/SideProject/px")
}

func TestProcess_TaskCarriesJobSource(t *testing.T) {
	job := pendingJob(types.Post{Title: "Tool", SelfText: "https://tool.dev"})
	job.Source = "r/indiehackers"
	store := newMemStore(job)
	runner := &stubRunner{results: []*agent.Result{{CreatedIDs: []int64{1}}}}

	p := NewProcessor(store, runner, nil)
	require.NoError(t, p.Process(context.Background(), 1))

	require.Len(t, runner.tasks, 1)
	assert.Contains(t, runner.tasks[0], "r/indiehackers")
	assert.NotContains(t, runner.tasks[0], "r/SideProject")
}

func TestTruncate_RuneBoundary(t *testing.T) {
	// "é" is two bytes; a byte-index cut would split it.
	s := "abc" + strings.Repeat("é", 10)

	cut := truncate(s, 4)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, "abc", cut)

	cut = truncate(s, 5)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, "abcé", cut)

	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "", truncate("ééé", 1))
}

func TestProcess_AlreadyClaimedJobIsLeftAlone(t *testing.T) {
	job := pendingJob(types.Post{Title: "X", SelfText: "https://x.app"})
	job.Status = types.JobStatusRunning
	store := newMemStore(job)

	runner := &stubRunner{}
	p := NewProcessor(store, runner, nil)
	require.NoError(t, p.Process(context.Background(), 1))

	assert.Equal(t, 0, runner.calls)
	assert.Equal(t, types.JobStatusRunning, store.job.Status)
}
