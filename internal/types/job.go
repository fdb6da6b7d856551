package types

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of an ingestion job.
type JobStatus string

// Job lifecycle states. Pending and Running are the only non-terminal states.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status can never change again.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Valid reports whether s is a known job status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// IngestionJob is a durable batch of source posts queued for processing.
// While running it has exactly one writer (the job processor); API clients
// read snapshots between commits.
type IngestionJob struct {
	ID              int64      `json:"id"`
	Status          JobStatus  `json:"status"`
	Source          string     `json:"source"`
	TotalPosts      int        `json:"total_posts"`
	ProcessedPosts  int        `json:"processed_posts"`
	CreatedCount    int        `json:"created_listings"`
	SkippedPosts    int        `json:"skipped_posts"`
	ErrorCount      int        `json:"error_count"`
	Posts           []Post     `json:"posts,omitempty"`
	CreatedIDs      []int64    `json:"created_listing_ids"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	LogEntries      []string   `json:"log_entries"`
	CancelRequested bool       `json:"cancel_requested"`
	CreatedByID     uuid.UUID  `json:"created_by_id"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}
