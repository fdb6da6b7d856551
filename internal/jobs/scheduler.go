package jobs

import (
	"context"
	"log"
	"time"
)

// purgeEveryTicks interleaves retention housekeeping with polling.
const purgeEveryTicks = 60

// SchedulerStore is the polling surface of the job store.
type SchedulerStore interface {
	OldestPendingJobID(ctx context.Context) (int64, bool, error)
	PurgeJobsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// JobRunner runs one claimed job to completion. *Processor satisfies it.
type JobRunner interface {
	Process(ctx context.Context, jobID int64) error
}

// Scheduler polls for pending jobs on a fixed interval and runs the oldest
// one synchronously before polling again, so at most one job executes per
// process at any time.
type Scheduler struct {
	store     SchedulerStore
	processor JobRunner
	interval  time.Duration
	retention time.Duration
}

// NewScheduler creates a scheduler polling every interval and purging jobs
// older than retention.
func NewScheduler(store SchedulerStore, processor JobRunner, interval, retention time.Duration) *Scheduler {
	return &Scheduler{
		store:     store,
		processor: processor,
		interval:  interval,
		retention: retention,
	}
}

// Run polls until ctx is cancelled. Cancellation is observed between ticks;
// a job already running is not interrupted.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("[SCHEDULER] polling every %s, retention %s", s.interval, s.retention)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			log.Printf("[SCHEDULER] stopping")
			return nil
		case <-ticker.C:
			tick++
			s.poll(ctx)
			if tick%purgeEveryTicks == 0 {
				s.purge(ctx)
			}
		}
	}
}

func (s *Scheduler) poll(ctx context.Context) {
	id, found, err := s.store.OldestPendingJobID(ctx)
	if err != nil {
		log.Printf("[SCHEDULER] failed to poll for jobs: %v", err)
		return
	}
	if !found {
		return
	}

	log.Printf("[SCHEDULER] claiming job %d", id)
	if err := s.processor.Process(ctx, id); err != nil {
		log.Printf("[SCHEDULER] job %d failed: %v", id, err)
	}
}

func (s *Scheduler) purge(ctx context.Context) {
	cutoff := time.Now().Add(-s.retention)
	removed, err := s.store.PurgeJobsBefore(ctx, cutoff)
	if err != nil {
		log.Printf("[SCHEDULER] failed to purge old jobs: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("[SCHEDULER] purged %d jobs older than %s", removed, cutoff.Format(time.RFC3339))
	}
}
