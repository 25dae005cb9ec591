package sync

import (
	"context"
	"log/slog"
	stdsync "sync"
	"time"
)

// JobGuard enforces per-subject mutual exclusion across dispatcher instances.
// A held marker means another run is in flight; the subject is skipped and
// picked up on the next tick.
type JobGuard interface {
	// TryAcquire takes the marker for a subject. Returns false when it is
	// already held.
	TryAcquire(ctx context.Context, subjectID string) (bool, error)

	// Release clears the marker after completion or definitive failure.
	Release(ctx context.Context, subjectID string) error
}

// SubjectLister is the slice of the subject repository the bulk runner needs.
type SubjectLister interface {
	ListActiveIDs(ctx context.Context) ([]string, error)
}

// BulkRunner syncs many subjects with bounded concurrency. Subjects whose
// pending marker is held are skipped, not queued.
type BulkRunner struct {
	engine      *Engine
	subjects    SubjectLister
	guard       JobGuard
	concurrency int
	logger      *slog.Logger
}

// NewBulkRunner creates a BulkRunner. Concurrency below one is raised to one.
func NewBulkRunner(engine *Engine, subjects SubjectLister, guard JobGuard, concurrency int, logger *slog.Logger) *BulkRunner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BulkRunner{
		engine:      engine,
		subjects:    subjects,
		guard:       guard,
		concurrency: concurrency,
		logger:      logger,
	}
}

// RunAll syncs every active subject and returns a per-subject error report.
// Individual failures never abort the batch.
func (r *BulkRunner) RunAll(ctx context.Context) (*BulkReport, error) {
	started := time.Now()

	ids, err := r.subjects.ListActiveIDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &BulkReport{
		Total:  len(ids),
		Errors: make(map[string]error),
	}

	var mu stdsync.Mutex
	var wg stdsync.WaitGroup
	sem := make(chan struct{}, r.concurrency)

	for _, id := range ids {
		select {
		case <-ctx.Done():
			mu.Lock()
			report.Errors[id] = ctx.Err()
			report.Failed++
			mu.Unlock()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(subjectID string) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := r.runOne(ctx, subjectID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case outcome == nil:
				report.Succeeded++
			case outcome == errSkipped:
				report.Skipped++
			default:
				report.Failed++
				report.Errors[subjectID] = outcome
			}
		}(id)
	}

	wg.Wait()
	report.Duration = time.Since(started)

	r.logger.Info("bulk sync finished",
		"total", report.Total,
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", report.Duration)
	return report, nil
}

// errSkipped marks a subject whose pending marker was already held.
var errSkipped = &skippedError{}

type skippedError struct{}

func (*skippedError) Error() string { return "sync already pending" }

// runOne syncs a single subject under its pending marker.
func (r *BulkRunner) runOne(ctx context.Context, subjectID string) error {
	acquired, err := r.guard.TryAcquire(ctx, subjectID)
	if err != nil {
		return err
	}
	if !acquired {
		r.logger.Debug("sync already pending, skipping", "subject_id", subjectID)
		return errSkipped
	}
	defer func() {
		if err := r.guard.Release(ctx, subjectID); err != nil {
			r.logger.Warn("failed to release pending marker", "subject_id", subjectID, "error", err)
		}
	}()

	if _, err := r.engine.Sync(ctx, Command{SubjectID: subjectID}); err != nil {
		r.logger.Error("subject sync failed", "subject_id", subjectID, "error", err)
		return err
	}
	return nil
}
