package scheduler

import (
	"context"

	"github.com/cphub/cp-training-hub/internal/application/sync"
	"github.com/cphub/cp-training-hub/internal/domain/subject"
)

// ══════════════════════════════════════════════════════════════════════════════
// BULK SYNC JOB
// ══════════════════════════════════════════════════════════════════════════════

// BulkSyncJob syncs every active subject on a schedule.
type BulkSyncJob struct {
	runner *sync.BulkRunner
}

// NewBulkSyncJob creates a BulkSyncJob.
func NewBulkSyncJob(runner *sync.BulkRunner) *BulkSyncJob {
	return &BulkSyncJob{runner: runner}
}

// Name implements Job.
func (j *BulkSyncJob) Name() string { return "bulk-sync" }

// Description implements Job.
func (j *BulkSyncJob) Description() string {
	return "synchronizes judge feeds and recomputes skills for all active subjects"
}

// Run implements Job. Per-subject failures are already reported by the
// runner; only listing failures reach the scheduler.
func (j *BulkSyncJob) Run(ctx context.Context) error {
	_, err := j.runner.RunAll(ctx)
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBJECT LISTER ADAPTER
// ══════════════════════════════════════════════════════════════════════════════

// ActiveSubjectLister adapts the subject repository to the bulk runner's
// id-only listing port.
type ActiveSubjectLister struct {
	subjects subject.Repository
}

// NewActiveSubjectLister creates an ActiveSubjectLister.
func NewActiveSubjectLister(subjects subject.Repository) *ActiveSubjectLister {
	return &ActiveSubjectLister{subjects: subjects}
}

// ListActiveIDs implements sync.SubjectLister.
func (l *ActiveSubjectLister) ListActiveIDs(ctx context.Context) ([]string, error) {
	active, err := l.subjects.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(active))
	for _, s := range active {
		ids = append(ids, s.ID)
	}
	return ids, nil
}
