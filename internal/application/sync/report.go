// Package sync implements the synchronization pipeline: discovering new
// solves on external judges and driving every derived skill number back to a
// consistent state.
package sync

import (
	"time"
)

// Command identifies one subject to synchronize. Kind is optional; when set
// it is checked against the stored subject.
type Command struct {
	SubjectID     string
	Kind          string
	CorrelationID string
}

// Report is the bookkeeping of one sync run.
type Report struct {
	SubjectID     string
	SubjectKind   string
	CorrelationID string

	// NewSolves counts problems newly marked solved in this run.
	NewSolves int

	// SkippedMissing counts solves referencing problems or categories the
	// store does not know. Tolerated with a warning.
	SkippedMissing int

	// IntegrityErrors counts category updates aborted by duplicate edges.
	IntegrityErrors int

	// CategoriesTouched counts categories whose skill changed.
	CategoriesTouched int

	// RootsTouched counts root aggregates recomputed.
	RootsTouched int

	// ProblemsRescored counts unsolved problems whose relevance was
	// refreshed.
	ProblemsRescored int

	StartedAt time.Time
	Duration  time.Duration
}

// Changed reports whether the run altered any state.
func (r *Report) Changed() bool {
	return r.NewSolves > 0
}

// BulkReport aggregates a sync run over many subjects.
type BulkReport struct {
	Total     int
	Succeeded int
	Skipped   int
	Failed    int

	// Errors maps subject ids to their failure. Successful subjects do not
	// appear.
	Errors map[string]error

	Duration time.Duration
}
