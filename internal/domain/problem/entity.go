// Package problem contains the problem aggregate: the problems themselves,
// the per-subject problem edges tracking status and submissions, and the
// relevance score model that ranks unsolved problems for a subject.
package problem

import (
	"time"

	"github.com/cphub/cp-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the per-subject state of a problem.
type Status string

const (
	StatusUnsolved   Status = "UNSOLVED"
	StatusSolved     Status = "SOLVED"
	StatusSolveLater Status = "SOLVE_LATER"
	StatusSkip       Status = "SKIP"
	StatusFlagged    Status = "FLAGGED"
)

// IsValid reports whether the status is one of the known states.
func (s Status) IsValid() bool {
	switch s {
	case StatusUnsolved, StatusSolved, StatusSolveLater, StatusSkip, StatusFlagged:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving to the target status is allowed.
// SOLVED is terminal: once a problem is solved it can never be downgraded.
func (s Status) CanTransitionTo(target Status) bool {
	if !target.IsValid() {
		return false
	}
	if s == StatusSolved {
		return target == StatusSolved
	}
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// PROBLEM
// ══════════════════════════════════════════════════════════════════════════════

// CategoryLink attaches a problem to a category with a contribution factor.
// The factor scales how much a solve of this problem trains the category.
type CategoryLink struct {
	CategoryID string
	Factor     float64
}

// Problem is one training problem imported from an online judge.
type Problem struct {
	ID            string
	Title         string
	OJName        string
	Difficulty    float64
	Active        bool
	CategoryLinks []CategoryLink
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate checks the problem invariants. The difficulty range is validated
// at the storage boundary; computations clamp instead.
func (p *Problem) Validate() error {
	if p.ID == "" {
		return shared.NewDomainError("problem", "Validate", shared.ErrInvalidID, "problem id is empty")
	}
	if p.Difficulty < 0 || p.Difficulty > 10 {
		return shared.ErrInvalidDifficulty
	}
	for _, link := range p.CategoryLinks {
		if link.CategoryID == "" {
			return shared.NewDomainError("problem", "Validate", shared.ErrInvalidID, "category link id is empty")
		}
		if link.Factor <= 0 {
			return shared.ErrInvalidFactor
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// USER EDGE
// ══════════════════════════════════════════════════════════════════════════════

// Submission is one accepted submission observed on the judge.
type Submission struct {
	Link        string    `json:"link"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// UserEdge is the per-(subject, problem) record: status, relevance score and
// the append-only submission list.
type UserEdge struct {
	ID            string
	SubjectID     string
	ProblemID     string
	Status        Status
	RelevantScore float64
	Submissions   []Submission
	UpdatedAt     time.Time
}

// NewUserEdge creates a fresh unsolved edge.
func NewUserEdge(id, subjectID, problemID string) *UserEdge {
	return &UserEdge{
		ID:        id,
		SubjectID: subjectID,
		ProblemID: problemID,
		Status:    StatusUnsolved,
		UpdatedAt: time.Now(),
	}
}

// IsSolved reports whether the edge has reached the terminal state.
func (e *UserEdge) IsSolved() bool {
	return e.Status == StatusSolved
}

// UpdateStatus moves the edge to a new status, enforcing that SOLVED is
// terminal.
func (e *UserEdge) UpdateStatus(target Status) error {
	if !e.Status.CanTransitionTo(target) {
		return shared.ErrSolvedIsTerminal
	}
	e.Status = target
	e.UpdatedAt = time.Now()
	return nil
}

// MarkSolved transitions the edge to SOLVED with the given submissions
// appended. A solved edge must carry at least one submission; marking an
// already solved edge again only appends the new submissions.
func (e *UserEdge) MarkSolved(submissions []Submission) error {
	if !e.IsSolved() && len(e.Submissions)+len(submissions) == 0 {
		return shared.ErrEmptySubmissions
	}
	e.Status = StatusSolved
	e.Submissions = append(e.Submissions, submissions...)
	e.UpdatedAt = time.Now()
	return nil
}
