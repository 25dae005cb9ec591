// Package category contains the category aggregate of the skill tree: the
// category nodes, the per-subject category edges that carry accumulated skill,
// the dependency edges between categories, and the numeric models that turn
// solved problems into skill values and scores.
package category

import (
	"time"

	"github.com/cphub/cp-training-hub/internal/domain/shared"
	"github.com/cphub/cp-training-hub/internal/domain/skill"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATEGORY
// ══════════════════════════════════════════════════════════════════════════════

// Category is one node of the skill tree. Root categories aggregate their
// subtree and carry a share of the overall score via ScorePercentage.
type Category struct {
	ID              string
	Name            string
	Root            bool
	RootID          string // id of the root this category belongs to; equals ID for roots
	ScorePercentage float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks the category invariants.
func (c *Category) Validate() error {
	if c.ID == "" {
		return shared.NewDomainError("category", "Validate", shared.ErrInvalidID, "category id is empty")
	}
	if c.Name == "" {
		return shared.NewDomainError("category", "Validate", shared.ErrValidation, "category name is empty")
	}
	if c.ScorePercentage < 0 || c.ScorePercentage > 100 {
		return shared.ErrInvalidPercentage
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCY EDGE
// ══════════════════════════════════════════════════════════════════════════════

// DependencyEdge declares that FromID depends on ToID with a raw weight.
// Percentage is derived: the factor normalized so all outgoing edges of FromID
// sum to 100. It is recomputed whenever the outgoing edge set changes, never
// stored authoritatively by callers.
type DependencyEdge struct {
	FromID     string
	ToID       string
	Factor     float64
	Percentage float64
}

// Validate checks the dependency edge invariants.
func (e *DependencyEdge) Validate() error {
	if e.FromID == "" || e.ToID == "" {
		return shared.NewDomainError("category", "Validate", shared.ErrInvalidID, "dependency edge endpoint is empty")
	}
	if e.FromID == e.ToID {
		return shared.NewDomainError("category", "Validate", shared.ErrValidation, "category cannot depend on itself")
	}
	if e.Factor <= 0 {
		return shared.ErrInvalidFactor
	}
	return nil
}

// NormalizePercentages recomputes Percentage for a full outgoing edge set so
// that the percentages sum to 100. A zero factor sum leaves all percentages
// at zero.
func NormalizePercentages(edges []DependencyEdge) {
	var total float64
	for i := range edges {
		total += edges[i].Factor
	}
	if total <= 0 {
		for i := range edges {
			edges[i].Percentage = 0
		}
		return
	}
	for i := range edges {
		edges[i].Percentage = edges[i].Factor / total * 100
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// USER EDGE
// ══════════════════════════════════════════════════════════════════════════════

// difficultySlots is the size of the per-difficulty counter array.
// Index 0 is unused; difficulties bucket into 1..10.
const difficultySlots = skill.MaxLevel + 1

// UserEdge is the per-(subject, category) skill record. Exactly one edge may
// exist per pair; a second one is a data-integrity violation.
type UserEdge struct {
	ID         string
	SubjectID  string
	CategoryID string
	RootID     string

	SkillValue             float64
	SkillLevel             float64
	SkillTitle             string
	RelevantScore          float64
	SolveCount             int
	SkillValueByPercentage float64

	// SolvedByDifficulty counts solves per integer difficulty bucket.
	// Index 0 is unused.
	SolvedByDifficulty [difficultySlots]int

	// OldSkillLevel caches the level before the current sync run touched this
	// edge. Transient: populated on first touch, consumed by propagation.
	OldSkillLevel float64

	UpdatedAt time.Time
}

// NewUserEdge creates a fresh zero-skill edge for a subject/category pair.
func NewUserEdge(id, subjectID, categoryID, rootID string) *UserEdge {
	return &UserEdge{
		ID:         id,
		SubjectID:  subjectID,
		CategoryID: categoryID,
		RootID:     rootID,
		UpdatedAt:  time.Now(),
	}
}

// BumpDifficulty records one more solve in the bucket for the given raw
// difficulty. Fractional difficulties round to the nearest bucket; buckets
// clamp to 1..10.
func (e *UserEdge) BumpDifficulty(difficulty float64) {
	e.SolvedByDifficulty[DifficultyBucket(difficulty)]++
	e.SolveCount++
}

// ResetHistory zeroes the accumulated counters and skill numbers. Used by the
// explicit history reset operation only; normal sync never shrinks counters.
func (e *UserEdge) ResetHistory() {
	e.SolvedByDifficulty = [difficultySlots]int{}
	e.SkillValue = 0
	e.SkillLevel = 0
	e.SolveCount = 0
	e.SkillValueByPercentage = 0
	e.OldSkillLevel = 0
	e.UpdatedAt = time.Now()
}

// DifficultyBucket maps a raw difficulty to its integer counter bucket:
// round to nearest, clamped into 1..10.
func DifficultyBucket(difficulty float64) int {
	bucket := int(difficulty + 0.5)
	if bucket < 1 {
		return 1
	}
	if bucket > skill.MaxLevel {
		return skill.MaxLevel
	}
	return bucket
}
