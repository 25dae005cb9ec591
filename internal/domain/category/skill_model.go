package category

import (
	"math"

	"github.com/cphub/cp-training-hub/internal/domain/skill"
)

// ══════════════════════════════════════════════════════════════════════════════
// SKILL MODEL
// ══════════════════════════════════════════════════════════════════════════════

const (
	// defaultGroupSize is the number of solves that share one diminishing
	// group at every difficulty.
	defaultGroupSize = 3

	// defaultGroupBound is the number of full groups after which every
	// further solve forms its own group.
	defaultGroupBound = 10

	// diminishExponent controls how fast repeated groups at the same
	// difficulty lose value.
	diminishExponent = 0.4
)

// SkillModel converts solve histograms into raw skill values with diminishing
// returns: solves of the same difficulty are packed into groups, and each
// further group is worth (1/order)^0.4 of the base score. Bulk and incremental
// computation share the per-solve contribution, so they agree exactly.
type SkillModel struct {
	curve      *skill.Curve
	groupSizes [difficultySlots]int
	groupBound int
}

// SkillResult is the outcome of a skill computation.
type SkillResult struct {
	SkillValue float64
	SkillLevel float64
	SkillTitle string
}

// NewSkillModel creates a SkillModel with the default grouping parameters.
func NewSkillModel(curve *skill.Curve) *SkillModel {
	m := &SkillModel{
		curve:      curve,
		groupBound: defaultGroupBound,
	}
	for i := range m.groupSizes {
		m.groupSizes[i] = defaultGroupSize
	}
	return m
}

// WithGroupSize overrides the group size for one difficulty bucket. Intended
// for per-deployment tuning; returns the model for chaining.
func (m *SkillModel) WithGroupSize(difficulty, size int) *SkillModel {
	if difficulty >= 1 && difficulty < difficultySlots && size > 0 {
		m.groupSizes[difficulty] = size
	}
	return m
}

// contribution returns the skill value added by the k-th solve (1-based) at
// an integer difficulty bucket, scaled by the category link factor.
func (m *SkillModel) contribution(difficulty, k int, factor float64) float64 {
	if k < 1 || difficulty < 1 || difficulty >= difficultySlots {
		return 0
	}

	size := m.groupSizes[difficulty]
	groupedSolves := size * m.groupBound

	var order int
	var weight float64
	if k <= groupedSolves {
		order = (k-1)/size + 1
		weight = 1 / float64(size)
	} else {
		// Past the bound every solve is its own group.
		order = m.groupBound + (k - groupedSolves)
		weight = 1
	}

	base := m.curve.BaseScore(difficulty)
	return base * weight * math.Pow(1/float64(order), diminishExponent) * factor
}

// ComputeBulk recomputes the skill value from a full per-difficulty solve
// histogram. Index 0 of the histogram is ignored.
func (m *SkillModel) ComputeBulk(histogram [difficultySlots]int, factor float64) SkillResult {
	var total float64
	for d := 1; d < difficultySlots; d++ {
		for k := 1; k <= histogram[d]; k++ {
			total += m.contribution(d, k, factor)
		}
	}
	return m.finish(total)
}

// ApplySolve returns the updated skill value after one new solve at the given
// difficulty bucket. The histogram must already include the new solve (the
// caller bumps the counter first); the previous value is advanced by exactly
// the contribution of the latest solve, so incremental and bulk computation
// agree to the last bit.
func (m *SkillModel) ApplySolve(current float64, histogram [difficultySlots]int, difficulty int, factor float64) SkillResult {
	if difficulty < 1 || difficulty >= difficultySlots {
		return m.finish(current)
	}
	k := histogram[difficulty]
	return m.finish(current + m.contribution(difficulty, k, factor))
}

// finish attaches level and title to a raw value. A zero value short-circuits
// to the zero result.
func (m *SkillModel) finish(value float64) SkillResult {
	if value <= 0 {
		return SkillResult{SkillTitle: m.curve.TitleFor(0)}
	}
	return SkillResult{
		SkillValue: value,
		SkillLevel: m.curve.LevelFor(value),
		SkillTitle: m.curve.TitleFor(value),
	}
}
