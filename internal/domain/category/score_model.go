package category

import (
	"math"

	"github.com/cphub/cp-training-hub/internal/domain/skill"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORE MODEL
// ══════════════════════════════════════════════════════════════════════════════

const (
	// ownShare is the weight of a category's own level in its relevant score
	// when it has dependencies.
	ownShare = 0.3

	// dependencyShare is the total weight distributed over the categories
	// this one depends on, proportional to their dependency percentages.
	dependencyShare = 0.7
)

// ownScores maps an integer own level to the own contribution: high when the
// category is weak (much to gain), approaching zero as it is mastered.
var ownScores = [skill.MaxLevel + 1]float64{100, 90, 80, 70, 61, 52, 43, 34, 25, 16, 8}

// dependentScores maps an integer dependency level to the dependency
// contribution: low while the prerequisite is weak, growing as it is mastered
// and the dependent category becomes worth training.
var dependentScores = [skill.MaxLevel + 1]float64{8, 16, 25, 34, 43, 52, 61, 70, 80, 90, 100}

// DependencyLevel is the input of a dependency contribution: the current
// skill level of a category this one depends on, and the share of the
// dependency budget it holds.
type DependencyLevel struct {
	Level      float64
	Percentage float64
}

// ScoreModel computes a category's relevant score: how worthwhile it is to
// train right now, on a 0-100 scale, from its own level and the levels of the
// categories it depends on.
type ScoreModel struct{}

// NewScoreModel creates a ScoreModel.
func NewScoreModel() *ScoreModel {
	return &ScoreModel{}
}

// interpolate reads a level table at a fractional level with unit-band linear
// interpolation. Levels outside [0, 10] clamp to the boundary entries.
func interpolate(table [skill.MaxLevel + 1]float64, level float64) float64 {
	if level <= 0 {
		return table[0]
	}
	if level >= skill.MaxLevel {
		return table[skill.MaxLevel]
	}
	idx := int(math.Floor(level))
	frac := level - float64(idx)
	return table[idx] + frac*(table[idx+1]-table[idx])
}

// OwnScore returns the own contribution of a category at the given level.
func (m *ScoreModel) OwnScore(level float64) float64 {
	return interpolate(ownScores, level)
}

// DependencyScore returns the contribution of one dependency at the given
// level holding the given percentage of the dependency budget. The 0.7 budget
// and the percentage share are folded in here so that score deltas after a
// dependency level change are exactly DependencyScore(new) minus
// DependencyScore(old).
func (m *ScoreModel) DependencyScore(level, percentage float64) float64 {
	return dependencyShare * interpolate(dependentScores, level) * percentage / 100
}

// DependencyDelta returns the relevant-score change caused by one dependency
// moving from oldLevel to newLevel.
func (m *ScoreModel) DependencyDelta(oldLevel, newLevel, percentage float64) float64 {
	return m.DependencyScore(newLevel, percentage) - m.DependencyScore(oldLevel, percentage)
}

// Score computes the full relevant score of a category. With no dependencies
// the own contribution stands undamped; otherwise it carries 30% and the
// dependencies share the remaining 70% by percentage.
func (m *ScoreModel) Score(ownLevel float64, deps []DependencyLevel) float64 {
	if len(deps) == 0 {
		return m.OwnScore(ownLevel)
	}

	score := ownShare * m.OwnScore(ownLevel)
	for _, dep := range deps {
		score += m.DependencyScore(dep.Level, dep.Percentage)
	}
	return score
}
