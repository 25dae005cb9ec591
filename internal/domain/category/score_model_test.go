package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOwnScoreTableBoundaries(t *testing.T) {
	m := NewScoreModel()

	assert.Equal(t, 100.0, m.OwnScore(0))
	assert.Equal(t, 8.0, m.OwnScore(10))
	assert.Equal(t, 100.0, m.OwnScore(-1))
	assert.Equal(t, 8.0, m.OwnScore(15))

	// Unit-band interpolation halfway between levels 0 and 1.
	assert.InDelta(t, 95.0, m.OwnScore(0.5), 1e-9)
}

func TestOwnScoreDecreasing(t *testing.T) {
	m := NewScoreModel()

	prev := m.OwnScore(0)
	for level := 0.5; level <= 10; level += 0.5 {
		score := m.OwnScore(level)
		assert.Less(t, score, prev, "own score must fall as level rises (level %v)", level)
		prev = score
	}
}

func TestDependencyScoreIncreasing(t *testing.T) {
	m := NewScoreModel()

	prev := m.DependencyScore(0, 100)
	for level := 0.5; level <= 10; level += 0.5 {
		score := m.DependencyScore(level, 100)
		assert.Greater(t, score, prev, "dependency score must rise with the prerequisite level")
		prev = score
	}
}

func TestDependencyScoreBudget(t *testing.T) {
	m := NewScoreModel()

	// A fully mastered dependency holding the whole budget contributes the
	// entire 70% share.
	assert.InDelta(t, 70.0, m.DependencyScore(10, 100), 1e-9)

	// The percentage scales the contribution linearly.
	assert.InDelta(t, 35.0, m.DependencyScore(10, 50), 1e-9)
}

func TestScoreNoDependencies(t *testing.T) {
	m := NewScoreModel()

	// Without dependencies the own contribution stands undamped.
	assert.InDelta(t, m.OwnScore(3), m.Score(3, nil), 1e-9)
	assert.InDelta(t, 100.0, m.Score(0, nil), 1e-9)
}

func TestScoreWithDependencies(t *testing.T) {
	m := NewScoreModel()

	deps := []DependencyLevel{
		{Level: 4, Percentage: 60},
		{Level: 2, Percentage: 40},
	}

	want := 0.3*m.OwnScore(1) +
		m.DependencyScore(4, 60) +
		m.DependencyScore(2, 40)
	assert.InDelta(t, want, m.Score(1, deps), 1e-9)
}

func TestDependencyDeltaExact(t *testing.T) {
	m := NewScoreModel()

	own := 2.0
	deps := []DependencyLevel{
		{Level: 3.0, Percentage: 70},
		{Level: 6.0, Percentage: 30},
	}
	before := m.Score(own, deps)

	// One dependency's level rises; applying the delta to the old score
	// must land exactly on the recomputed score.
	deps[0].Level = 4.5
	after := m.Score(own, deps)

	delta := m.DependencyDelta(3.0, 4.5, 70)
	assert.InDelta(t, after, before+delta, 1e-12)
}

func TestScoreRange(t *testing.T) {
	m := NewScoreModel()

	for own := 0.0; own <= 10; own += 2.5 {
		for dep := 0.0; dep <= 10; dep += 2.5 {
			score := m.Score(own, []DependencyLevel{{Level: dep, Percentage: 100}})
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 100.0)
		}
	}
}
