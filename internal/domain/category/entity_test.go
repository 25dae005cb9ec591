package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cphub/cp-training-hub/internal/domain/shared"
)

func TestCategoryValidate(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		wantErr  error
	}{
		{
			name:     "valid root",
			category: Category{ID: "c1", Name: "Graphs", Root: true, RootID: "c1", ScorePercentage: 40},
		},
		{
			name:     "empty id",
			category: Category{Name: "Graphs"},
			wantErr:  shared.ErrInvalidID,
		},
		{
			name:     "empty name",
			category: Category{ID: "c1"},
			wantErr:  shared.ErrValidation,
		},
		{
			name:     "percentage above 100",
			category: Category{ID: "c1", Name: "Graphs", ScorePercentage: 120},
			wantErr:  shared.ErrValueOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.category.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDependencyEdgeValidate(t *testing.T) {
	valid := DependencyEdge{FromID: "a", ToID: "b", Factor: 2}
	assert.NoError(t, valid.Validate())

	selfLoop := DependencyEdge{FromID: "a", ToID: "a", Factor: 1}
	assert.ErrorIs(t, selfLoop.Validate(), shared.ErrValidation)

	zeroFactor := DependencyEdge{FromID: "a", ToID: "b", Factor: 0}
	assert.ErrorIs(t, zeroFactor.Validate(), shared.ErrValueOutOfRange)
}

func TestNormalizePercentages(t *testing.T) {
	edges := []DependencyEdge{
		{FromID: "a", ToID: "b", Factor: 1},
		{FromID: "a", ToID: "c", Factor: 3},
	}
	NormalizePercentages(edges)

	assert.InDelta(t, 25.0, edges[0].Percentage, 1e-9)
	assert.InDelta(t, 75.0, edges[1].Percentage, 1e-9)

	var sum float64
	for _, e := range edges {
		sum += e.Percentage
	}
	assert.InDelta(t, 100.0, sum, 1e-9)
}

func TestNormalizePercentagesZeroTotal(t *testing.T) {
	edges := []DependencyEdge{{FromID: "a", ToID: "b", Factor: 0}}
	NormalizePercentages(edges)
	assert.Equal(t, 0.0, edges[0].Percentage)
}

func TestDifficultyBucket(t *testing.T) {
	tests := []struct {
		difficulty float64
		want       int
	}{
		{0, 1},     // below range clamps up
		{0.4, 1},   // rounds down then clamps
		{1.4, 1},   // rounds to nearest
		{1.5, 2},   // half rounds up
		{5.0, 5},   // exact
		{9.7, 10},  // rounds up
		{10.0, 10}, // exact top
		{12.0, 10}, // above range clamps down
		{-3.0, 1},  // negative clamps up
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DifficultyBucket(tt.difficulty), "difficulty %v", tt.difficulty)
	}
}

func TestBumpDifficulty(t *testing.T) {
	edge := NewUserEdge("e1", "s1", "c1", "r1")

	edge.BumpDifficulty(2.0)
	edge.BumpDifficulty(2.3)
	edge.BumpDifficulty(7.0)

	assert.Equal(t, 2, edge.SolvedByDifficulty[2])
	assert.Equal(t, 1, edge.SolvedByDifficulty[7])
	assert.Equal(t, 3, edge.SolveCount)
}

func TestResetHistory(t *testing.T) {
	edge := NewUserEdge("e1", "s1", "c1", "r1")
	edge.BumpDifficulty(3)
	edge.SkillValue = 42
	edge.SkillLevel = 1.5
	edge.SkillValueByPercentage = 12
	edge.OldSkillLevel = 1.2

	edge.ResetHistory()

	require.Equal(t, 0, edge.SolveCount)
	assert.Equal(t, [difficultySlots]int{}, edge.SolvedByDifficulty)
	assert.Equal(t, 0.0, edge.SkillValue)
	assert.Equal(t, 0.0, edge.SkillLevel)
	assert.Equal(t, 0.0, edge.SkillValueByPercentage)
	assert.Equal(t, 0.0, edge.OldSkillLevel)
}
