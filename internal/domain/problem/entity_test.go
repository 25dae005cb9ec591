package problem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cphub/cp-training-hub/internal/domain/shared"
)

func TestStatusIsValid(t *testing.T) {
	for _, s := range []Status{StatusUnsolved, StatusSolved, StatusSolveLater, StatusSkip, StatusFlagged} {
		assert.True(t, s.IsValid(), "%s", s)
	}
	assert.False(t, Status("DONE").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestSolvedIsTerminal(t *testing.T) {
	assert.True(t, StatusSolved.CanTransitionTo(StatusSolved))
	assert.False(t, StatusSolved.CanTransitionTo(StatusUnsolved))
	assert.False(t, StatusSolved.CanTransitionTo(StatusSkip))
	assert.False(t, StatusSolved.CanTransitionTo(StatusFlagged))

	// All other states move freely.
	assert.True(t, StatusUnsolved.CanTransitionTo(StatusSolved))
	assert.True(t, StatusSkip.CanTransitionTo(StatusSolveLater))
	assert.True(t, StatusFlagged.CanTransitionTo(StatusUnsolved))
}

func TestUpdateStatus(t *testing.T) {
	edge := NewUserEdge("e1", "s1", "p1")

	require.NoError(t, edge.UpdateStatus(StatusSolveLater))
	assert.Equal(t, StatusSolveLater, edge.Status)

	require.NoError(t, edge.MarkSolved([]Submission{{Link: "l1", SubmittedAt: time.Now()}}))
	err := edge.UpdateStatus(StatusUnsolved)
	assert.ErrorIs(t, err, shared.ErrStateTransition)
	assert.Equal(t, StatusSolved, edge.Status)
}

func TestMarkSolvedRequiresSubmission(t *testing.T) {
	edge := NewUserEdge("e1", "s1", "p1")

	err := edge.MarkSolved(nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Equal(t, StatusUnsolved, edge.Status)
}

func TestMarkSolvedAppendsSubmissions(t *testing.T) {
	edge := NewUserEdge("e1", "s1", "p1")

	first := Submission{Link: "l1", SubmittedAt: time.Now()}
	require.NoError(t, edge.MarkSolved([]Submission{first}))
	require.Len(t, edge.Submissions, 1)

	// Re-solving appends, it never replaces or shrinks the list.
	second := Submission{Link: "l2", SubmittedAt: time.Now()}
	require.NoError(t, edge.MarkSolved([]Submission{second}))
	require.Len(t, edge.Submissions, 2)
	assert.Equal(t, "l1", edge.Submissions[0].Link)
	assert.Equal(t, "l2", edge.Submissions[1].Link)

	// A repeated solve with no new submissions is a no-op on the list.
	require.NoError(t, edge.MarkSolved(nil))
	assert.Len(t, edge.Submissions, 2)
}

func TestProblemValidate(t *testing.T) {
	valid := Problem{
		ID:         "p1",
		Difficulty: 5.5,
		CategoryLinks: []CategoryLink{
			{CategoryID: "c1", Factor: 1},
		},
	}
	assert.NoError(t, valid.Validate())

	noID := Problem{Difficulty: 5}
	assert.ErrorIs(t, noID.Validate(), shared.ErrInvalidID)

	badDifficulty := Problem{ID: "p1", Difficulty: 11}
	assert.ErrorIs(t, badDifficulty.Validate(), shared.ErrValueOutOfRange)

	badFactor := Problem{ID: "p1", Difficulty: 5, CategoryLinks: []CategoryLink{{CategoryID: "c1", Factor: 0}}}
	assert.ErrorIs(t, badFactor.Validate(), shared.ErrValueOutOfRange)
}
