package sync

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBulkFixture(ids ...string) (*fixture, *fakeGuard, *BulkRunner) {
	f := newFixture()
	f.addTree()
	guard := newFakeGuard()
	runner := NewBulkRunner(f.engine, &fakeLister{ids: ids}, guard, 4,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f, guard, runner
}

func TestBulkRunAll(t *testing.T) {
	f, _, runner := newBulkFixture("s1", "s2")
	f.addUser("s1", "alice")
	f.addUser("s2", "bob")
	f.addSolvableProblem("p1")
	f.reportSolve("alice", "p1")

	report, err := runner.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Empty(t, report.Errors)
}

func TestBulkReportsIndividualFailures(t *testing.T) {
	f, _, runner := newBulkFixture("s1", "missing")
	f.addUser("s1", "alice")

	report, err := runner.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Errors, "missing")
}

func TestBulkSkipsHeldMarkers(t *testing.T) {
	f, guard, runner := newBulkFixture("s1")
	f.addUser("s1", "alice")

	// Another dispatcher instance already holds the marker.
	acquired, err := guard.TryAcquire(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, acquired)

	report, err := runner.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Succeeded)
}

func TestBulkReleasesMarkers(t *testing.T) {
	f, guard, runner := newBulkFixture("s1")
	f.addUser("s1", "alice")

	_, err := runner.RunAll(context.Background())
	require.NoError(t, err)

	// The marker must be free again for the next tick.
	acquired, err := guard.TryAcquire(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, acquired)
}
