package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cphub/cp-training-hub/internal/domain/category"
	"github.com/cphub/cp-training-hub/internal/domain/judge"
	"github.com/cphub/cp-training-hub/internal/domain/problem"
	"github.com/cphub/cp-training-hub/internal/domain/shared"
	"github.com/cphub/cp-training-hub/internal/domain/skill"
	"github.com/cphub/cp-training-hub/internal/domain/subject"
)

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURE
// ══════════════════════════════════════════════════════════════════════════════

type fixture struct {
	subjects   *fakeSubjects
	categories *fakeCategories
	catEdges   *fakeCategoryEdges
	problems   *fakeProblems
	probEdges  *fakeProblemEdges
	feed       *fakeFeed
	notifier   *fakeNotifier
	events     *fakeEvents
	engine     *Engine
}

func newFixture() *fixture {
	f := &fixture{
		subjects:   newFakeSubjects(),
		categories: newFakeCategories(),
		catEdges:   newFakeCategoryEdges(),
		problems:   newFakeProblems(),
		probEdges:  newFakeProblemEdges(),
		feed:       &fakeFeed{name: "codeforces", byHandle: make(map[string][]judge.SolvedProblem)},
		notifier:   &fakeNotifier{},
		events:     &fakeEvents{},
	}
	f.engine = NewEngine(
		f.subjects,
		f.categories,
		f.catEdges,
		f.problems,
		f.probEdges,
		[]judge.FeedSource{f.feed},
		skill.Default(),
		f.notifier,
		f.events,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return f
}

func (f *fixture) addUser(id, handle string) {
	f.subjects.subjects[id] = &subject.Subject{
		ID:           id,
		Kind:         subject.KindUser,
		JudgeHandles: map[string]string{"codeforces": handle},
	}
}

func (f *fixture) addTree() {
	f.categories.add(&category.Category{ID: "r1", Name: "Algorithms", Root: true, RootID: "r1", ScorePercentage: 100})
	f.categories.add(&category.Category{ID: "c1", Name: "Graphs", RootID: "r1", ScorePercentage: 100})
	f.categories.add(&category.Category{ID: "c2", Name: "DP", RootID: "r1", ScorePercentage: 100})
}

// addSolvableProblem registers a difficulty-5 problem in c1 whose single
// solve yields a skill value of exactly 30: 40 * (1/3) * 2.25.
func (f *fixture) addSolvableProblem(id string) {
	f.problems.add(&problem.Problem{
		ID:         id,
		OJName:     "codeforces",
		Difficulty: 5,
		Active:     true,
		CategoryLinks: []problem.CategoryLink{
			{CategoryID: "c1", Factor: 2.25},
		},
	})
}

func (f *fixture) reportSolve(handle, problemID string) {
	f.feed.byHandle[handle] = append(f.feed.byHandle[handle], judge.SolvedProblem{
		ProblemID:      problemID,
		SubmissionLink: "https://judge/" + problemID,
		SubmittedAt:    time.Now(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestSyncSingleSolve(t *testing.T) {
	f := newFixture()
	f.addUser("s1", "alice")
	f.addTree()
	f.addSolvableProblem("p1")
	f.reportSolve("alice", "p1")

	report, err := f.engine.Sync(context.Background(), Command{SubjectID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.NewSolves)
	assert.Equal(t, 1, report.CategoriesTouched)
	assert.Equal(t, 1, report.RootsTouched)

	// The problem edge reached its terminal state with the submission kept.
	pEdge, err := f.probEdges.Get(context.Background(), "s1", "p1")
	require.NoError(t, err)
	assert.True(t, pEdge.IsSolved())
	require.Len(t, pEdge.Submissions, 1)
	assert.Equal(t, "https://judge/p1", pEdge.Submissions[0].Link)

	// One difficulty-5 solve at factor 2.25 is worth exactly 30.
	cEdge, err := f.catEdges.Get(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.InDelta(t, 30.0, cEdge.SkillValue, 1e-9)
	assert.Equal(t, 1, cEdge.SolveCount)
	assert.Equal(t, 1, cEdge.SolvedByDifficulty[5])

	// The root aggregates the child's weighted value.
	rEdge, err := f.catEdges.Get(context.Background(), "s1", "r1")
	require.NoError(t, err)
	assert.InDelta(t, 30.0, rEdge.SkillValue, 1e-9)
	assert.Equal(t, "Newbie", rEdge.SkillTitle)
	assert.Equal(t, 1, rEdge.SolveCount)

	// The subject's overall stat follows the root.
	subj := f.subjects.subjects["s1"]
	assert.InDelta(t, 30.0, subj.SkillValue, 1e-9)
	assert.Equal(t, 1, subj.SolveCount)
	assert.Greater(t, subj.NextTarget, 0.0)
	assert.False(t, subj.LastSyncedAt.IsZero())
}

func TestSyncIdempotent(t *testing.T) {
	f := newFixture()
	f.addUser("s1", "alice")
	f.addTree()
	f.addSolvableProblem("p1")
	f.reportSolve("alice", "p1")

	first, err := f.engine.Sync(context.Background(), Command{SubjectID: "s1"})
	require.NoError(t, err)
	require.Equal(t, 1, first.NewSolves)

	cEdge, _ := f.catEdges.Get(context.Background(), "s1", "c1")
	valueAfterFirst := cEdge.SkillValue

	// The feed still reports the same solve; the second run must change
	// nothing.
	second, err := f.engine.Sync(context.Background(), Command{SubjectID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewSolves)
	assert.False(t, second.Changed())

	cEdge, _ = f.catEdges.Get(context.Background(), "s1", "c1")
	assert.Equal(t, valueAfterFirst, cEdge.SkillValue)
	assert.Equal(t, 1, cEdge.SolveCount)

	pEdge, _ := f.probEdges.Get(context.Background(), "s1", "p1")
	assert.Len(t, pEdge.Submissions, 1)
}

func TestSyncRootAggregation(t *testing.T) {
	f := newFixture()
	f.addUser("s1", "alice")
	f.addTree()
	f.addSolvableProblem("p1")
	f.reportSolve("alice", "p1")

	// Another child of the same root already carries 45.5 weighted skill.
	existing := category.NewUserEdge("edge-s1-c2", "s1", "c2", "r1")
	existing.SkillValue = 45.5
	existing.SkillValueByPercentage = 45.5
	f.catEdges.put(existing)

	_, err := f.engine.Sync(context.Background(), Command{SubjectID: "s1"})
	require.NoError(t, err)

	// 30.0 from the new solve plus the existing 45.5 puts the root in the
	// second title band.
	rEdge, err := f.catEdges.Get(context.Background(), "s1", "r1")
	require.NoError(t, err)
	assert.InDelta(t, 75.5, rEdge.SkillValue, 1e-9)
	assert.Equal(t, "Beginner", rEdge.SkillTitle)

	subj := f.subjects.subjects["s1"]
	assert.InDelta(t, 75.5, subj.SkillValue, 1e-9)
	assert.Equal(t, "Beginner", subj.SkillTitle)

	// Crossing an integer level publishes a level-up event.
	ups := f.events.ofType(shared.EventSkillLevelUp)
	require.Len(t, ups, 1)
}

func TestSyncTeamUnionCountsProblemOnce(t *testing.T) {
	f := newFixture()
	f.addTree()
	f.addSolvableProblem("p1")

	f.subjects.subjects["m1"] = &subject.Subject{ID: "m1", Kind: subject.KindUser, JudgeHandles: map[string]string{"codeforces": "alice"}}
	f.subjects.subjects["m2"] = &subject.Subject{ID: "m2", Kind: subject.KindUser, JudgeHandles: map[string]string{"codeforces": "bob"}}
	f.subjects.subjects["t1"] = &subject.Subject{ID: "t1", Kind: subject.KindTeam}
	f.subjects.members["t1"] = []*subject.Subject{
		f.subjects.subjects["m1"],
		f.subjects.subjects["m2"],
	}

	// Both members solved the same problem.
	f.reportSolve("alice", "p1")
	f.reportSolve("bob", "p1")

	report, err := f.engine.Sync(context.Background(), Command{SubjectID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.NewSolves)

	// The edge carries both submissions but the solve counted once.
	pEdge, err := f.probEdges.Get(context.Background(), "t1", "p1")
	require.NoError(t, err)
	assert.Len(t, pEdge.Submissions, 2)

	cEdge, err := f.catEdges.Get(context.Background(), "t1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, cEdge.SolveCount)
}

func TestSyncSkipsUnknownProblem(t *testing.T) {
	f := newFixture()
	f.addUser("s1", "alice")
	f.addTree()
	f.reportSolve("alice", "ghost")

	report, err := f.engine.Sync(context.Background(), Command{SubjectID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 0, report.NewSolves)
	assert.Equal(t, 1, report.SkippedMissing)
}

func TestSyncSkipsUnknownCategory(t *testing.T) {
	f := newFixture()
	f.addUser("s1", "alice")
	f.addTree()
	f.problems.add(&problem.Problem{
		ID:         "p1",
		Difficulty: 3,
		Active:     true,
		CategoryLinks: []problem.CategoryLink{
			{CategoryID: "nocat", Factor: 1},
		},
	})
	f.reportSolve("alice", "p1")

	report, err := f.engine.Sync(context.Background(), Command{SubjectID: "s1"})
	require.NoError(t, err)

	// The solve itself is recorded; only the category contribution is lost.
	assert.Equal(t, 1, report.NewSolves)
	assert.Equal(t, 1, report.SkippedMissing)
}

func TestSyncDuplicateEdgeAbortsCategoryOnly(t *testing.T) {
	f := newFixture()
	f.addUser("s1", "alice")
	f.addTree()
	f.catEdges.duplicates["c2"] = true

	f.problems.add(&problem.Problem{
		ID:         "p1",
		Difficulty: 5,
		Active:     true,
		CategoryLinks: []problem.CategoryLink{
			{CategoryID: "c2", Factor: 1},
			{CategoryID: "c1", Factor: 2.25},
		},
	})
	f.reportSolve("alice", "p1")

	report, err := f.engine.Sync(context.Background(), Command{SubjectID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.IntegrityErrors)

	// The healthy category still received the solve.
	cEdge, err := f.catEdges.Get(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.InDelta(t, 30.0, cEdge.SkillValue, 1e-9)
}

func TestSyncFeedFailurePropagates(t *testing.T) {
	f := newFixture()
	f.addUser("s1", "alice")
	f.addTree()
	f.feed.err = errors.New("judge is down")

	_, err := f.engine.Sync(context.Background(), Command{SubjectID: "s1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "judge is down")
}

func TestSyncPropagatesDependencyDelta(t *testing.T) {
	f := newFixture()
	f.addUser("s1", "alice")
	f.addTree()
	f.addSolvableProblem("p1") // trains c1
	f.reportSolve("alice", "p1")

	// c2 depends on c1 with the whole budget and already has a score.
	f.categories.outgoing["c2"] = []category.DependencyEdge{
		{FromID: "c2", ToID: "c1", Factor: 1, Percentage: 100},
	}
	depEdge := category.NewUserEdge("edge-s1-c2", "s1", "c2", "r1")
	depEdge.RelevantScore = 50
	f.catEdges.put(depEdge)

	_, err := f.engine.Sync(context.Background(), Command{SubjectID: "s1"})
	require.NoError(t, err)

	cEdge, err := f.catEdges.Get(context.Background(), "s1", "c1")
	require.NoError(t, err)
	require.Greater(t, cEdge.SkillLevel, 0.0)

	// The untouched dependent received exactly the incremental delta.
	wantDelta := category.NewScoreModel().DependencyDelta(0, cEdge.SkillLevel, 100)
	got, err := f.catEdges.Get(context.Background(), "s1", "c2")
	require.NoError(t, err)
	assert.InDelta(t, 50+wantDelta, got.RelevantScore, 1e-9)

	// The touched category got a full recompute instead: no dependencies,
	// so its score is the undamped own contribution.
	want := category.NewScoreModel().Score(cEdge.SkillLevel, nil)
	assert.InDelta(t, want, cEdge.RelevantScore, 1e-9)
}

func TestSyncRefreshesUnsolvedProblemScores(t *testing.T) {
	f := newFixture()
	f.addUser("s1", "alice")
	f.addTree()
	f.addSolvableProblem("p1")
	f.reportSolve("alice", "p1")

	// An unsolved problem near the post-sync category level.
	f.problems.add(&problem.Problem{
		ID:         "p2",
		Difficulty: 1,
		Active:     true,
		CategoryLinks: []problem.CategoryLink{
			{CategoryID: "c1", Factor: 1},
		},
	})

	report, err := f.engine.Sync(context.Background(), Command{SubjectID: "s1"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, report.ProblemsRescored, 1)

	pEdge, err := f.probEdges.Get(context.Background(), "s1", "p2")
	require.NoError(t, err)
	assert.False(t, pEdge.IsSolved())
	assert.Greater(t, pEdge.RelevantScore, 0.0)

	// The solved problem keeps its zeroed score.
	solved, err := f.probEdges.Get(context.Background(), "s1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, solved.RelevantScore)
}

func TestSyncNotifiesAndPublishes(t *testing.T) {
	f := newFixture()
	f.addUser("s1", "alice")
	f.addTree()
	f.addSolvableProblem("p1")
	f.reportSolve("alice", "p1")

	_, err := f.engine.Sync(context.Background(), Command{SubjectID: "s1"})
	require.NoError(t, err)

	require.Len(t, f.notifier.messages, 1)
	assert.Contains(t, f.notifier.messages[0], "1 new solve")

	assert.Len(t, f.events.ofType(shared.EventProblemSolved), 1)
	assert.Len(t, f.events.ofType(shared.EventSyncCompleted), 1)
}

func TestSyncNotifierFailureTolerated(t *testing.T) {
	f := newFixture()
	f.addUser("s1", "alice")
	f.addTree()
	f.addSolvableProblem("p1")
	f.reportSolve("alice", "p1")
	f.notifier.err = errors.New("telegram down")

	report, err := f.engine.Sync(context.Background(), Command{SubjectID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.NewSolves)
}

func TestSyncNothingNewSkipsNotification(t *testing.T) {
	f := newFixture()
	f.addUser("s1", "alice")
	f.addTree()

	report, err := f.engine.Sync(context.Background(), Command{SubjectID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 0, report.NewSolves)
	assert.Empty(t, f.notifier.messages)
}

func TestSyncUnknownSubject(t *testing.T) {
	f := newFixture()

	_, err := f.engine.Sync(context.Background(), Command{SubjectID: "nobody"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
