package sync

import (
	"context"
	"fmt"
	stdsync "sync"

	"github.com/cphub/cp-training-hub/internal/domain/category"
	"github.com/cphub/cp-training-hub/internal/domain/judge"
	"github.com/cphub/cp-training-hub/internal/domain/problem"
	"github.com/cphub/cp-training-hub/internal/domain/shared"
	"github.com/cphub/cp-training-hub/internal/domain/subject"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fakeSubjects struct {
	subjects map[string]*subject.Subject
	members  map[string][]*subject.Subject
}

func newFakeSubjects() *fakeSubjects {
	return &fakeSubjects{
		subjects: make(map[string]*subject.Subject),
		members:  make(map[string][]*subject.Subject),
	}
}

func (f *fakeSubjects) Get(_ context.Context, id string) (*subject.Subject, error) {
	s, ok := f.subjects[id]
	if !ok {
		return nil, shared.ErrSubjectNotFound
	}
	return s, nil
}

func (f *fakeSubjects) Members(_ context.Context, teamID string) ([]*subject.Subject, error) {
	return f.members[teamID], nil
}

func (f *fakeSubjects) ListActive(_ context.Context) ([]*subject.Subject, error) {
	out := make([]*subject.Subject, 0, len(f.subjects))
	for _, s := range f.subjects {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSubjects) UpdateStats(_ context.Context, subjectID string, stats subject.Stats) error {
	s, ok := f.subjects[subjectID]
	if !ok {
		return shared.ErrSubjectNotFound
	}
	s.SkillValue = stats.SkillValue
	s.SkillLevel = stats.SkillLevel
	s.SkillTitle = stats.SkillTitle
	s.SolveCount = stats.SolveCount
	s.NextTarget = stats.NextTarget
	s.LastSyncedAt = stats.SyncedAt
	return nil
}

type fakeCategories struct {
	categories map[string]*category.Category
	outgoing   map[string][]category.DependencyEdge
}

func newFakeCategories() *fakeCategories {
	return &fakeCategories{
		categories: make(map[string]*category.Category),
		outgoing:   make(map[string][]category.DependencyEdge),
	}
}

func (f *fakeCategories) add(c *category.Category) {
	f.categories[c.ID] = c
}

func (f *fakeCategories) GetCategory(_ context.Context, id string) (*category.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, shared.ErrCategoryNotFound
	}
	return c, nil
}

func (f *fakeCategories) ListRoots(_ context.Context) ([]*category.Category, error) {
	var roots []*category.Category
	for _, c := range f.categories {
		if c.Root {
			roots = append(roots, c)
		}
	}
	return roots, nil
}

func (f *fakeCategories) ListDependencies(_ context.Context, categoryID string) ([]category.DependencyEdge, error) {
	return f.outgoing[categoryID], nil
}

func (f *fakeCategories) ListDependents(_ context.Context, categoryID string) ([]category.DependencyEdge, error) {
	var in []category.DependencyEdge
	for _, edges := range f.outgoing {
		for _, e := range edges {
			if e.ToID == categoryID {
				in = append(in, e)
			}
		}
	}
	return in, nil
}

func (f *fakeCategories) PutDependencies(_ context.Context, categoryID string, edges []category.DependencyEdge) error {
	category.NormalizePercentages(edges)
	f.outgoing[categoryID] = edges
	return nil
}

type fakeCategoryEdges struct {
	edges map[string]*category.UserEdge

	// duplicates lists category ids whose edge lookup reports a
	// data-integrity violation.
	duplicates map[string]bool
}

func newFakeCategoryEdges() *fakeCategoryEdges {
	return &fakeCategoryEdges{
		edges:      make(map[string]*category.UserEdge),
		duplicates: make(map[string]bool),
	}
}

func edgeKey(subjectID, categoryID string) string {
	return subjectID + "/" + categoryID
}

func (f *fakeCategoryEdges) put(e *category.UserEdge) {
	f.edges[edgeKey(e.SubjectID, e.CategoryID)] = e
}

func (f *fakeCategoryEdges) Get(_ context.Context, subjectID, categoryID string) (*category.UserEdge, error) {
	if f.duplicates[categoryID] {
		return nil, shared.ErrDuplicateEdge
	}
	e, ok := f.edges[edgeKey(subjectID, categoryID)]
	if !ok {
		return nil, shared.ErrEdgeNotFound
	}
	return e, nil
}

func (f *fakeCategoryEdges) GetOrCreate(ctx context.Context, subjectID, categoryID string) (*category.UserEdge, error) {
	e, err := f.Get(ctx, subjectID, categoryID)
	if shared.IsNotFound(err) {
		e = category.NewUserEdge(fmt.Sprintf("edge-%s-%s", subjectID, categoryID), subjectID, categoryID, "")
		f.put(e)
		return e, nil
	}
	return e, err
}

func (f *fakeCategoryEdges) Update(_ context.Context, edge *category.UserEdge) error {
	f.put(edge)
	return nil
}

func (f *fakeCategoryEdges) ListBySubject(_ context.Context, subjectID string) ([]*category.UserEdge, error) {
	var out []*category.UserEdge
	for _, e := range f.edges {
		if e.SubjectID == subjectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeCategoryEdges) SumSkillByRoot(_ context.Context, subjectID, rootID string) (float64, error) {
	var sum float64
	for _, e := range f.edges {
		if e.SubjectID == subjectID && e.RootID == rootID && e.CategoryID != rootID {
			sum += e.SkillValueByPercentage
		}
	}
	return sum, nil
}

func (f *fakeCategoryEdges) ResetHistory(_ context.Context, subjectID string) error {
	for _, e := range f.edges {
		if e.SubjectID == subjectID {
			e.ResetHistory()
		}
	}
	return nil
}

type fakeProblems struct {
	problems map[string]*problem.Problem
}

func newFakeProblems() *fakeProblems {
	return &fakeProblems{problems: make(map[string]*problem.Problem)}
}

func (f *fakeProblems) add(p *problem.Problem) {
	f.problems[p.ID] = p
}

func (f *fakeProblems) Get(_ context.Context, id string) (*problem.Problem, error) {
	p, ok := f.problems[id]
	if !ok {
		return nil, shared.ErrProblemNotFound
	}
	return p, nil
}

func (f *fakeProblems) FindByCategory(_ context.Context, filter problem.Filter) ([]*problem.Problem, error) {
	var out []*problem.Problem
	for _, p := range f.problems {
		if filter.ActiveOnly && !p.Active {
			continue
		}
		if p.Difficulty < filter.MinDifficulty || p.Difficulty > filter.MaxDifficulty {
			continue
		}
		for _, link := range p.CategoryLinks {
			if link.CategoryID == filter.CategoryID {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

type fakeProblemEdges struct {
	edges map[string]*problem.UserEdge
}

func newFakeProblemEdges() *fakeProblemEdges {
	return &fakeProblemEdges{edges: make(map[string]*problem.UserEdge)}
}

func (f *fakeProblemEdges) put(e *problem.UserEdge) {
	f.edges[edgeKey(e.SubjectID, e.ProblemID)] = e
}

func (f *fakeProblemEdges) Get(_ context.Context, subjectID, problemID string) (*problem.UserEdge, error) {
	e, ok := f.edges[edgeKey(subjectID, problemID)]
	if !ok {
		return nil, shared.ErrProblemEdgeNotFound
	}
	return e, nil
}

func (f *fakeProblemEdges) GetOrCreate(ctx context.Context, subjectID, problemID string) (*problem.UserEdge, error) {
	e, err := f.Get(ctx, subjectID, problemID)
	if shared.IsNotFound(err) {
		e = problem.NewUserEdge(fmt.Sprintf("pedge-%s-%s", subjectID, problemID), subjectID, problemID)
		f.put(e)
		return e, nil
	}
	return e, err
}

func (f *fakeProblemEdges) Update(_ context.Context, edge *problem.UserEdge) error {
	f.put(edge)
	return nil
}

type fakeFeed struct {
	name     string
	byHandle map[string][]judge.SolvedProblem
	err      error
}

func (f *fakeFeed) Name() string { return f.name }

func (f *fakeFeed) SolvedProblems(_ context.Context, handle string) ([]judge.SolvedProblem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byHandle[handle], nil
}

type fakeNotifier struct {
	mu       stdsync.Mutex
	messages []string
	err      error
}

func (f *fakeNotifier) Notify(_ context.Context, _, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, message)
	return nil
}

type fakeEvents struct {
	mu     stdsync.Mutex
	events []shared.Event
}

func (f *fakeEvents) Publish(event shared.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEvents) ofType(t shared.EventType) []shared.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []shared.Event
	for _, e := range f.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeGuard struct {
	mu   stdsync.Mutex
	held map[string]bool
	err  error
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{held: make(map[string]bool)}
}

func (f *fakeGuard) TryAcquire(_ context.Context, subjectID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.held[subjectID] {
		return false, nil
	}
	f.held[subjectID] = true
	return true, nil
}

func (f *fakeGuard) Release(_ context.Context, subjectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, subjectID)
	return nil
}

type fakeLister struct {
	ids []string
}

func (f *fakeLister) ListActiveIDs(_ context.Context) ([]string, error) {
	return f.ids, nil
}
