package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cphub/cp-training-hub/internal/domain/category"
	"github.com/cphub/cp-training-hub/internal/domain/judge"
	"github.com/cphub/cp-training-hub/internal/domain/problem"
	"github.com/cphub/cp-training-hub/internal/domain/shared"
	"github.com/cphub/cp-training-hub/internal/domain/skill"
	"github.com/cphub/cp-training-hub/internal/domain/subject"
)

// refreshWindow is the half-width of the difficulty window around a
// category's level when refreshing unsolved problem scores.
const refreshWindow = 2.0

// Notifier delivers sync results to the subject. Fire-and-forget: failures
// are logged, never propagated.
type Notifier interface {
	Notify(ctx context.Context, subjectID, message string) error
}

// Engine runs the synchronization pipeline for one subject at a time. It is
// safe for concurrent use across different subjects; per-subject mutual
// exclusion is the dispatcher's job.
type Engine struct {
	subjects      subject.Repository
	categories    category.Repository
	categoryEdges category.EdgeRepository
	problems      problem.Repository
	problemEdges  problem.EdgeRepository
	feeds         []judge.FeedSource

	curve      *skill.Curve
	skillModel *category.SkillModel
	catScore   *category.ScoreModel
	probScore  *problem.ScoreModel

	notifier Notifier
	events   shared.EventPublisher
	logger   *slog.Logger
}

// NewEngine creates an Engine with all collaborators injected.
func NewEngine(
	subjects subject.Repository,
	categories category.Repository,
	categoryEdges category.EdgeRepository,
	problems problem.Repository,
	problemEdges problem.EdgeRepository,
	feeds []judge.FeedSource,
	curve *skill.Curve,
	notifier Notifier,
	events shared.EventPublisher,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		subjects:      subjects,
		categories:    categories,
		categoryEdges: categoryEdges,
		problems:      problems,
		problemEdges:  problemEdges,
		feeds:         feeds,
		curve:         curve,
		skillModel:    category.NewSkillModel(curve),
		catScore:      category.NewScoreModel(),
		probScore:     problem.NewScoreModel(),
		notifier:      notifier,
		events:        events,
		logger:        logger,
	}
}

// newSolve is one not-yet-recorded solve with its accumulated submissions.
type newSolve struct {
	problemID   string
	submissions []problem.Submission
}

// Sync runs the full pipeline for one subject. The run is idempotent:
// re-running after a partial failure converges to the same state because
// already-solved edges are skipped during collection.
func (e *Engine) Sync(ctx context.Context, cmd Command) (*Report, error) {
	started := time.Now()
	if cmd.CorrelationID == "" {
		cmd.CorrelationID = uuid.NewString()
	}
	log := e.logger.With("subject_id", cmd.SubjectID, "correlation_id", cmd.CorrelationID)

	subj, err := e.subjects.Get(ctx, cmd.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("load subject: %w", err)
	}
	if cmd.Kind != "" && cmd.Kind != string(subj.Kind) {
		return nil, shared.NewDomainError("sync", "Sync", shared.ErrValidation,
			"subject kind does not match the stored subject")
	}

	report := &Report{
		SubjectID:     subj.ID,
		SubjectKind:   string(subj.Kind),
		CorrelationID: cmd.CorrelationID,
		StartedAt:     started,
	}

	solves, err := e.collect(ctx, subj, log)
	if err != nil {
		return nil, err
	}
	if len(solves) == 0 {
		report.Duration = time.Since(started)
		log.Info("sync finished, nothing new")
		return report, nil
	}

	touched := make(map[string]*category.UserEdge)
	rootSolves := make(map[string]int)

	for _, solve := range solves {
		if err := e.applySolve(ctx, subj, solve, touched, rootSolves, report, log); err != nil {
			return nil, err
		}
	}

	if err := e.propagate(ctx, subj.ID, touched, report); err != nil {
		return nil, err
	}
	if err := e.recomputeRoots(ctx, subj.ID, rootSolves, report); err != nil {
		return nil, err
	}

	stats, err := e.recomputeOverall(ctx, subj, report)
	if err != nil {
		return nil, err
	}

	if err := e.refreshProblemScores(ctx, subj.ID, stats.SkillLevel, touched, report, log); err != nil {
		return nil, err
	}

	report.Duration = time.Since(started)
	e.notify(ctx, subj, report, stats, log)

	log.Info("sync finished",
		"new_solves", report.NewSolves,
		"categories_touched", report.CategoriesTouched,
		"duration", report.Duration)
	return report, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STAGE 1: COLLECT
// ══════════════════════════════════════════════════════════════════════════════

// collect gathers new solves from every configured feed. For a team the
// solves of all members are unioned and each problem counts once. Feed
// failures abort the run; already-solved edges are filtered out.
func (e *Engine) collect(ctx context.Context, subj *subject.Subject, log *slog.Logger) ([]newSolve, error) {
	handleSets := []map[string]string{subj.JudgeHandles}
	if subj.IsTeam() {
		members, err := e.subjects.Members(ctx, subj.ID)
		if err != nil {
			return nil, fmt.Errorf("load team members: %w", err)
		}
		for _, m := range members {
			handleSets = append(handleSets, m.JudgeHandles)
		}
	}

	merged := make(map[string][]problem.Submission)
	order := make([]string, 0)
	for _, feed := range e.feeds {
		for _, handles := range handleSets {
			handle, ok := handles[feed.Name()]
			if !ok || handle == "" {
				continue
			}
			solved, err := feed.SolvedProblems(ctx, handle)
			if err != nil {
				return nil, fmt.Errorf("feed %s handle %s: %w", feed.Name(), handle, err)
			}
			for _, sp := range solved {
				if _, seen := merged[sp.ProblemID]; !seen {
					order = append(order, sp.ProblemID)
				}
				merged[sp.ProblemID] = append(merged[sp.ProblemID], problem.Submission{
					Link:        sp.SubmissionLink,
					SubmittedAt: sp.SubmittedAt,
				})
			}
		}
	}

	solves := make([]newSolve, 0, len(order))
	for _, problemID := range order {
		edge, err := e.problemEdges.Get(ctx, subj.ID, problemID)
		if err != nil && !shared.IsNotFound(err) {
			return nil, fmt.Errorf("load problem edge %s: %w", problemID, err)
		}
		if edge != nil && edge.IsSolved() {
			continue
		}
		solves = append(solves, newSolve{problemID: problemID, submissions: merged[problemID]})
	}

	log.Debug("collected solves", "total_reported", len(merged), "new", len(solves))
	return solves, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STAGE 2: APPLY
// ══════════════════════════════════════════════════════════════════════════════

// applySolve records one solve: marks the problem edge solved and feeds the
// solve into every linked category's skill. A missing problem or category is
// skipped with a warning; a duplicate category edge aborts that category's
// update only.
func (e *Engine) applySolve(
	ctx context.Context,
	subj *subject.Subject,
	solve newSolve,
	touched map[string]*category.UserEdge,
	rootSolves map[string]int,
	report *Report,
	log *slog.Logger,
) error {
	prob, err := e.problems.Get(ctx, solve.problemID)
	if shared.IsNotFound(err) {
		log.Warn("solve references unknown problem, skipping", "problem_id", solve.problemID)
		report.SkippedMissing++
		return nil
	}
	if err != nil {
		return fmt.Errorf("load problem %s: %w", solve.problemID, err)
	}

	edge, err := e.problemEdges.GetOrCreate(ctx, subj.ID, prob.ID)
	if err != nil {
		return fmt.Errorf("problem edge %s: %w", prob.ID, err)
	}
	if edge.IsSolved() {
		return nil
	}
	if err := edge.MarkSolved(solve.submissions); err != nil {
		return fmt.Errorf("mark solved %s: %w", prob.ID, err)
	}
	edge.RelevantScore = 0
	if err := e.problemEdges.Update(ctx, edge); err != nil {
		return fmt.Errorf("update problem edge %s: %w", prob.ID, err)
	}
	report.NewSolves++

	if e.events != nil {
		solvedAt := time.Now()
		if len(solve.submissions) > 0 {
			solvedAt = solve.submissions[0].SubmittedAt
		}
		_ = e.events.Publish(shared.NewProblemSolvedEvent(subj.ID, prob.ID, prob.OJName, solvedAt))
	}

	for _, link := range prob.CategoryLinks {
		if err := e.applyToCategory(ctx, subj.ID, prob, link, touched, rootSolves, report, log); err != nil {
			return err
		}
	}
	return nil
}

// applyToCategory bumps one category edge for a solve and recomputes its
// skill incrementally.
func (e *Engine) applyToCategory(
	ctx context.Context,
	subjectID string,
	prob *problem.Problem,
	link problem.CategoryLink,
	touched map[string]*category.UserEdge,
	rootSolves map[string]int,
	report *Report,
	log *slog.Logger,
) error {
	cat, err := e.categories.GetCategory(ctx, link.CategoryID)
	if shared.IsNotFound(err) {
		log.Warn("problem links unknown category, skipping",
			"problem_id", prob.ID, "category_id", link.CategoryID)
		report.SkippedMissing++
		return nil
	}
	if err != nil {
		return fmt.Errorf("load category %s: %w", link.CategoryID, err)
	}

	edge, ok := touched[cat.ID]
	if !ok {
		edge, err = e.categoryEdges.GetOrCreate(ctx, subjectID, cat.ID)
		if shared.IsDataIntegrity(err) {
			log.Error("duplicate category edge, aborting category update",
				"category_id", cat.ID, "error", err)
			report.IntegrityErrors++
			return nil
		}
		if err != nil {
			return fmt.Errorf("category edge %s: %w", cat.ID, err)
		}
		edge.RootID = cat.RootID
		edge.OldSkillLevel = edge.SkillLevel
		touched[cat.ID] = edge
	}

	bucket := category.DifficultyBucket(prob.Difficulty)
	edge.BumpDifficulty(prob.Difficulty)
	result := e.skillModel.ApplySolve(edge.SkillValue, edge.SolvedByDifficulty, bucket, link.Factor)
	edge.SkillValue = result.SkillValue
	edge.SkillLevel = result.SkillLevel
	edge.SkillTitle = result.SkillTitle
	edge.SkillValueByPercentage = result.SkillValue * cat.ScorePercentage / 100

	rootSolves[cat.RootID]++
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STAGE 3: PROPAGATE
// ══════════════════════════════════════════════════════════════════════════════

// propagate pushes skill-level changes outward. Touched categories get a full
// relevant-score recompute; untouched dependents get the exact incremental
// delta instead. Touched dependents are excluded from delta application so
// the change is never counted twice.
func (e *Engine) propagate(ctx context.Context, subjectID string, touched map[string]*category.UserEdge, report *Report) error {
	for categoryID, edge := range touched {
		deps, err := e.categories.ListDependencies(ctx, categoryID)
		if err != nil {
			return fmt.Errorf("list dependencies of %s: %w", categoryID, err)
		}

		levels := make([]category.DependencyLevel, 0, len(deps))
		for _, dep := range deps {
			level := 0.0
			if depTouched, ok := touched[dep.ToID]; ok {
				level = depTouched.SkillLevel
			} else {
				depEdge, err := e.categoryEdges.Get(ctx, subjectID, dep.ToID)
				if err != nil && !shared.IsNotFound(err) {
					return fmt.Errorf("dependency edge %s: %w", dep.ToID, err)
				}
				if depEdge != nil {
					level = depEdge.SkillLevel
				}
			}
			levels = append(levels, category.DependencyLevel{Level: level, Percentage: dep.Percentage})
		}
		edge.RelevantScore = e.catScore.Score(edge.SkillLevel, levels)

		if err := e.categoryEdges.Update(ctx, edge); err != nil {
			return fmt.Errorf("update category edge %s: %w", categoryID, err)
		}
		report.CategoriesTouched++
	}

	// Incremental delta for the untouched dependents of every touched
	// category.
	for categoryID, edge := range touched {
		dependents, err := e.categories.ListDependents(ctx, categoryID)
		if err != nil {
			return fmt.Errorf("list dependents of %s: %w", categoryID, err)
		}
		for _, dep := range dependents {
			if _, ok := touched[dep.FromID]; ok {
				continue
			}
			depEdge, err := e.categoryEdges.Get(ctx, subjectID, dep.FromID)
			if shared.IsNotFound(err) {
				continue
			}
			if err != nil {
				return fmt.Errorf("dependent edge %s: %w", dep.FromID, err)
			}
			depEdge.RelevantScore += e.catScore.DependencyDelta(edge.OldSkillLevel, edge.SkillLevel, dep.Percentage)
			if err := e.categoryEdges.Update(ctx, depEdge); err != nil {
				return fmt.Errorf("update dependent edge %s: %w", dep.FromID, err)
			}
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STAGE 4: ROOTS
// ══════════════════════════════════════════════════════════════════════════════

// recomputeRoots rebuilds the aggregate skill of every root whose subtree saw
// new solves.
func (e *Engine) recomputeRoots(ctx context.Context, subjectID string, rootSolves map[string]int, report *Report) error {
	for rootID, solves := range rootSolves {
		rootCat, err := e.categories.GetCategory(ctx, rootID)
		if err != nil {
			return fmt.Errorf("load root %s: %w", rootID, err)
		}

		edge, err := e.categoryEdges.GetOrCreate(ctx, subjectID, rootID)
		if err != nil {
			return fmt.Errorf("root edge %s: %w", rootID, err)
		}
		edge.RootID = rootID

		sum, err := e.categoryEdges.SumSkillByRoot(ctx, subjectID, rootID)
		if err != nil {
			return fmt.Errorf("aggregate root %s: %w", rootID, err)
		}

		edge.SkillValue = sum
		edge.SkillLevel = e.curve.LevelFor(sum)
		edge.SkillTitle = e.curve.TitleFor(sum)
		edge.SkillValueByPercentage = sum * rootCat.ScorePercentage / 100
		edge.SolveCount += solves
		if err := e.categoryEdges.Update(ctx, edge); err != nil {
			return fmt.Errorf("update root edge %s: %w", rootID, err)
		}
		report.RootsTouched++
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STAGE 5: OVERALL
// ══════════════════════════════════════════════════════════════════════════════

// recomputeOverall rebuilds the subject's overall statistic from the root
// edges and persists it.
func (e *Engine) recomputeOverall(ctx context.Context, subj *subject.Subject, report *Report) (subject.Stats, error) {
	roots, err := e.categories.ListRoots(ctx)
	if err != nil {
		return subject.Stats{}, fmt.Errorf("list roots: %w", err)
	}

	var total float64
	for _, root := range roots {
		edge, err := e.categoryEdges.Get(ctx, subj.ID, root.ID)
		if shared.IsNotFound(err) {
			continue
		}
		if err != nil {
			return subject.Stats{}, fmt.Errorf("root edge %s: %w", root.ID, err)
		}
		total += edge.SkillValueByPercentage
	}

	level := e.curve.LevelFor(total)
	stats := subject.Stats{
		SkillValue: total,
		SkillLevel: level,
		SkillTitle: e.curve.TitleFor(total),
		SolveCount: subj.SolveCount + report.NewSolves,
		NextTarget: e.curve.NextPeriodTarget(level),
		SyncedAt:   time.Now(),
	}
	if err := e.subjects.UpdateStats(ctx, subj.ID, stats); err != nil {
		return subject.Stats{}, fmt.Errorf("update subject stats: %w", err)
	}

	if e.events != nil && int(level) > int(subj.SkillLevel) {
		_ = e.events.Publish(shared.NewSkillLevelUpEvent(subj.ID, subj.SkillLevel, level, stats.SkillTitle))
	}
	return stats, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STAGE 6: REFRESH
// ══════════════════════════════════════════════════════════════════════════════

// refreshProblemScores rescoring pass over unsolved problems of every touched
// category. Only problems within two difficulty points of the category level
// are considered; relevance outside that window is negligible and the full
// scan would dominate the run.
func (e *Engine) refreshProblemScores(
	ctx context.Context,
	subjectID string,
	overallLevel float64,
	touched map[string]*category.UserEdge,
	report *Report,
	log *slog.Logger,
) error {
	for categoryID, catEdge := range touched {
		filter := problem.Filter{
			CategoryID:    categoryID,
			MinDifficulty: catEdge.SkillLevel - refreshWindow,
			MaxDifficulty: catEdge.SkillLevel + refreshWindow,
			ActiveOnly:    true,
		}
		problems, err := e.problems.FindByCategory(ctx, filter)
		if err != nil {
			return fmt.Errorf("find problems of %s: %w", categoryID, err)
		}

		for _, prob := range problems {
			edge, err := e.problemEdges.GetOrCreate(ctx, subjectID, prob.ID)
			if err != nil {
				return fmt.Errorf("problem edge %s: %w", prob.ID, err)
			}
			if edge.IsSolved() {
				continue
			}

			levels := make([]problem.CategoryLevel, 0, len(prob.CategoryLinks))
			for _, link := range prob.CategoryLinks {
				level := 0.0
				if linkEdge, ok := touched[link.CategoryID]; ok {
					level = linkEdge.SkillLevel
				} else {
					linkEdge, err := e.categoryEdges.Get(ctx, subjectID, link.CategoryID)
					if err != nil && !shared.IsNotFound(err) {
						return fmt.Errorf("category edge %s: %w", link.CategoryID, err)
					}
					if linkEdge != nil {
						level = linkEdge.SkillLevel
					}
				}
				levels = append(levels, problem.CategoryLevel{CategoryID: link.CategoryID, Level: level})
			}

			edge.RelevantScore = e.probScore.Score(prob.Difficulty, levels, overallLevel)
			if err := e.problemEdges.Update(ctx, edge); err != nil {
				return fmt.Errorf("update problem edge %s: %w", prob.ID, err)
			}
			report.ProblemsRescored++
		}
	}

	log.Debug("refreshed problem scores", "rescored", report.ProblemsRescored)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STAGE 7: NOTIFY
// ══════════════════════════════════════════════════════════════════════════════

// notify delivers the run summary. Fire-and-forget: a notification failure
// never fails the sync.
func (e *Engine) notify(ctx context.Context, subj *subject.Subject, report *Report, stats subject.Stats, log *slog.Logger) {
	if e.events != nil {
		_ = e.events.Publish(shared.NewSyncCompletedEvent(
			subj.ID, string(subj.Kind), report.NewSolves, report.CategoriesTouched, report.Duration))
	}
	if e.notifier == nil || !report.Changed() {
		return
	}

	msg := fmt.Sprintf("Synced %d new solve(s). You are now %s (level %.1f). Next weekly target: %.0f.",
		report.NewSolves, stats.SkillTitle, stats.SkillLevel, stats.NextTarget)
	if err := e.notifier.Notify(ctx, subj.ID, msg); err != nil {
		log.Warn("notification failed", "error", err)
	}
}
