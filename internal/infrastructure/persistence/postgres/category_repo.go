package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cphub/cp-training-hub/internal/domain/category"
	"github.com/cphub/cp-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATEGORY REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// CategoryRepository implements category.Repository using PostgreSQL.
type CategoryRepository struct {
	conn *Connection
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(conn *Connection) *CategoryRepository {
	return &CategoryRepository{conn: conn}
}

// GetCategory retrieves a category by id.
func (r *CategoryRepository) GetCategory(ctx context.Context, id string) (*category.Category, error) {
	query := `
		SELECT id, name, is_root, root_id, score_percentage, created_at, updated_at
		FROM categories
		WHERE id = $1
	`
	var c category.Category
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Root, &c.RootID, &c.ScorePercentage, &c.CreatedAt, &c.UpdatedAt,
	)
	if IsNoRows(err) {
		return nil, shared.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

// ListRoots retrieves all root categories.
func (r *CategoryRepository) ListRoots(ctx context.Context) ([]*category.Category, error) {
	query := `
		SELECT id, name, is_root, root_id, score_percentage, created_at, updated_at
		FROM categories
		WHERE is_root
		ORDER BY id
	`
	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list roots: %w", err)
	}
	defer rows.Close()

	var roots []*category.Category
	for rows.Next() {
		var c category.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Root, &c.RootID, &c.ScorePercentage, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan root: %w", err)
		}
		roots = append(roots, &c)
	}
	return roots, rows.Err()
}

// ListDependencies returns the outgoing edges of a category. Percentages are
// recomputed from the factors on read, so they always sum to 100 regardless
// of what a partial write left behind.
func (r *CategoryRepository) ListDependencies(ctx context.Context, categoryID string) ([]category.DependencyEdge, error) {
	query := `
		SELECT from_id, to_id, factor
		FROM category_dependencies
		WHERE from_id = $1
		ORDER BY to_id
	`
	rows, err := r.conn.Query(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}
	defer rows.Close()

	var edges []category.DependencyEdge
	for rows.Next() {
		var e category.DependencyEdge
		if err := rows.Scan(&e.FromID, &e.ToID, &e.Factor); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	category.NormalizePercentages(edges)
	return edges, nil
}

// ListDependents returns the incoming edges of a category. Each edge's
// percentage belongs to its owner's normalization group, so the stored value
// is read back as written by PutDependencies.
func (r *CategoryRepository) ListDependents(ctx context.Context, categoryID string) ([]category.DependencyEdge, error) {
	query := `
		SELECT from_id, to_id, factor, percentage
		FROM category_dependencies
		WHERE to_id = $1
		ORDER BY from_id
	`
	rows, err := r.conn.Query(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list dependents: %w", err)
	}
	defer rows.Close()

	var edges []category.DependencyEdge
	for rows.Next() {
		var e category.DependencyEdge
		if err := rows.Scan(&e.FromID, &e.ToID, &e.Factor, &e.Percentage); err != nil {
			return nil, fmt.Errorf("scan dependent: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// PutDependencies replaces the outgoing edge set of a category atomically and
// stores renormalized percentages.
func (r *CategoryRepository) PutDependencies(ctx context.Context, categoryID string, edges []category.DependencyEdge) error {
	for i := range edges {
		if edges[i].FromID == "" {
			edges[i].FromID = categoryID
		}
		if err := edges[i].Validate(); err != nil {
			return err
		}
		if edges[i].FromID != categoryID {
			return shared.NewDomainError("category", "PutDependencies", shared.ErrValidation,
				"edge owner does not match category")
		}
	}
	category.NormalizePercentages(edges)

	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM category_dependencies WHERE from_id = $1`, categoryID); err != nil {
			return fmt.Errorf("clear dependencies: %w", err)
		}
		for _, e := range edges {
			_, err := tx.Exec(ctx, `
				INSERT INTO category_dependencies (from_id, to_id, factor, percentage)
				VALUES ($1, $2, $3, $4)
			`, e.FromID, e.ToID, e.Factor, e.Percentage)
			if IsForeignKeyViolation(err) {
				return shared.ErrCategoryNotFound
			}
			if err != nil {
				return fmt.Errorf("insert dependency: %w", err)
			}
		}
		return nil
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// CATEGORY EDGE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

const categoryEdgeColumns = `
	id, subject_id, category_id, root_id,
	skill_value, skill_level, skill_title, relevant_score, solve_count,
	skill_value_by_percentage, solved_by_difficulty, updated_at
`

// CategoryEdgeRepository implements category.EdgeRepository using PostgreSQL.
type CategoryEdgeRepository struct {
	conn *Connection
}

// NewCategoryEdgeRepository creates a new CategoryEdgeRepository.
func NewCategoryEdgeRepository(conn *Connection) *CategoryEdgeRepository {
	return &CategoryEdgeRepository{conn: conn}
}

// Get returns the edge for a subject/category pair. Exactly one row may
// match: zero rows is not-found, more than one is a data-integrity violation
// reported to the caller instead of being silently merged.
func (r *CategoryEdgeRepository) Get(ctx context.Context, subjectID, categoryID string) (*category.UserEdge, error) {
	query := `
		SELECT ` + categoryEdgeColumns + `
		FROM category_edges
		WHERE subject_id = $1 AND category_id = $2
	`
	rows, err := r.conn.Query(ctx, query, subjectID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("get category edge: %w", err)
	}
	defer rows.Close()

	var edges []*category.UserEdge
	for rows.Next() {
		edge, err := scanCategoryEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(edges) {
	case 0:
		return nil, shared.ErrEdgeNotFound
	case 1:
		return edges[0], nil
	default:
		return nil, shared.ErrDuplicateEdge
	}
}

// GetOrCreate returns the edge for a subject/category pair, inserting a zero
// edge when none exists.
func (r *CategoryEdgeRepository) GetOrCreate(ctx context.Context, subjectID, categoryID string) (*category.UserEdge, error) {
	edge, err := r.Get(ctx, subjectID, categoryID)
	if err == nil {
		return edge, nil
	}
	if !errors.Is(err, shared.ErrEdgeNotFound) {
		return nil, err
	}

	var rootID string
	rootErr := r.conn.QueryRow(ctx,
		`SELECT root_id FROM categories WHERE id = $1`, categoryID).Scan(&rootID)
	if rootErr != nil && !IsNoRows(rootErr) {
		return nil, fmt.Errorf("resolve root: %w", rootErr)
	}

	edge = category.NewUserEdge(uuid.NewString(), subjectID, categoryID, rootID)
	_, err = r.conn.Exec(ctx, `
		INSERT INTO category_edges (id, subject_id, category_id, root_id, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, edge.ID, edge.SubjectID, edge.CategoryID, edge.RootID, edge.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create category edge: %w", err)
	}
	return edge, nil
}

// Update persists the mutable fields of an edge.
func (r *CategoryEdgeRepository) Update(ctx context.Context, edge *category.UserEdge) error {
	edge.UpdatedAt = time.Now()
	tag, err := r.conn.Exec(ctx, `
		UPDATE category_edges
		SET root_id = $2,
			skill_value = $3,
			skill_level = $4,
			skill_title = $5,
			relevant_score = $6,
			solve_count = $7,
			skill_value_by_percentage = $8,
			solved_by_difficulty = $9,
			updated_at = $10
		WHERE id = $1
	`, edge.ID, edge.RootID, edge.SkillValue, edge.SkillLevel, edge.SkillTitle,
		edge.RelevantScore, edge.SolveCount, edge.SkillValueByPercentage,
		difficultySlice(edge.SolvedByDifficulty), edge.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update category edge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrEdgeNotFound
	}
	return nil
}

// ListBySubject returns all category edges of a subject.
func (r *CategoryEdgeRepository) ListBySubject(ctx context.Context, subjectID string) ([]*category.UserEdge, error) {
	query := `
		SELECT ` + categoryEdgeColumns + `
		FROM category_edges
		WHERE subject_id = $1
		ORDER BY category_id
	`
	rows, err := r.conn.Query(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list category edges: %w", err)
	}
	defer rows.Close()

	var edges []*category.UserEdge
	for rows.Next() {
		edge, err := scanCategoryEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

// SumSkillByRoot aggregates the weighted skill of a subject's non-root edges
// under one root.
func (r *CategoryEdgeRepository) SumSkillByRoot(ctx context.Context, subjectID, rootID string) (float64, error) {
	query := `
		SELECT COALESCE(SUM(skill_value_by_percentage), 0)
		FROM category_edges
		WHERE subject_id = $1 AND root_id = $2 AND category_id <> $2
	`
	var sum float64
	if err := r.conn.QueryRow(ctx, query, subjectID, rootID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum skill by root: %w", err)
	}
	return sum, nil
}

// ResetHistory zeroes the counters and skill numbers of all edges of a
// subject.
func (r *CategoryEdgeRepository) ResetHistory(ctx context.Context, subjectID string) error {
	_, err := r.conn.Exec(ctx, `
		UPDATE category_edges
		SET skill_value = 0,
			skill_level = 0,
			skill_title = '',
			relevant_score = 0,
			solve_count = 0,
			skill_value_by_percentage = 0,
			solved_by_difficulty = '{0,0,0,0,0,0,0,0,0,0,0}',
			updated_at = NOW()
		WHERE subject_id = $1
	`, subjectID)
	if err != nil {
		return fmt.Errorf("reset history: %w", err)
	}
	return nil
}

// scanCategoryEdge reads one category edge row.
func scanCategoryEdge(row pgx.Row) (*category.UserEdge, error) {
	var (
		edge    category.UserEdge
		buckets []int32
	)
	err := row.Scan(
		&edge.ID, &edge.SubjectID, &edge.CategoryID, &edge.RootID,
		&edge.SkillValue, &edge.SkillLevel, &edge.SkillTitle, &edge.RelevantScore, &edge.SolveCount,
		&edge.SkillValueByPercentage, &buckets, &edge.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan category edge: %w", err)
	}
	for i, n := range buckets {
		if i >= len(edge.SolvedByDifficulty) {
			break
		}
		edge.SolvedByDifficulty[i] = int(n)
	}
	return &edge, nil
}

// difficultySlice converts the fixed counter array to a slice for storage.
func difficultySlice(buckets [11]int) []int32 {
	out := make([]int32, len(buckets))
	for i, n := range buckets {
		out[i] = int32(n)
	}
	return out
}
