package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cphub/cp-training-hub/internal/domain/problem"
	"github.com/cphub/cp-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROBLEM REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ProblemRepository implements problem.Repository using PostgreSQL.
type ProblemRepository struct {
	conn *Connection
}

// NewProblemRepository creates a new ProblemRepository.
func NewProblemRepository(conn *Connection) *ProblemRepository {
	return &ProblemRepository{conn: conn}
}

// Get retrieves a problem with its category links.
func (r *ProblemRepository) Get(ctx context.Context, id string) (*problem.Problem, error) {
	query := `
		SELECT id, title, oj_name, difficulty, active, created_at, updated_at
		FROM problems
		WHERE id = $1
	`
	var p problem.Problem
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.OJName, &p.Difficulty, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if IsNoRows(err) {
		return nil, shared.ErrProblemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get problem: %w", err)
	}

	links, err := r.categoryLinks(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.CategoryLinks = links
	return &p, nil
}

// FindByCategory returns problems linked to a category inside the filter's
// difficulty window.
func (r *ProblemRepository) FindByCategory(ctx context.Context, filter problem.Filter) ([]*problem.Problem, error) {
	query := `
		SELECT p.id, p.title, p.oj_name, p.difficulty, p.active, p.created_at, p.updated_at
		FROM problems p
		JOIN problem_categories pc ON pc.problem_id = p.id
		WHERE pc.category_id = $1
		  AND p.difficulty >= $2
		  AND p.difficulty <= $3
		  AND (NOT $4 OR p.active)
		ORDER BY p.difficulty, p.id
	`
	rows, err := r.conn.Query(ctx, query,
		filter.CategoryID, filter.MinDifficulty, filter.MaxDifficulty, filter.ActiveOnly)
	if err != nil {
		return nil, fmt.Errorf("find problems by category: %w", err)
	}
	defer rows.Close()

	var problems []*problem.Problem
	for rows.Next() {
		var p problem.Problem
		if err := rows.Scan(&p.ID, &p.Title, &p.OJName, &p.Difficulty, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan problem: %w", err)
		}
		problems = append(problems, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range problems {
		links, err := r.categoryLinks(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.CategoryLinks = links
	}
	return problems, nil
}

func (r *ProblemRepository) categoryLinks(ctx context.Context, problemID string) ([]problem.CategoryLink, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT category_id, factor
		FROM problem_categories
		WHERE problem_id = $1
		ORDER BY category_id
	`, problemID)
	if err != nil {
		return nil, fmt.Errorf("list category links: %w", err)
	}
	defer rows.Close()

	var links []problem.CategoryLink
	for rows.Next() {
		var link problem.CategoryLink
		if err := rows.Scan(&link.CategoryID, &link.Factor); err != nil {
			return nil, fmt.Errorf("scan category link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// PROBLEM EDGE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ProblemEdgeRepository implements problem.EdgeRepository using PostgreSQL.
// Submissions are stored as a JSONB document since they are only ever read
// and written as a whole, append-only list.
type ProblemEdgeRepository struct {
	conn *Connection
}

// NewProblemEdgeRepository creates a new ProblemEdgeRepository.
func NewProblemEdgeRepository(conn *Connection) *ProblemEdgeRepository {
	return &ProblemEdgeRepository{conn: conn}
}

// Get returns the edge for a subject/problem pair.
func (r *ProblemEdgeRepository) Get(ctx context.Context, subjectID, problemID string) (*problem.UserEdge, error) {
	query := `
		SELECT id, subject_id, problem_id, status, relevant_score, submissions, updated_at
		FROM problem_edges
		WHERE subject_id = $1 AND problem_id = $2
	`
	edge, err := scanProblemEdge(r.conn.QueryRow(ctx, query, subjectID, problemID))
	if IsNoRows(err) {
		return nil, shared.ErrProblemEdgeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get problem edge: %w", err)
	}
	return edge, nil
}

// GetOrCreate returns the edge for a subject/problem pair, inserting an
// unsolved edge when none exists.
func (r *ProblemEdgeRepository) GetOrCreate(ctx context.Context, subjectID, problemID string) (*problem.UserEdge, error) {
	edge, err := r.Get(ctx, subjectID, problemID)
	if err == nil {
		return edge, nil
	}
	if !errors.Is(err, shared.ErrProblemEdgeNotFound) {
		return nil, err
	}

	edge = problem.NewUserEdge(uuid.NewString(), subjectID, problemID)
	_, err = r.conn.Exec(ctx, `
		INSERT INTO problem_edges (id, subject_id, problem_id, status, submissions, updated_at)
		VALUES ($1, $2, $3, $4, '[]', $5)
	`, edge.ID, edge.SubjectID, edge.ProblemID, string(edge.Status), edge.UpdatedAt)
	if IsUniqueViolation(err) {
		// Concurrent creation, read back the winner.
		return r.Get(ctx, subjectID, problemID)
	}
	if err != nil {
		return nil, fmt.Errorf("create problem edge: %w", err)
	}
	return edge, nil
}

// Update persists the mutable fields of an edge.
func (r *ProblemEdgeRepository) Update(ctx context.Context, edge *problem.UserEdge) error {
	submissions, err := json.Marshal(edge.Submissions)
	if err != nil {
		return fmt.Errorf("marshal submissions: %w", err)
	}
	edge.UpdatedAt = time.Now()
	tag, err := r.conn.Exec(ctx, `
		UPDATE problem_edges
		SET status = $2,
			relevant_score = $3,
			submissions = $4,
			updated_at = $5
		WHERE id = $1
	`, edge.ID, string(edge.Status), edge.RelevantScore, submissions, edge.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update problem edge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrProblemEdgeNotFound
	}
	return nil
}

func scanProblemEdge(row pgx.Row) (*problem.UserEdge, error) {
	var (
		edge   problem.UserEdge
		status string
		raw    []byte
	)
	err := row.Scan(&edge.ID, &edge.SubjectID, &edge.ProblemID, &status,
		&edge.RelevantScore, &raw, &edge.UpdatedAt)
	if err != nil {
		return nil, err
	}
	edge.Status = problem.Status(status)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &edge.Submissions); err != nil {
			return nil, fmt.Errorf("unmarshal submissions: %w", err)
		}
	}
	return &edge, nil
}
