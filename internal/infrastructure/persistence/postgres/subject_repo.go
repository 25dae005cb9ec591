package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cphub/cp-training-hub/internal/domain/shared"
	"github.com/cphub/cp-training-hub/internal/domain/subject"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBJECT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

const subjectColumns = `
	id, kind, name, judge_handles,
	skill_value, skill_level, skill_title, solve_count, next_target,
	last_synced_at, created_at, updated_at
`

// SubjectRepository implements subject.Repository using PostgreSQL.
type SubjectRepository struct {
	conn *Connection
}

// NewSubjectRepository creates a new SubjectRepository.
func NewSubjectRepository(conn *Connection) *SubjectRepository {
	return &SubjectRepository{conn: conn}
}

// Get retrieves a subject by id with its member list.
func (r *SubjectRepository) Get(ctx context.Context, id string) (*subject.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE id = $1`
	s, err := scanSubject(r.conn.QueryRow(ctx, query, id))
	if IsNoRows(err) {
		return nil, shared.ErrSubjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subject: %w", err)
	}

	if s.Kind == subject.KindTeam {
		memberIDs, err := r.memberIDs(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		s.MemberIDs = memberIDs
	}
	return s, nil
}

// Members retrieves the member subjects of a team.
func (r *SubjectRepository) Members(ctx context.Context, teamID string) ([]*subject.Subject, error) {
	query := `
		SELECT ` + subjectColumns + `
		FROM subjects
		WHERE id IN (SELECT member_id FROM subject_members WHERE team_id = $1)
		ORDER BY id
	`
	rows, err := r.conn.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []*subject.Subject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, s)
	}
	return members, rows.Err()
}

// ListActive retrieves all subjects eligible for periodic sync.
func (r *SubjectRepository) ListActive(ctx context.Context) ([]*subject.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE active ORDER BY id`
	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active subjects: %w", err)
	}
	defer rows.Close()

	var subjects []*subject.Subject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// UpdateStats persists the overall statistic block of a subject.
func (r *SubjectRepository) UpdateStats(ctx context.Context, subjectID string, stats subject.Stats) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE subjects
		SET skill_value = $2,
			skill_level = $3,
			skill_title = $4,
			solve_count = $5,
			next_target = $6,
			last_synced_at = $7,
			updated_at = NOW()
		WHERE id = $1
	`, subjectID, stats.SkillValue, stats.SkillLevel, stats.SkillTitle,
		stats.SolveCount, stats.NextTarget, stats.SyncedAt)
	if err != nil {
		return fmt.Errorf("update subject stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrSubjectNotFound
	}
	return nil
}

func (r *SubjectRepository) memberIDs(ctx context.Context, teamID string) ([]string, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT member_id FROM subject_members WHERE team_id = $1 ORDER BY member_id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list member ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanSubject(row pgx.Row) (*subject.Subject, error) {
	var (
		s          subject.Subject
		kind       string
		handles    []byte
		lastSynced *time.Time
	)
	err := row.Scan(
		&s.ID, &kind, &s.Name, &handles,
		&s.SkillValue, &s.SkillLevel, &s.SkillTitle, &s.SolveCount, &s.NextTarget,
		&lastSynced, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Kind = subject.Kind(kind)
	if lastSynced != nil {
		s.LastSyncedAt = *lastSynced
	}
	if len(handles) > 0 {
		if err := json.Unmarshal(handles, &s.JudgeHandles); err != nil {
			return nil, fmt.Errorf("unmarshal judge handles: %w", err)
		}
	}
	return &s, nil
}
