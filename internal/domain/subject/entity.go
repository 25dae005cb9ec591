// Package subject contains the subjects of synchronization: individual users
// and teams, with their judge handles and overall skill statistics.
package subject

import (
	"time"

	"github.com/cphub/cp-training-hub/internal/domain/shared"
)

// Kind distinguishes individual users from teams.
type Kind string

const (
	KindUser Kind = "user"
	KindTeam Kind = "team"
)

// IsValid reports whether the kind is known.
func (k Kind) IsValid() bool {
	return k == KindUser || k == KindTeam
}

// Subject is a user or a team tracked by the hub. A team's solves are the
// union of its members' solves; each problem counts once.
type Subject struct {
	ID   string
	Kind Kind
	Name string

	// JudgeHandles maps a judge name ("codeforces", "atcoder") to the
	// subject's handle on that judge. Empty for teams; team handles come
	// from the members.
	JudgeHandles map[string]string

	// MemberIDs lists the member subjects of a team. Empty for users.
	MemberIDs []string

	SkillValue   float64
	SkillLevel   float64
	SkillTitle   string
	SolveCount   int
	NextTarget   float64
	LastSyncedAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks the subject invariants.
func (s *Subject) Validate() error {
	if s.ID == "" {
		return shared.NewDomainError("subject", "Validate", shared.ErrInvalidID, "subject id is empty")
	}
	if !s.Kind.IsValid() {
		return shared.ErrInvalidKind
	}
	if s.Kind == KindUser && len(s.MemberIDs) > 0 {
		return shared.NewDomainError("subject", "Validate", shared.ErrValidation, "a user cannot have members")
	}
	return nil
}

// IsTeam reports whether the subject is a team.
func (s *Subject) IsTeam() bool {
	return s.Kind == KindTeam
}

// Stats is the overall statistic block recomputed at the end of every sync.
type Stats struct {
	SkillValue float64
	SkillLevel float64
	SkillTitle string
	SolveCount int
	NextTarget float64
	SyncedAt   time.Time
}
