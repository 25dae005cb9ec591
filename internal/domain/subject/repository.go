package subject

import (
	"context"
)

// Repository provides access to subjects.
type Repository interface {
	// Get returns a subject by id.
	// Returns shared.ErrSubjectNotFound when it does not exist.
	Get(ctx context.Context, id string) (*Subject, error)

	// Members returns the member subjects of a team.
	Members(ctx context.Context, teamID string) ([]*Subject, error)

	// ListActive returns all subjects eligible for periodic sync.
	ListActive(ctx context.Context) ([]*Subject, error)

	// UpdateStats persists the overall statistic block of a subject.
	UpdateStats(ctx context.Context, subjectID string, stats Stats) error
}
