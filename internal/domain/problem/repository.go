package problem

import (
	"context"
)

// Filter narrows a problem listing.
type Filter struct {
	CategoryID    string
	MinDifficulty float64
	MaxDifficulty float64
	ActiveOnly    bool
}

// Repository provides access to problems.
type Repository interface {
	// Get returns a problem by id with its category links.
	// Returns shared.ErrProblemNotFound when it does not exist.
	Get(ctx context.Context, id string) (*Problem, error)

	// FindByCategory returns problems linked to a category matching the
	// filter's difficulty window.
	FindByCategory(ctx context.Context, filter Filter) ([]*Problem, error)
}

// EdgeRepository provides access to per-subject problem edges.
type EdgeRepository interface {
	// Get returns the edge for a subject/problem pair.
	// Returns shared.ErrProblemEdgeNotFound when it does not exist.
	Get(ctx context.Context, subjectID, problemID string) (*UserEdge, error)

	// GetOrCreate returns the edge for a subject/problem pair, creating an
	// unsolved edge when none exists.
	GetOrCreate(ctx context.Context, subjectID, problemID string) (*UserEdge, error)

	// Update persists the mutable fields of an edge. Submission lists only
	// ever grow.
	Update(ctx context.Context, edge *UserEdge) error
}
