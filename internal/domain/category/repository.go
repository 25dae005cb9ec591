package category

import (
	"context"
)

// Repository provides access to category nodes and the dependency graph
// between them. Implementations live in infrastructure.
type Repository interface {
	// GetCategory returns a category by id.
	// Returns shared.ErrCategoryNotFound when it does not exist.
	GetCategory(ctx context.Context, id string) (*Category, error)

	// ListRoots returns all root categories.
	ListRoots(ctx context.Context) ([]*Category, error)

	// ListDependencies returns the outgoing dependency edges of a category:
	// the categories it depends on, percentages normalized to sum to 100.
	ListDependencies(ctx context.Context, categoryID string) ([]DependencyEdge, error)

	// ListDependents returns the incoming dependency edges of a category:
	// the categories that depend on it.
	ListDependents(ctx context.Context, categoryID string) ([]DependencyEdge, error)

	// PutDependencies replaces the full outgoing edge set of a category and
	// renormalizes percentages.
	PutDependencies(ctx context.Context, categoryID string, edges []DependencyEdge) error
}

// EdgeRepository provides access to per-subject category edges.
type EdgeRepository interface {
	// Get returns the edge for a subject/category pair.
	// Returns shared.ErrEdgeNotFound when it does not exist and
	// shared.ErrDuplicateEdge when more than one edge matches.
	Get(ctx context.Context, subjectID, categoryID string) (*UserEdge, error)

	// GetOrCreate returns the edge for a subject/category pair, creating a
	// zero edge when none exists. Duplicate detection as in Get.
	GetOrCreate(ctx context.Context, subjectID, categoryID string) (*UserEdge, error)

	// Update persists the mutable fields of an edge.
	Update(ctx context.Context, edge *UserEdge) error

	// ListBySubject returns all edges of a subject.
	ListBySubject(ctx context.Context, subjectID string) ([]*UserEdge, error)

	// SumSkillByRoot returns the weighted aggregate of a subject's edges
	// under one root: the sum of skill_value_by_percentage over all non-root
	// categories belonging to the root.
	SumSkillByRoot(ctx context.Context, subjectID, rootID string) (float64, error)

	// ResetHistory zeroes the counters and skill numbers of all edges of a
	// subject. Explicit maintenance operation.
	ResetHistory(ctx context.Context, subjectID string) error
}
