// Package judge defines the contract between the sync engine and external
// online judges. A judge is anything that can answer "which problems has this
// handle solved"; scraping and API details live in infrastructure.
package judge

import (
	"context"
	"time"
)

// SolvedProblem is one solve reported by a judge feed.
type SolvedProblem struct {
	ProblemID      string
	SubmissionLink string
	SubmittedAt    time.Time
}

// FeedSource is the external judge contract.
type FeedSource interface {
	// Name returns the judge identifier used to look up subject handles.
	Name() string

	// SolvedProblems returns all problems the handle has solved on this
	// judge. A feed failure fails the whole sync run; the engine is
	// idempotent so the dispatcher simply retries.
	SolvedProblems(ctx context.Context, handle string) ([]SolvedProblem, error)
}
