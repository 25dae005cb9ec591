package judgeapi

import (
	"sort"

	"github.com/cphub/cp-training-hub/internal/domain/judge"
)

// Mapper converts wire DTOs into domain types.
type Mapper struct{}

// NewMapper creates a Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// SolvedFromSubmissions reduces a raw submission list to the set of solved
// problems: accepted submissions only, one entry per problem, keeping the
// earliest accepted submission as the canonical link.
func (m *Mapper) SolvedFromSubmissions(submissions []SubmissionDTO) []judge.SolvedProblem {
	earliest := make(map[string]SubmissionDTO)
	for _, sub := range submissions {
		if !sub.Accepted() || sub.ProblemID == "" {
			continue
		}
		if best, ok := earliest[sub.ProblemID]; !ok || sub.SubmittedAt < best.SubmittedAt {
			earliest[sub.ProblemID] = sub
		}
	}

	solved := make([]judge.SolvedProblem, 0, len(earliest))
	for _, sub := range earliest {
		solved = append(solved, judge.SolvedProblem{
			ProblemID:      sub.ProblemID,
			SubmissionLink: sub.URL,
			SubmittedAt:    sub.SubmittedTime(),
		})
	}

	// Deterministic output order for stable processing downstream.
	sort.Slice(solved, func(i, j int) bool {
		if solved[i].SubmittedAt.Equal(solved[j].SubmittedAt) {
			return solved[i].ProblemID < solved[j].ProblemID
		}
		return solved[i].SubmittedAt.Before(solved[j].SubmittedAt)
	})
	return solved
}
