package judgeapi

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// WIRE TYPES
// ══════════════════════════════════════════════════════════════════════════════

// APIResponse is the envelope every feed endpoint returns.
type APIResponse[T any] struct {
	Status  string `json:"status"`
	Result  T      `json:"result"`
	Comment string `json:"comment,omitempty"`
}

// OK reports whether the envelope carries a successful result.
func (r *APIResponse[T]) OK() bool {
	return r.Status == "OK"
}

// SubmissionDTO is one submission as reported by the judge feed.
type SubmissionDTO struct {
	ID          int64   `json:"id"`
	ProblemID   string  `json:"problem_id"`
	Handle      string  `json:"handle"`
	Verdict     string  `json:"verdict"`
	URL         string  `json:"url"`
	SubmittedAt int64   `json:"submitted_at"` // unix seconds
	TimeMillis  int     `json:"time_ms,omitempty"`
	MemoryKB    float64 `json:"memory_kb,omitempty"`
}

// Accepted reports whether the submission passed all tests. Judges disagree
// on the verdict string, so both common spellings are recognized.
func (s *SubmissionDTO) Accepted() bool {
	return s.Verdict == "OK" || s.Verdict == "AC" || s.Verdict == "ACCEPTED"
}

// SubmittedTime converts the unix timestamp.
func (s *SubmissionDTO) SubmittedTime() time.Time {
	return time.Unix(s.SubmittedAt, 0).UTC()
}

// APIErrorDTO is the error body returned on 4xx responses.
type APIErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	return fmt.Sprintf("judge api error %s: %s", e.Code, e.Message)
}
