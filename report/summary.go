package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/lattice-substrate/joml-conformance/evaluate"
)

// SchemaVersion identifies the layout of the JSON summary artifact.
const SchemaVersion = "joml-runner.summary/v1"

// CaseResult is one fixture's recorded verdict.
type CaseResult struct {
	ID       string        `json:"id"`
	Pass     bool          `json:"pass"`
	Reason   string        `json:"reason,omitempty"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Summary accumulates the outcome of a run.
type Summary struct {
	SchemaVersion string        `json:"schema_version"`
	RunID         string        `json:"run_id"`
	Subject       string        `json:"subject"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration_ns"`
	Total         int           `json:"total"`
	Failed        []string      `json:"failed"`
	Results       []CaseResult  `json:"results"`
}

// NewSummary starts an empty summary with a fresh run id.
func NewSummary(subject string, startedAt time.Time) *Summary {
	return &Summary{
		SchemaVersion: SchemaVersion,
		RunID:         uuid.NewString(),
		Subject:       subject,
		StartedAt:     startedAt,
		Failed:        []string{},
		Results:       []CaseResult{},
	}
}

// Record tallies one verdict.
func (s *Summary) Record(id string, v evaluate.Verdict, d time.Duration) {
	s.Total++
	if !v.Pass {
		s.Failed = append(s.Failed, id)
	}
	s.Results = append(s.Results, CaseResult{
		ID:       id,
		Pass:     v.Pass,
		Reason:   v.Reason,
		Detail:   v.Detail,
		Duration: d,
	})
}

// Passed reports whether every recorded fixture passed.
func (s *Summary) Passed() bool {
	return len(s.Failed) == 0
}

// Finish stamps the total run duration.
func (s *Summary) Finish(end time.Time) {
	s.Duration = end.Sub(s.StartedAt)
}
