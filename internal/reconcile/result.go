package reconcile

import "fmt"

// Result is the outcome of one reconciliation run.
//
// Requesters without an email or without a matching employee are not counted
// in Matched, Updated, Skipped or Failed.
type Result struct {
	TotalEmployees  int      `json:"totalEmployees"`
	TotalRequesters int      `json:"totalRequesters"`
	Matched         int      `json:"matched"`
	Updated         int      `json:"updated"`
	Skipped         int      `json:"skipped"`
	Failed          int      `json:"failed"`
	Errors          []string `json:"errors"`
}

func newResult() *Result {
	return &Result{Errors: []string{}}
}

// Summary renders the one-line human readable outcome.
func (r *Result) Summary() string {
	return fmt.Sprintf("Processed: %d employees, %d requesters | Matched: %d | Updated: %d | Skipped: %d | Failed: %d",
		r.TotalEmployees, r.TotalRequesters, r.Matched, r.Updated, r.Skipped, r.Failed)
}

func (r *Result) recordFailure(target TargetRecord) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf("Failed to update requester %s (ID: %d)", target.PrimaryEmail, target.ID))
}
