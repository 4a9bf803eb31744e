package models

import "fmt"

// RawRow is one data row keyed by its header cell
type RawRow map[string]string

// RowError records why one row was skipped
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// RowResult is the outcome of normalizing one row
type RowResult struct {
	Transaction *Transaction
	Failure     *RowError
}

// OK reports whether the row produced a transaction
func (r RowResult) OK() bool {
	return r.Failure == nil && r.Transaction != nil
}

// NormalizeReport aggregates the row results of one file
type NormalizeReport struct {
	Schema       SchemaID       `json:"schema"`
	Bank         string         `json:"bank"`
	Transactions []*Transaction `json:"transactions"`
	Skipped      []RowError     `json:"skipped,omitempty"`
}

// Add folds one row result into the report
func (r *NormalizeReport) Add(res RowResult) {
	if res.OK() {
		r.Transactions = append(r.Transactions, res.Transaction)
		return
	}
	if res.Failure != nil {
		r.Skipped = append(r.Skipped, *res.Failure)
	}
}

func (r *NormalizeReport) SkippedCount() int {
	return len(r.Skipped)
}

func (r *NormalizeReport) SkippedReasons() []string {
	reasons := make([]string, 0, len(r.Skipped))
	for _, s := range r.Skipped {
		reasons = append(reasons, s.Error())
	}
	return reasons
}

// PipelineResult is everything one ingest produced
type PipelineResult struct {
	Detection    DetectionResult  `json:"detection"`
	Report       *NormalizeReport `json:"report"`
	RulesApplied int              `json:"rules_applied"`
}
