package models

import "time"

// LogLevel tags operator-facing log events.
type LogLevel string

const (
	LevelInfo    LogLevel = "info"
	LevelSuccess LogLevel = "success"
	LevelWarn    LogLevel = "warn"
	LevelError   LogLevel = "error"
)

// Outcome is the result of one attempt to post a record. A nil Err means
// success. Run, Index and Attempt identify the attempt the outcome answers.
type Outcome struct {
	Run     uint64
	Index   int
	Attempt uint64
	Elapsed time.Duration
	Err     error
}

// Success builds a successful outcome.
func Success() Outcome {
	return Outcome{}
}

// Failure builds a failed outcome carrying err as its reason.
func Failure(err error) Outcome {
	return Outcome{Err: err}
}

// OK reports whether the attempt succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Reason returns the human-readable failure reason.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// ItemStatus is the result status recorded for one attempt.
type ItemStatus string

const (
	StatusPosted   ItemStatus = "posted"
	StatusRetrying ItemStatus = "retrying"
	StatusFailed   ItemStatus = "failed"
)

// ItemResult is one row of the run report.
type ItemResult struct {
	RunID    string     `csv:"run_id" json:"run_id"`
	Index    int        `csv:"index" json:"index"`
	Title    string     `csv:"title" json:"title"`
	Attempt  int        `csv:"attempt" json:"attempt"`
	Status   ItemStatus `csv:"status" json:"status"`
	Reason   string     `csv:"reason" json:"reason,omitempty"`
	Duration float64    `csv:"duration_seconds" json:"duration_seconds"`
	At       time.Time  `csv:"at" json:"at"`
}

// RunSummary holds the overall result of a listing run.
type RunSummary struct {
	RunID     string
	State     string
	Posted    int
	Total     int
	Attempts  int
	Retries   int
	StartTime time.Time
	EndTime   time.Time
	Err       error
}
