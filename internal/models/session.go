// Package models contains domain types for the comment sentiment dashboard.
package models

import "time"

// SessionStatus is the position of a dashboard session in its request lifecycle.
type SessionStatus string

const (
	SessionStatusUploaded   SessionStatus = "uploaded"
	SessionStatusPreviewed  SessionStatus = "previewed"
	SessionStatusExecuting  SessionStatus = "executing"
	SessionStatusSucceeded  SessionStatus = "succeeded"
	SessionStatusExtracting SessionStatus = "extracting"
	SessionStatusRendered   SessionStatus = "rendered"
	SessionStatusFailed     SessionStatus = "failed"
)

// CanStartRun reports whether a new chart generation may start from this status.
func (s SessionStatus) CanStartRun() bool {
	switch s {
	case SessionStatusPreviewed, SessionStatusRendered, SessionStatusFailed:
		return true
	}
	return false
}

// Session is one user's upload and the summary of its latest run.
type Session struct {
	ID        string        `json:"id" msgpack:"id"`
	FileID    string        `json:"fileId" msgpack:"fileId"`
	FileName  string        `json:"fileName" msgpack:"fileName"`
	FileSize  int64         `json:"fileSize" msgpack:"fileSize"`
	Status    SessionStatus `json:"status" msgpack:"status"`
	CreatedAt time.Time     `json:"createdAt" msgpack:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt" msgpack:"updatedAt"`
	LastRun   *RunSummary   `json:"lastRun,omitempty" msgpack:"lastRun,omitempty"`
}

// RunSummary records the outcome of the most recent run without its charts.
type RunSummary struct {
	Status       RunStatus `json:"status" msgpack:"status"`
	Engine       string    `json:"engine" msgpack:"engine"`
	ChartCount   int       `json:"chartCount" msgpack:"chartCount"`
	DurationMs   int64     `json:"durationMs" msgpack:"durationMs"`
	FailureStage string    `json:"failureStage,omitempty" msgpack:"failureStage,omitempty"`
	FinishedAt   time.Time `json:"finishedAt" msgpack:"finishedAt"`
}
