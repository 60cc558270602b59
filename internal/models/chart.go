package models

import "encoding/json"

// RunStatus is the terminal state of a chart generation request.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Chart is one rendered chart panel.
type Chart struct {
	Index  int             `json:"index" msgpack:"index"`
	Title  string          `json:"title" msgpack:"title"` // "Chart N"
	Name   string          `json:"name,omitempty" msgpack:"name,omitempty"`
	Source string          `json:"source,omitempty" msgpack:"source,omitempty"`
	Figure json.RawMessage `json:"figure" msgpack:"figure"`
}

// RunFailure is the user-visible description of a failed run.
type RunFailure struct {
	Stage   string `json:"stage" msgpack:"stage"`
	Message string `json:"message" msgpack:"message"`
}

// RunResult is the response to a "Generate Charts" action.
type RunResult struct {
	SessionID  string      `json:"sessionId" msgpack:"sessionId"`
	Engine     string      `json:"engine" msgpack:"engine"`
	Status     RunStatus   `json:"status" msgpack:"status"`
	Charts     []Chart     `json:"charts" msgpack:"charts"`
	Warning    string      `json:"warning,omitempty" msgpack:"warning,omitempty"`
	Failure    *RunFailure `json:"failure,omitempty" msgpack:"failure,omitempty"`
	DurationMs int64       `json:"durationMs" msgpack:"durationMs"`
}
