package service

import (
	"errors"
	"time"
)

// ErrInvalidRequest marks caller mistakes in otherwise well-formed calls.
var ErrInvalidRequest = errors.New("invalid request")

// LoadParams selects the script for a new run: a stored name or inline text.
type LoadParams struct {
	Name string
	Text string
}

// LogFilter supports history filtering by time range, kind and run.
type LogFilter struct {
	From      time.Time // inclusive; zero means no lower bound
	To        time.Time // inclusive; zero means no upper bound
	Kind      string    // "", "open", "close", "pause", "pump", "state", "t_e", "t_n", "terminate"
	SessionID string
	Limit     int
}

// ScriptSummary describes a script that parsed cleanly.
type ScriptSummary struct {
	Steps           []string `json:"steps"`
	ExpectedSeconds int      `json:"expected_seconds"`
}
