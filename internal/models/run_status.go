package models

import "time"

// RunStatus is the snapshot served by /api/v1/run/status and streamed over /ws.
type RunStatus struct {
	SessionID            string            `json:"session_id,omitempty"`
	ScriptName           string            `json:"script_name,omitempty"`
	Loaded               bool              `json:"loaded"`
	State                string            `json:"state"`
	CurrentStep          string            `json:"current_step,omitempty"`
	StepsLeft            int               `json:"steps_left"`
	Steps                []string          `json:"steps,omitempty"`
	ExpectedSeconds      int               `json:"expected_seconds"`
	ElapsedSeconds       int               `json:"elapsed_seconds"`
	RemainingSeconds     int               `json:"remaining_seconds"`
	StepElapsedSeconds   int               `json:"step_elapsed_seconds"`
	StepRemainingSeconds int               `json:"step_remaining_seconds"`
	Valves               map[string]string `json:"valves"`
	UpdatedAt            time.Time         `json:"updated_at"`
}
