package models

import "time"

// RunEvent is one persisted telemetry entry. Progress events are not stored.
type RunEvent struct {
	EventID    string    `json:"event_id"`
	SessionID  string    `json:"session_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Kind       string    `json:"kind"` // open | close | pause | pump | state | t_e | t_n | terminate
	Valve      string    `json:"valve,omitempty"`
	State      string    `json:"state,omitempty"`
	Value      int       `json:"value,omitempty"`
}

// EventFilter narrows RunEvent listings. Zero fields are ignored.
type EventFilter struct {
	From      time.Time
	To        time.Time
	Kind      string
	SessionID string
	Limit     int
}
