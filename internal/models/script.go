package models

import "time"

// StoredScript is a named script saved through the API.
type StoredScript struct {
	Name            string    `json:"name"`
	Body            string    `json:"body"`
	Steps           int       `json:"steps"`
	ExpectedSeconds int       `json:"expected_seconds"`
	UpdatedAt       time.Time `json:"updated_at"`
}
