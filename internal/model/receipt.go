package model

import "time"

// Receipt records a generated hand receipt document.
type Receipt struct {
	ID          string    `json:"id"`
	CustodianID int64     `json:"custodian_id"`
	FileName    string    `json:"file_name"`
	Pages       int       `json:"pages"`
	Rows        int       `json:"rows"`
	Digest      string    `json:"digest"`
	GeneratedAt time.Time `json:"generated_at"`

	// Joined fields (not always populated).
	CustodianName string `json:"custodian_name,omitempty"`
}
