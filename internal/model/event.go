package model

import "time"

// Event is one entry of the custody history.
type Event struct {
	ID         int64     `json:"id"`
	ItemID     int64     `json:"item_id"`
	Serial     string    `json:"serial"`
	Action     string    `json:"action"`
	Custodian  string    `json:"custodian,omitempty"`
	IssuedBy   string    `json:"issued_by,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Event actions.
const (
	EventCreated  = "created"
	EventUpdated  = "updated"
	EventRevived  = "revived"
	EventIssued   = "issued"
	EventReturned = "returned"
	EventDeleted  = "deleted"
	EventRestored = "restored"
	EventPurged   = "purged"
)
