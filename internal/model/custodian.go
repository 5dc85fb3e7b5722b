package model

import "time"

// Custodian is the person or unit items are issued to.
type Custodian struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IssuedBy  string    `json:"issued_by"`
	Contact   string    `json:"contact"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Derived, never stored.
	IssuedCount int `json:"issued_count"`
}
