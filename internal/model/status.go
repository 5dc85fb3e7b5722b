package model

import "time"

// Status names as stored in the items.status column.
const (
	StatusOnHand  = "on_hand"
	StatusIssued  = "issued"
	StatusDeleted = "deleted"
)

// Status is the custody state of an item. The set of implementations is
// closed: OnHand, Issued and Deleted.
type Status interface {
	// Name returns the stored status name.
	Name() string
	isStatus()
}

// OnHand means the item is in stock and available for issue.
type OnHand struct{}

// Issued means the item is held by a custodian.
type Issued struct {
	CustodianID int64
}

// Deleted means the item sits in the recycle bin.
type Deleted struct {
	Reason    string
	DeletedAt time.Time
}

func (OnHand) Name() string  { return StatusOnHand }
func (Issued) Name() string  { return StatusIssued }
func (Deleted) Name() string { return StatusDeleted }

func (OnHand) isStatus()  {}
func (Issued) isStatus()  {}
func (Deleted) isStatus() {}

// StatusLabel returns the human readable label used in exports.
func StatusLabel(s Status) string {
	switch s.(type) {
	case OnHand:
		return "On Hand"
	case Issued:
		return "Issued"
	case Deleted:
		return "Deleted"
	default:
		return ""
	}
}
