package model

import "time"

// Item represents one physical unit tracked by serial number.
type Item struct {
	ID        int64     `json:"id"`
	Model     string    `json:"model"`
	Category  string    `json:"category"`
	Box       string    `json:"box,omitempty"`
	Serial    string    `json:"serial"`
	AssetTag  string    `json:"asset_tag,omitempty"`
	Status    Status    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	CustodianName string `json:"custodian_name,omitempty"`
}

// IsOnHand reports whether the item is in stock.
func (i *Item) IsOnHand() bool {
	_, ok := i.Status.(OnHand)
	return ok
}

// CustodianID returns the holding custodian, if the item is issued.
func (i *Item) CustodianID() (int64, bool) {
	s, ok := i.Status.(Issued)
	return s.CustodianID, ok
}

// Deletion returns the recycle bin record, if the item is deleted.
func (i *Item) Deletion() (Deleted, bool) {
	d, ok := i.Status.(Deleted)
	return d, ok
}

// ItemFields are the user-editable attributes of an item, as entered
// manually or read from an import file.
type ItemFields struct {
	Model    string
	Category string
	Box      string
	Serial   string
	AssetTag string
}
