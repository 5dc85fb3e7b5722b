package custody

import (
	"errors"

	"github.com/erazemk/handreceipt/internal/model"
)

// Outcome is the result of one serial within a batch.
type Outcome struct {
	Serial string
	// Item is the item after the operation. For purges it is the last
	// state before erasure. Nil when rejected.
	Item *model.Item
	Err  error
}

// OK reports whether the operation was applied.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Reason returns the rejection label, empty when applied.
func (o Outcome) Reason() string {
	return Reason(o.Err)
}

// BatchResult holds one outcome per distinct input serial, in input order.
type BatchResult struct {
	outcomes []Outcome
	index    map[string]int
}

func (r *BatchResult) record(serial string, item *model.Item, err error) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	r.index[serial] = len(r.outcomes)
	r.outcomes = append(r.outcomes, Outcome{Serial: serial, Item: item, Err: err})
}

// Outcomes returns every outcome in input order.
func (r BatchResult) Outcomes() []Outcome {
	return r.outcomes
}

// Outcome returns the outcome for a serial.
func (r BatchResult) Outcome(serial string) (Outcome, bool) {
	i, ok := r.index[serial]
	if !ok {
		return Outcome{}, false
	}
	return r.outcomes[i], true
}

// Succeeded returns the items the operation was applied to.
func (r BatchResult) Succeeded() []model.Item {
	var items []model.Item
	for _, o := range r.outcomes {
		if o.OK() && o.Item != nil {
			items = append(items, *o.Item)
		}
	}
	return items
}

// Rejected returns every failed outcome.
func (r BatchResult) Rejected() []Outcome {
	var out []Outcome
	for _, o := range r.outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Blocked returns the outcomes rejected because the item is issued. Soft
// delete reports these apart from unknown serials.
func (r BatchResult) Blocked() []Outcome {
	var out []Outcome
	for _, o := range r.outcomes {
		if errors.Is(o.Err, ErrAlreadyIssued) {
			out = append(out, o)
		}
	}
	return out
}
