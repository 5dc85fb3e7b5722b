// Package layout turns one custodian's issued items into positioned text
// for the DA Form 2062 template. Everything here is pure.
package layout

import (
	"strings"

	"github.com/erazemk/handreceipt/internal/model"
)

// Serials per line of a receipt row.
const (
	SerialsFirstLine  = 4
	SerialsSecondLine = 6
	SerialsPerRow     = SerialsFirstLine + SerialsSecondLine
)

// Row is one printed entry: a model and up to SerialsPerRow of its serials.
type Row struct {
	Model   string   `json:"model"`
	Serials []string `json:"serials"`
	Line1   []string `json:"line1"`
	Line2   []string `json:"line2,omitempty"`
}

// Quantity returns the number of units on the row.
func (r Row) Quantity() int {
	return len(r.Serials)
}

// Line1Text returns the first printed line.
func (r Row) Line1Text() string {
	return r.Model + " - S/N: " + strings.Join(r.Line1, ", ")
}

// Line2Text returns the second printed line, empty when the row fits on one.
func (r Row) Line2Text() string {
	if len(r.Line2) == 0 {
		return ""
	}
	return "S/N: " + strings.Join(r.Line2, ", ")
}

// Pack groups items by model in order of first appearance and splits each
// group into rows. Serials keep their input order and rows never mix models.
func Pack(items []model.Item) []Row {
	var order []string
	groups := make(map[string][]string)
	for _, item := range items {
		if _, ok := groups[item.Model]; !ok {
			order = append(order, item.Model)
		}
		groups[item.Model] = append(groups[item.Model], item.Serial)
	}

	var rows []Row
	for _, name := range order {
		serials := groups[name]
		for start := 0; start < len(serials); start += SerialsPerRow {
			chunk := serials[start:min(start+SerialsPerRow, len(serials))]
			split := min(SerialsFirstLine, len(chunk))
			row := Row{
				Model:   name,
				Serials: chunk,
				Line1:   chunk[:split],
			}
			if len(chunk) > split {
				row.Line2 = chunk[split:]
			}
			rows = append(rows, row)
		}
	}
	return rows
}
