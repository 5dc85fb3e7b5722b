package layout

import (
	"fmt"
	"strconv"

	"github.com/erazemk/handreceipt/internal/calibration"
)

// Field identifies what a draw instruction fills in.
type Field string

// Fields.
const (
	FieldFrom        Field = "from"
	FieldTo          Field = "to"
	FieldContact     Field = "contact"
	FieldPageCounter Field = "page_counter"
	FieldItemLine1   Field = "item_line1"
	FieldItemLine2   Field = "item_line2"
	FieldQuantity    Field = "quantity"
)

// Align anchors text at its X coordinate.
type Align string

// Alignments.
const (
	AlignLeft  Align = "left"
	AlignRight Align = "right"
)

// Header is the first-page header block.
type Header struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Contact string `json:"contact"`
}

// DrawInstruction places one piece of text on a page.
type DrawInstruction struct {
	Field Field `json:"field"`
	// Row is the 1-based row on the page for row fields, zero otherwise.
	Row      int     `json:"row,omitempty"`
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Font     string  `json:"font"`
	FontSize float64 `json:"font_size"`
	Align    Align   `json:"align"`
}

// Page is one template page worth of instructions.
type Page struct {
	Index        int               `json:"index"`
	Total        int               `json:"total"`
	Rows         int               `json:"rows"`
	Instructions []DrawInstruction `json:"instructions"`
}

// Fields returns the instructions for one field in order.
func (p Page) Fields(f Field) []DrawInstruction {
	var out []DrawInstruction
	for _, in := range p.Instructions {
		if in.Field == f {
			out = append(out, in)
		}
	}
	return out
}

// PageCount returns how many pages rowCount rows need at rowsPerPage.
// There is always at least one page. A non-positive rowsPerPage puts every
// row on one page.
func PageCount(rowCount, rowsPerPage int) int {
	if rowCount <= 0 || rowsPerPage <= 0 {
		return 1
	}
	n := rowCount / rowsPerPage
	if rowCount%rowsPerPage != 0 {
		n++
	}
	return n
}

// Paginate assigns rows to pages in order and positions every field using
// the profile's coordinates as given. Only page 1 carries the header.
func Paginate(rows []Row, header Header, profile calibration.Profile) ([]Page, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("paginating: %w", err)
	}

	total := PageCount(len(rows), profile.RowsPerPage)
	pages := make([]Page, 0, total)
	for i := 0; i < total; i++ {
		start := i * profile.RowsPerPage
		end := min(start+profile.RowsPerPage, len(rows))
		var pageRows []Row
		if start < end {
			pageRows = rows[start:end]
		}
		pages = append(pages, layoutPage(i+1, total, pageRows, header, profile))
	}
	return pages, nil
}

func layoutPage(index, total int, rows []Row, header Header, p calibration.Profile) Page {
	page := Page{Index: index, Total: total, Rows: len(rows)}
	add := func(in DrawInstruction) {
		in.Font = p.FontName
		if in.Align == "" {
			in.Align = AlignLeft
		}
		page.Instructions = append(page.Instructions, in)
	}

	if index == 1 {
		if header.From != "" {
			add(DrawInstruction{Field: FieldFrom, Text: header.From, X: p.FromX, Y: p.FromY, FontSize: p.FontSizeHeader})
		}
		if header.To != "" {
			add(DrawInstruction{Field: FieldTo, Text: header.To, X: p.ToX, Y: p.ToY, FontSize: p.FontSizeHeader})
		}
		if header.Contact != "" {
			add(DrawInstruction{
				Field: FieldContact, Text: "Contact: " + header.Contact,
				X: p.ToX, Y: p.ToY - p.ContactOffset, FontSize: p.FontSizeHeader,
			})
		}
	}

	add(DrawInstruction{
		Field: FieldPageCounter, Text: strconv.Itoa(index) + "/" + strconv.Itoa(total),
		X: p.PageCounterX, Y: p.PageCounterY, FontSize: p.FontSizeHeader, Align: AlignRight,
	})

	startY := p.ItemStartYNext
	if index == 1 {
		startY = p.ItemStartYFirst
	}
	for i, row := range rows {
		y := startY - float64(i)*p.LineSpacing
		add(DrawInstruction{Field: FieldItemLine1, Row: i + 1, Text: row.Line1Text(), X: p.ItemDescX, Y: y, FontSize: p.FontSize})
		add(DrawInstruction{
			Field: FieldQuantity, Row: i + 1, Text: strconv.Itoa(row.Quantity()),
			X: p.QtyX, Y: y, FontSize: p.FontSize, Align: AlignRight,
		})
		if line2 := row.Line2Text(); line2 != "" {
			add(DrawInstruction{Field: FieldItemLine2, Row: i + 1, Text: line2, X: p.ItemDescX, Y: y - p.SecondLineOffset, FontSize: p.FontSize})
		}
	}
	return page
}
