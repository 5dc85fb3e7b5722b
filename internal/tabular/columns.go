// Package tabular reads and writes inventory sheets as CSV or XLSX.
package tabular

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/erazemk/handreceipt/internal/model"
)

// Column headers.
const (
	ColModel     = "Model"
	ColCategory  = "Category"
	ColBox       = "Box #"
	ColSerial    = "Serial Number"
	ColAssetTag  = "Asset Tag #"
	ColStatus    = "Status"
	ColCustodian = "Custodian"
	ColUpdatedAt = "Updated At"
)

// ExportColumns is the header row of an export.
var ExportColumns = []string{
	ColModel, ColCategory, ColBox, ColSerial, ColAssetTag, ColStatus, ColCustodian, ColUpdatedAt,
}

var requiredColumns = []string{ColModel, ColCategory, ColSerial}

// ErrMissingColumns indicates a header row without every required column.
var ErrMissingColumns = errors.New("missing required columns")

// ErrUnsupportedFormat indicates a file extension other than .csv or .xlsx.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// aliases maps lowercased header spellings to their column.
var aliases = map[string]string{
	"model":         ColModel,
	"category":      ColCategory,
	"cat":           ColCategory,
	"serial number": ColSerial,
	"serial":        ColSerial,
	"s/n":           ColSerial,
	"sn":            ColSerial,
	`s\n`:           ColSerial,
	"box #":         ColBox,
	"box":           ColBox,
	"box number":    ColBox,
	"box no":        ColBox,
	"boxno":         ColBox,
	"asset tag #":   ColAssetTag,
	"asset tag":     ColAssetTag,
	"asset":         ColAssetTag,
	"asset#":        ColAssetTag,
	"asset id":      ColAssetTag,
}

const updatedAtLayout = "2006-01-02 15:04:05"

// Sheet is the result of reading an import file.
type Sheet struct {
	Rows []model.ItemFields
	// Skipped counts rows missing a required value.
	Skipped int
}

func canonicalColumn(header string) (string, bool) {
	h := strings.TrimPrefix(header, "\ufeff")
	h = strings.ToLower(strings.Join(strings.Fields(h), " "))
	col, ok := aliases[h]
	return col, ok
}

type columnIndex map[string]int

func indexHeader(header []string) (columnIndex, error) {
	ix := make(columnIndex)
	for i, h := range header {
		col, ok := canonicalColumn(h)
		if !ok {
			continue
		}
		if _, dup := ix[col]; !dup {
			ix[col] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := ix[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return ix, nil
}

func (ix columnIndex) value(record []string, col string) string {
	i, ok := ix[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseRecords turns a header row plus data rows into item fields. Rows
// without model, category or serial are skipped; fully blank rows are
// ignored without counting.
func parseRecords(records [][]string) (Sheet, error) {
	if len(records) == 0 {
		return Sheet{}, fmt.Errorf("%w: empty file", ErrMissingColumns)
	}
	ix, err := indexHeader(records[0])
	if err != nil {
		return Sheet{}, err
	}

	var sheet Sheet
	for _, record := range records[1:] {
		if blankRecord(record) {
			continue
		}
		f := model.ItemFields{
			Model:    ix.value(record, ColModel),
			Category: ix.value(record, ColCategory),
			Box:      ix.value(record, ColBox),
			Serial:   ix.value(record, ColSerial),
			AssetTag: ix.value(record, ColAssetTag),
		}
		if f.Model == "" || f.Category == "" || f.Serial == "" {
			sheet.Skipped++
			continue
		}
		sheet.Rows = append(sheet.Rows, f)
	}
	return sheet, nil
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func exportRecord(item model.Item) []string {
	return []string{
		item.Model,
		item.Category,
		item.Box,
		item.Serial,
		item.AssetTag,
		model.StatusLabel(item.Status),
		item.CustodianName,
		item.UpdatedAt.Format(updatedAtLayout),
	}
}

// Format is a sheet file format.
type Format string

// Formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFor picks the format from a file name's extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}
