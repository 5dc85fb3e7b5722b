package tabular

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/handreceipt/internal/model"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "Inventory"

// ReadXLSX reads the first worksheet of a workbook.
func ReadXLSX(r io.Reader) (Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Sheet{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Sheet{}, fmt.Errorf("%w: workbook has no sheets", ErrMissingColumns)
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return Sheet{}, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return parseRecords(records)
}

// WriteXLSX writes items to a single-sheet workbook.
func WriteXLSX(w io.Writer, items []model.Item) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if err := writeXLSXRow(f, 1, ExportColumns); err != nil {
		return err
	}
	for i, item := range items {
		if err := writeXLSXRow(f, i+2, exportRecord(item)); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeXLSXRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
		return fmt.Errorf("writing row %d: %w", row, err)
	}
	return nil
}
