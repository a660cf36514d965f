// Package export renders reports as spreadsheet downloads.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/distributor-bonus-ledger/internal/engine"
)

const (
	// PivotSheet is the name of the single sheet of a pivot export.
	PivotSheet = "Pivot"
	// ContentTypeXLSX is the media type of the written workbook.
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// PivotXLSX writes table as a workbook: a "Date" column followed by one column
// per group, dates ascending. Cells absent from a sparse table are written as 0.
func PivotXLSX(table engine.PivotTable, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", PivotSheet); err != nil {
		return fmt.Errorf("failed to name pivot sheet: %w", err)
	}

	columns := table.Columns()
	header := make([]interface{}, 0, len(columns)+1)
	header = append(header, "Date")
	for _, c := range columns {
		header = append(header, c)
	}
	if err := f.SetSheetRow(PivotSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write pivot header: %w", err)
	}

	for i, date := range table.Dates() {
		row := make([]interface{}, 0, len(columns)+1)
		row = append(row, date)
		for _, c := range columns {
			total, _ := table.Cell(date, c)
			row = append(row, total)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(PivotSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write pivot row %s: %w", date, err)
		}
	}

	if err := f.SetPanes(PivotSheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return fmt.Errorf("failed to freeze pivot header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
