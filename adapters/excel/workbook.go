package excel

import (
	"fmt"
	"io"

	"divdataset/domain/dataset"

	"github.com/xuri/excelize/v2"
)

// defaultSheet is the sheet every new excelize workbook starts with
const defaultSheet = "Sheet1"

// Sheet is one table written to its own worksheet
type Sheet struct {
	Name  string
	Table *dataset.Table
}

// WriteWorkbook writes each table to a worksheet with a header row of column names.
// Numeric cells are written as numbers and missing cells are left empty.
func WriteWorkbook(w io.Writer, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet.Name); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet.Name, err)
		}
		if err := writeSheet(f, sheet); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet Sheet) error {
	sw, err := f.NewStreamWriter(sheet.Name)
	if err != nil {
		return fmt.Errorf("failed to open stream writer for %s: %w", sheet.Name, err)
	}

	t := sheet.Table
	header := make([]interface{}, len(t.Attributes))
	for i, name := range t.ColumnNames() {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", sheet.Name, err)
	}

	for r, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for i, v := range row {
			switch {
			case v.Missing:
				cells[i] = nil
			case t.Attributes[i].IsNumeric():
				cells[i] = v.Num
			default:
				cells[i] = v.Str
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", r+1, sheet.Name, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet %s: %w", sheet.Name, err)
	}
	return nil
}
