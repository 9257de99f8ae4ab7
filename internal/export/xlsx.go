package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/bonkbusiness/table-se-scraper-suite/internal/product"
)

// XLSXWriter writes the canonical column set to a styled workbook via
// xuri/excelize/v2: a bold white-on-dark header row with centered
// alignment and column widths sized to the header text, mirroring a
// typical styled-export sheet.
type XLSXWriter struct {
	SheetName string
}

func (w XLSXWriter) sheetName() string {
	if w.SheetName != "" {
		return w.SheetName
	}
	return "Products"
}

// WriteRecords writes records, sorted ascending by case-insensitive Name,
// to destination as a single-sheet workbook in the canonical column order.
func (w XLSXWriter) WriteRecords(records []*product.Record, destination string) (string, error) {
	if err := ensureDir(destination); err != nil {
		return "", err
	}

	f := excelize.NewFile()
	sheet := w.sheetName()
	f.SetSheetName(f.GetSheetName(0), sheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"212121"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return "", fmt.Errorf("building header style: %w", err)
	}

	for i, col := range product.ColumnOrder {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col)
		width := float64(len(col) + 2)
		if width < 12 {
			width = 12
		}
		colLetter, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, colLetter, colLetter, width)
	}
	startCell, _ := excelize.CoordinatesToCellName(1, 1)
	endCell, _ := excelize.CoordinatesToCellName(len(product.ColumnOrder), 1)
	f.SetCellStyle(sheet, startCell, endCell, headerStyle)

	for rowIdx, r := range PrepareRecords(records) {
		row := rowIdx + 2
		for colIdx, value := range r.ToRow() {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, row)
			f.SetCellValue(sheet, cell, value)
		}
	}

	if err := f.SaveAs(destination); err != nil {
		return "", fmt.Errorf("saving XLSX file %s: %w", destination, err)
	}
	return destination, nil
}

// WriteErrors writes the QC errors bucket as a two-column "Subject,
// Detail" sheet, one row per violation.
func (w XLSXWriter) WriteErrors(errorsByKey map[string][]string, destination string) (string, error) {
	if err := ensureDir(destination); err != nil {
		return "", err
	}

	f := excelize.NewFile()
	sheet := "Errors"
	f.SetSheetName(f.GetSheetName(0), sheet)
	f.SetCellValue(sheet, "A1", "Subject")
	f.SetCellValue(sheet, "B1", "Detail")

	row := 2
	for key, issues := range errorsByKey {
		for _, issue := range issues {
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), key)
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), issue)
			row++
		}
	}

	if err := f.SaveAs(destination); err != nil {
		return "", fmt.Errorf("saving error XLSX file %s: %w", destination, err)
	}
	return destination, nil
}
