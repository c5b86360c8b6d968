package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Transactions"

// amountColumn is the 1-based column index of Amount in ExportColumns
const amountColumn = 7

var columnWidths = []float64{12, 40, 20, 10, 22, 22, 14, 18, 22, 11}

// XLSXRenderer writes a single-sheet workbook with a bold header row
// and the amount column stored as numbers
type XLSXRenderer struct{}

// Format implements Renderer
func (XLSXRenderer) Format() Format { return FormatXLSX }

// ContentType implements Renderer
func (XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Render implements Renderer
func (XLSXRenderer) Render(w io.Writer, rows []ledger.ExportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	// built-in format 4 is #,##0.00
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return err
	}

	for i, title := range ledger.ExportColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(ledger.ExportColumns), 1)
	if err := f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	for r, row := range rows {
		record := row.Record()
		for c, value := range record {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if c+1 == amountColumn {
				if err := setAmount(f, cell, value, amountStyle); err != nil {
					return err
				}
				continue
			}
			if err := f.SetCellStr(sheetName, cell, value); err != nil {
				return err
			}
		}
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setAmount(f *excelize.File, cell, value string, style int) error {
	amount, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return f.SetCellStr(sheetName, cell, value)
	}
	if err := f.SetCellFloat(sheetName, cell, amount, -1, 64); err != nil {
		return err
	}
	return f.SetCellStyle(sheetName, cell, cell, style)
}
