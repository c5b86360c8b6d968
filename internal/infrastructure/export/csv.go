package export

import (
	"encoding/csv"
	"io"

	"github.com/ledgerbook/backend/internal/domain/ledger"
)

// CSVRenderer writes RFC 4180 CSV with a header row. Text cells that start
// like a formula are prefixed with a single quote.
type CSVRenderer struct{}

// Format implements Renderer
func (CSVRenderer) Format() Format { return FormatCSV }

// ContentType implements Renderer
func (CSVRenderer) ContentType() string { return "text/csv; charset=utf-8" }

// Render implements Renderer
func (CSVRenderer) Render(w io.Writer, rows []ledger.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledger.ExportColumns); err != nil {
		return err
	}
	for _, row := range rows {
		record := row.Record()
		for i, cell := range record {
			record[i] = neutralizeFormula(cell)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// neutralizeFormula prefixes cells that spreadsheet programs would evaluate
// as a formula with a single quote
func neutralizeFormula(cell string) string {
	if cell == "" {
		return cell
	}
	switch cell[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + cell
	}
	return cell
}
