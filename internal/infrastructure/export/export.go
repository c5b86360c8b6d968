// Package export renders transaction export rows as CSV or XLSX documents.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/domain/shared"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Renderer writes export rows in one file format
type Renderer interface {
	Format() Format
	ContentType() string
	Render(w io.Writer, rows []ledger.ExportRow) error
}

// ParseFormat resolves a user-supplied format name; empty means CSV
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", shared.NewValidationError("INVALID_EXPORT_FORMAT", "Export format must be csv or xlsx")
	}
}

// NewRenderer returns the renderer for format
func NewRenderer(format Format) (Renderer, error) {
	switch format {
	case FormatCSV:
		return CSVRenderer{}, nil
	case FormatXLSX:
		return XLSXRenderer{}, nil
	default:
		return nil, shared.NewValidationError("INVALID_EXPORT_FORMAT", "Export format must be csv or xlsx")
	}
}

// FileName returns the download name for an export generated on day
func FileName(format Format, day time.Time) string {
	return fmt.Sprintf("transactions_export_%s.%s", day.Format(ledger.DateLayout), format)
}
