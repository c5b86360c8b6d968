package ledger

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ExportColumns is the fixed column order of transaction exports
var ExportColumns = []string{
	"Date",
	"Description",
	"Category",
	"Type",
	"Source Account",
	"Destination Account",
	"Amount",
	"User",
	"Reference",
	"Reconciled",
}

// ExportRow is one transaction projected for tabular export
type ExportRow struct {
	Date               string
	Description        string
	Category           string
	Type               string
	SourceAccount      string
	DestinationAccount string
	Amount             string
	User               string
	Reference          string
	Reconciled         string
}

// NewExportRow projects a transaction detail into an export row
func NewExportRow(d TransactionDetail) ExportRow {
	reconciled := "No"
	if d.IsReconciled {
		reconciled = "Yes"
	}
	return ExportRow{
		Date:               d.TransactionDate.Format(DateLayout),
		Description:        d.Description,
		Category:           d.CategoryName,
		Type:               cases.Title(language.English).String(string(d.CategoryType)),
		SourceAccount:      d.SourceAccountName,
		DestinationAccount: d.DestAccountName,
		Amount:             d.Amount.StringFixed(2),
		User:               d.PostedByName,
		Reference:          d.Reference,
		Reconciled:         reconciled,
	}
}

// Record returns the row's cells in ExportColumns order
func (r ExportRow) Record() []string {
	return []string{
		r.Date,
		r.Description,
		r.Category,
		r.Type,
		r.SourceAccount,
		r.DestinationAccount,
		r.Amount,
		r.User,
		r.Reference,
		r.Reconciled,
	}
}
