package main

import (
	"fmt"
	"io"
	"os"
	"time"

	ledgerapp "github.com/ledgerbook/backend/internal/application/ledger"
	"github.com/ledgerbook/backend/internal/infrastructure/export"
	"github.com/ledgerbook/backend/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
)

// stdoutPath sends the export to standard output
const stdoutPath = "-"

type exportOptions struct {
	format string
	out    string
	query  ledgerapp.TransactionListQuery
}

func exportCmd() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions as CSV or XLSX",
		Example: `  ledgerctl export --format xlsx --from 2024-01-01 --to 2024-03-31
  ledgerctl export --account 5f1c... --out - | less`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := export.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			renderer, err := export.NewRenderer(format)
			if err != nil {
				return err
			}
			filter, err := opts.query.ToFilter()
			if err != nil {
				return err
			}

			db, cleanup, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			rows, err := newLedgerService(db).ExportTransactions(cmd.Context(), filter)
			if err != nil {
				return err
			}

			path := opts.outputPath(format, time.Now())
			if path == stdoutPath {
				return renderer.Render(cmd.OutOrStdout(), rows)
			}
			if err := writeFile(path, func(w io.Writer) error { return renderer.Render(w, rows) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d transactions to %s\n", len(rows), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "csv", "output format: csv or xlsx")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file, - for stdout (default transactions_export_<date>.<format>)")
	cmd.Flags().StringVar(&opts.query.DateFrom, "from", "", "first transaction date, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.query.DateTo, "to", "", "last transaction date, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.query.AccountID, "account", "", "only transactions touching this account ID")
	cmd.Flags().StringVar(&opts.query.CategoryID, "category", "", "only transactions in this category ID")
	cmd.Flags().StringVar(&opts.query.Search, "search", "", "substring of description or notes")
	return cmd
}

func (o exportOptions) outputPath(format export.Format, now time.Time) string {
	if o.out != "" {
		return o.out
	}
	return export.FileName(format, now)
}

// writeFile removes a partially written file when render fails
func writeFile(path string, render func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return render(f)
}

func newLedgerService(db *persistence.Database) *ledgerapp.LedgerService {
	return ledgerapp.NewLedgerService(ledgerapp.LedgerServiceConfig{
		UnitOfWork:   persistence.NewGormUnitOfWork(db.DB),
		Repositories: persistence.NewLedgerRepositories(db.DB),
		Logger:       log,
	})
}
