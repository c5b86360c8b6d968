// Command migrate manages the ledger schema. Migrations are embedded in the
// binary; --path points at a directory instead.
//
//	LEDGER_DATABASE_HOST=db migrate up
//	migrate create add_budget_table "monthly budgets per category"
package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ledgerbook/backend/internal/infrastructure/config"
	"github.com/ledgerbook/backend/internal/infrastructure/logger"
	"github.com/ledgerbook/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

var (
	migrationsPath string
	logLevel       string
	log            *zap.Logger
)

func main() {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply and author ledger schema migrations",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			var err error
			log, err = logger.New(logger.Config{Level: logLevel, Format: "console", Service: "ledgerbook-migrate"})
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) { _ = log.Sync() },
	}
	root.PersistentFlags().StringVar(&migrationsPath, "path", "", "migrations directory (default: embedded set, ./migrations for create and list)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		schemaCmd("up", "Apply all pending migrations", cobra.NoArgs, func(m *migration.Migrator, _ []string) error {
			return m.Up()
		}),
		schemaCmd("down", "Revert all migrations", cobra.NoArgs, func(m *migration.Migrator, _ []string) error {
			return m.Down()
		}),
		schemaCmd("step <n>", "Apply n migrations, reverting when n is negative", cobra.ExactArgs(1), func(m *migration.Migrator, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			return m.Steps(n)
		}),
		schemaCmd("goto <version>", "Migrate up or down to version", cobra.ExactArgs(1), func(m *migration.Migrator, args []string) error {
			v, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return m.GoTo(uint(v))
		}),
		schemaCmd("version", "Print the current schema version", cobra.NoArgs, printVersion),
		schemaCmd("force <version>", "Record version as current without running it", cobra.ExactArgs(1), func(m *migration.Migrator, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return m.Force(v)
		}),
		dropCmd(),
		createCmd(),
		listCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// schemaCmd builds a command that runs fn against a connected migrator
func schemaCmd(use, short string, args cobra.PositionalArgs, fn func(*migration.Migrator, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(_ *cobra.Command, args []string) error {
			return withMigrator(func(m *migration.Migrator) error { return fn(m, args) })
		},
	}
}

func withMigrator(fn func(*migration.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Database.Host, err)
	}

	var m *migration.Migrator
	if migrationsPath != "" {
		m, err = migration.NewFromDir(db, absPath(migrationsPath), log)
	} else {
		m, err = migration.New(db, log)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Closing migrator", zap.Error(err))
		}
	}()
	return fn(m)
}

func printVersion(m *migration.Migrator, _ []string) error {
	status, err := m.Status()
	if err != nil {
		return err
	}
	if !status.Applied {
		fmt.Println("no migrations applied")
		return nil
	}
	suffix := ""
	if status.Dirty {
		suffix = " (dirty)"
	}
	fmt.Printf("%d%s\n", status.Version, suffix)
	return nil
}

func dropCmd() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop every table in the database",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if !confirm {
				return fmt.Errorf("refusing to drop without --confirm")
			}
			return withMigrator((*migration.Migrator).Drop)
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "really drop all data")
	return cmd
}

func createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Write a new up/down migration pair",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			description := ""
			if len(args) == 2 {
				description = args[1]
			}
			mf, err := migration.CreateMigration(filesPath(), args[0], description)
			if err != nil {
				return err
			}
			log.Info("Migration created",
				zap.Uint("version", mf.Version),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath))
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List migration files on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := migration.ListMigrations(filesPath())
			if err != nil {
				return err
			}
			for _, mf := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%06d  %s\n", mf.Version, mf.Name)
			}
			return nil
		},
	}
}

func filesPath() string {
	if migrationsPath == "" {
		return absPath(defaultMigrationsPath)
	}
	return absPath(migrationsPath)
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
