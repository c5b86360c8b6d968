// Command ledgerctl performs operator tasks against the ledger database:
// creating users, taking backups, exporting transactions and checking
// cached balances.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/ledgerbook/backend/internal/infrastructure/config"
	"github.com/ledgerbook/backend/internal/infrastructure/logger"
	"github.com/ledgerbook/backend/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const operatorName = "ledgerctl"

var (
	version  = "dev"
	logLevel string

	cfg *config.Config
	log *zap.Logger

	rootCmd = &cobra.Command{
		Use:               "ledgerctl",
		Short:             "Operator tooling for the ledger backend",
		SilenceUsage:      true,
		PersistentPreRunE: initEnvironment,
		PersistentPostRun: func(*cobra.Command, []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(balancesCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the ledgerctl version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initEnvironment(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err = logger.New(logger.Config{
		Level:   logLevel,
		Format:  "console",
		Output:  "stderr",
		Service: operatorName,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// openDatabase connects with SQL logging routed through the command logger
func openDatabase(ctx context.Context) (*persistence.Database, func(), error) {
	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(logLevel))
	db, err := persistence.Open(ctx, &cfg.Database, persistence.WithGormLogger(gormLogger))
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database connection", zap.Error(err))
		}
	}
	return db, cleanup, nil
}

// operatorContext marks ctx as acting on behalf of the operator. The system
// actor is an administrator with no user row.
func operatorContext(ctx context.Context) context.Context {
	return shared.WithActor(ctx, shared.SystemActor(operatorName))
}
