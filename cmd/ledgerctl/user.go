package main

import (
	"fmt"
	"os"

	identityapp "github.com/ledgerbook/backend/internal/application/identity"
	"github.com/ledgerbook/backend/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
)

// bootstrapPasswordEnv keeps the initial password out of shell history
const bootstrapPasswordEnv = "LEDGER_BOOTSTRAP_PASSWORD"

func lookupBootstrapPassword() string {
	return os.Getenv(bootstrapPasswordEnv)
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}
	cmd.AddCommand(userCreateCmd())
	return cmd
}

func userCreateCmd() *cobra.Command {
	var input identityapp.CreateUserInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an active user",
		Example: `  ledgerctl user create --username alice --password 'S3cretpass' --admin
  LEDGER_BOOTSTRAP_PASSWORD=... ledgerctl user create --username bob`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input.Password == "" {
				input.Password = lookupBootstrapPassword()
			}
			if input.Password == "" {
				return fmt.Errorf("a password is required: pass --password or set %s", bootstrapPasswordEnv)
			}

			db, cleanup, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			svc := identityapp.NewUserService(
				persistence.NewGormUserRepository(db.DB),
				persistence.NewGormAuditRepository(db.DB),
				log,
			)
			info, err := svc.CreateUser(operatorContext(cmd.Context()), input)
			if err != nil {
				return err
			}

			role := "user"
			if info.IsAdmin {
				role = "admin"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", role, info.Username, info.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Username, "username", "", "login name (required)")
	cmd.Flags().StringVar(&input.Password, "password", "", "initial password, defaults to $"+bootstrapPasswordEnv)
	cmd.Flags().StringVar(&input.Email, "email", "", "email address")
	cmd.Flags().StringVar(&input.FullName, "full-name", "", "display name")
	cmd.Flags().BoolVar(&input.IsAdmin, "admin", false, "grant administrator rights")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
