package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"hookahledger/internal/auth"
	"hookahledger/internal/database"
	"hookahledger/internal/models"
	"hookahledger/internal/services/staff"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: withEnv(func(_ context.Context, e *env, cmd *cobra.Command, _ []string) error {
		if err := database.Migrate(e.db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	}),
}

var (
	adminName string
	adminPIN  string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Add an administrator account",
	RunE: withEnv(func(ctx context.Context, e *env, cmd *cobra.Command, _ []string) error {
		if err := database.Migrate(e.db); err != nil {
			return err
		}
		svc := staff.NewService(e.db, auth.NewIssuer(e.cfg.JWTSecret, e.cfg.JWTExpiresIn), e.lg, 0)
		u, err := svc.CreateUser(ctx, staff.CreateUserInput{Name: adminName, PINCode: adminPIN, Role: models.RoleAdmin})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created admin %q (id %d)\n", u.Name, u.ID)
		return nil
	}),
}

var rehashPINsCmd = &cobra.Command{
	Use:   "rehash-pins",
	Short: "Replace plaintext PINs left by older installs with bcrypt hashes",
	RunE: withEnv(func(ctx context.Context, e *env, cmd *cobra.Command, _ []string) error {
		svc := staff.NewService(e.db, auth.NewIssuer(e.cfg.JWTSecret, e.cfg.JWTExpiresIn), e.lg, 0)
		n, err := svc.RehashLegacyPINs(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rehashed %d PIN(s)\n", n)
		return nil
	}),
}

func init() {
	createAdminCmd.Flags().StringVar(&adminName, "name", "", "administrator name")
	createAdminCmd.Flags().StringVar(&adminPIN, "pin", "", "4-digit PIN")
	_ = createAdminCmd.MarkFlagRequired("name")
	_ = createAdminCmd.MarkFlagRequired("pin")
}
