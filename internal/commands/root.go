// Package commands holds the hookahledger command line: the API server and
// the maintenance commands that share its configuration.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hookahledger/internal/config"
	"hookahledger/internal/database"
	"hookahledger/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "hookahledger",
	Short: "Tobacco stock and mixing ledger for a hookah lounge",
	Long: `hookahledger serves the lounge API: tobacco stock with weighted-average
cost, staff PIN login and the ledger of served bowls.
Without a subcommand it starts the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// env is what every command needs once configuration is loaded.
type env struct {
	cfg *config.Config
	lg  *zap.SugaredLogger
	db  *gorm.DB
}

func (e *env) close() {
	if e.db != nil {
		_ = database.Close(e.db)
	}
	_ = e.lg.Sync()
}

// setup loads configuration, builds the logger and opens the database.
func setup() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	lg := logger.New(cfg.LogLevel)
	db, err := database.Open(database.Options{
		URL:          cfg.DatabaseURL,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, lg: lg, db: db}, nil
}

// withEnv wraps a command body so it runs with an initialised env.
func withEnv(fn func(ctx context.Context, e *env, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()
		return fn(cmd.Context(), e, cmd, args)
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return fmt.Errorf("hookahledger: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(rehashPINsCmd)
}
