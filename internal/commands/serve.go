package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hookahledger/internal/auth"
	"hookahledger/internal/database"
	"hookahledger/internal/httpserver"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate the schema and start the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	return withEnv(serve)(cmd, args)
}

func serve(ctx context.Context, e *env, _ *cobra.Command, _ []string) error {
	if err := database.Migrate(e.db); err != nil {
		return err
	}
	if err := database.SeedAdmin(e.db, e.cfg.AdminName, e.cfg.AdminPIN, e.lg); err != nil {
		return err
	}

	iss := auth.NewIssuer(e.cfg.JWTSecret, e.cfg.JWTExpiresIn)
	router := httpserver.NewRouter(e.db, iss, e.lg, httpserver.Options{
		CORSOrigins:    e.cfg.CORSOrigins,
		LoginFailDelay: e.cfg.LoginFailDelay,
	})
	server := &http.Server{
		Addr:         ":" + e.cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		e.lg.Infow("listening", "port", e.cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	e.lg.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	e.lg.Infow("server stopped")
	return nil
}
