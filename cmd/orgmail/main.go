package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.io/infrasutra/orgmail/internal/api"
	"github.io/infrasutra/orgmail/internal/config"
	"github.io/infrasutra/orgmail/internal/imagepick"
	"github.io/infrasutra/orgmail/internal/intake"
	"github.io/infrasutra/orgmail/internal/kv"
	"github.io/infrasutra/orgmail/internal/smtpserver"
	"github.io/infrasutra/orgmail/internal/sse"
	"github.io/infrasutra/orgmail/internal/store"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "orgmail",
		Short:        "Track an organisation's incoming and outgoing letters",
		SilenceUsage: true,
		RunE:         runServe,
	}
	config.RegisterFlags(rootCmd)

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the dashboard web server",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		newStatsCmd(),
		newImportMboxCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFromCommand(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	ctx := context.Background()
	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	picker := imagepick.New(cfg.MaxImageBytes)
	hub := sse.NewHub()
	apiServer := api.NewServer(cfg, st, hub, picker, logger)
	defer apiServer.Close()

	var smtpSrv *smtpserver.Server
	if cfg.SMTPEnabled {
		smtpAuthCfg := smtpserver.AuthConfig{
			Enabled:  cfg.SMTPAuthEnabled,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		}
		if smtpAuthCfg.Enabled {
			logger.Info("smtp auth enabled", "username", smtpAuthCfg.Username)
		} else {
			logger.Warn("smtp auth disabled; server accepts unauthenticated connections")
		}
		converter := intake.NewConverter(picker, logger)
		smtpSrv = smtpserver.New(st, converter, logger, fmt.Sprintf(":%d", cfg.SMTPPort), smtpAuthCfg)
		go func() {
			if err := smtpSrv.ListenAndServe(); err != nil {
				logger.Error("smtp server stopped", "error", err)
			}
		}()
	}

	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	httpSrv := &http.Server{
		Addr:    httpAddr,
		Handler: apiServer,
	}
	httpSrv.RegisterOnShutdown(apiServer.Close)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-shutdown:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown http", "error", err)
	}
	if smtpSrv != nil {
		if err := smtpSrv.Close(); err != nil {
			logger.Error("shutdown smtp", "error", err)
		}
	}
	return nil
}

// openStore opens the sqlite backend and loads the persisted state. The
// returned func closes both.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*store.Store, func(), error) {
	backend, err := kv.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	st := store.New(backend, kv.NewKeys(cfg.KeyPrefix), logger)
	if err := st.Load(ctx); err != nil {
		_ = backend.Close()
		return nil, nil, fmt.Errorf("load state: %w", err)
	}

	return st, func() {
		_ = st.Close()
		if err := backend.Close(); err != nil {
			logger.Error("close database", "error", err)
		}
	}, nil
}

func setupLogger(cfg config.Config) *slog.Logger {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
