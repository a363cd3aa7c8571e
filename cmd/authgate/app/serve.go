package app

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	auth "github.com/goliatone/go-auth-gate"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, v)
		},
	}

	cmd.Flags().String("address", ":8080", "Address to listen on")
	cmd.Flags().String("dsn", "", "SQLite data source name")
	cmd.Flags().Bool("debug-headers", false, "Emit X-Token-* debug headers")

	for key, flag := range map[string]string{
		"http.address":  "address",
		"database.dsn":  "dsn",
		"debug_headers": "debug-headers",
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind %s flag: %v", flag, err))
		}
	}

	return cmd
}

func runServe(cmd *cobra.Command, v *viper.Viper) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}

	zl, err := NewZap(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	logger := auth.NewZapLogger(zl)

	db, err := OpenDB(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := NewServer(Deps{
		Config:   cfg,
		DB:       db,
		Logger:   logger,
		Registry: registry,
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.HTTP.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.HTTP.Address, err)
	}

	logger.Info("starting authgate server", "address", ln.Addr().String(), "token_ttl", cfg.TokenTTL.String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.App().Listener(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down authgate server", "timeout", cfg.HTTP.ShutdownTimeout.String())

	if err := srv.App().ShutdownWithTimeout(cfg.HTTP.ShutdownTimeout); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
