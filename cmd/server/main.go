package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oggyb/discovery/internal/app"
	"github.com/oggyb/discovery/internal/cache"
	"github.com/oggyb/discovery/internal/config"
	"github.com/oggyb/discovery/internal/db"
	"github.com/oggyb/discovery/internal/logger"
	"github.com/oggyb/discovery/internal/server"
	"github.com/oggyb/discovery/internal/service/discovery"
	"github.com/oggyb/discovery/internal/transport/httpapi"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		seed       bool
		seedCount  int
	)
	cmd := &cobra.Command{
		Use:           "discovery-server",
		Short:         "Serve profile discovery and matching over gRPC and HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPath != "" {
				if err := os.Setenv(config.PathEnvVar, configPath); err != nil {
					return err
				}
			}
			return run(cmd.Context(), seed, seedCount)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file (overrides "+config.PathEnvVar+")")
	cmd.Flags().BoolVar(&seed, "seed", false, "reset and seed demo data before serving (always on in development)")
	cmd.Flags().IntVar(&seedCount, "seed-count", 200, "number of demo users to seed")
	return cmd
}

func run(ctx context.Context, seed bool, seedCount int) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		return fmt.Errorf("init db: %w", err)
	}
	defer func() { _ = db.Close(database) }()

	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer func() { _ = redisCache.Close() }()

	sink, closeSink, err := app.NewSink(cfg, database, log)
	if err != nil {
		return fmt.Errorf("init notification sink: %w", err)
	}
	defer func() { _ = closeSink() }()

	if seed || cfg.App.Env == "development" {
		if err := db.SeedTestData(database, seedCount, db.Point{Longitude: -0.1276, Latitude: 51.5072}); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	appCtx := app.New(cfg, database, redisCache, sink, log)

	httpSrv := &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           httpapi.NewRouter(appCtx),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		errCh <- server.StartGRPCServer(ctx, cfg, log, discovery.NewRegistrar(appCtx))
	}()
	go func() {
		log.Info("starting HTTP server", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errCh:
		if err != nil {
			log.Error("server stopped", "err", err)
		}
	}

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
		log.Warn("http shutdown", "err", serr)
	}
	return err
}
