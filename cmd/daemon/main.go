// Command daemon runs the blockfall game server: the replay log, session
// directory and matchmaking core behind an HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blockfall/blockfall/internal/api"
	"github.com/blockfall/blockfall/internal/config"
	"github.com/blockfall/blockfall/internal/game/engine"
	"github.com/blockfall/blockfall/internal/kv"
	bflog "github.com/blockfall/blockfall/internal/log"
	"github.com/blockfall/blockfall/internal/service"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg := config.FromEnv()
	bflog.Configure(bflog.Config{
		Level:   cfg.LogLevel,
		Service: "blockfall",
		Version: version,
	})
	logger := bflog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := kv.Open(cfg.StoreBackend, cfg.DataDir)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("backend", cfg.StoreBackend).
			Str("data_dir", cfg.DataDir).
			Msg("cannot open store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("store close failed")
		}
	}()

	svc := service.New(store, engine.New())
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.NewServer(svc, api.Options{Metrics: cfg.Metrics, RateLimit: 600}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("listen", cfg.Listen).
			Str("backend", cfg.StoreBackend).
			Msg("serving")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("daemon exited")
	}
	logger.Info().Msg("shutdown complete")
}
