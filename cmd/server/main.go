// Command server runs the notebook remote store: two JSON-array slots
// (notes and categories) over a memory, SQLCipher or S3 backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kuitang/notebook/internal/api"
	"github.com/kuitang/notebook/internal/config"
	"github.com/kuitang/notebook/internal/kv"
	"github.com/kuitang/notebook/internal/metrics"
	"github.com/kuitang/notebook/internal/obs"
	"github.com/kuitang/notebook/internal/ratelimit"
)

const shutdownTimeout = 15 * time.Second

func main() {
	obs.Init()
	store, addr := config.ParseFlags()
	cfg := config.MustLoadConfig(store, addr)
	cfg.PrintStartupSummary()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		obs.Pkg("server").Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := obs.Pkg("server")

	m := metrics.New()
	backend, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Warn("store close failed", "error", err)
		}
	}()

	limiter := ratelimit.NewRateLimiter(cfg.RateLimitConfig)
	defer limiter.Stop()

	srv := api.NewServer(cfg.ListenAddr, api.NewRouter(api.RouterConfig{
		Store:        kv.Instrument(backend, m),
		MaxBodyBytes: cfg.MaxBodyBytes,
		Metrics:      m,
		Limiter:      limiter,
		TrustProxy:   cfg.TrustProxy,
	}))

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.ListenAddr, "backend", backend.Backend())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
