package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/pratik-mahalle/pullrunner/internal/api/handlers"
	"github.com/pratik-mahalle/pullrunner/internal/api/middleware"
	"github.com/pratik-mahalle/pullrunner/internal/api/router"
	"github.com/pratik-mahalle/pullrunner/internal/api/session"
	"github.com/pratik-mahalle/pullrunner/internal/config"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/logger"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/metrics"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/validator"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	if err := run(cfg, log); err != nil {
		log.ErrorWithErr(err, "dashboard stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.NewClient(client.Config{
		BaseURL:  cfg.Backend.URL,
		Observer: metrics.BackendObserver{},
	})

	store := session.NewStore(session.Config{
		Client:    api,
		Validator: validator.New(),
		Logger:    log,
	})
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	// Housekeeping
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.Session.SweepSchedule, func() {
		swept := store.Sweep(cfg.Session.MaxIdle)
		dropped := limiter.Cleanup()
		log.WithFields(map[string]interface{}{
			"sessions": swept,
			"limiters": dropped,
		}).Debug("housekeeping done")
	}); err != nil {
		return fmt.Errorf("invalid session sweep schedule %q: %w", cfg.Session.SweepSchedule, err)
	}
	c.Start()
	defer c.Stop()

	handler := router.New(cfg, log, router.Deps{
		Sessions: store,
		Limiter:  limiter,
		Handlers: &router.Handlers{
			Health: handlers.NewHealthHandler(api, store, log),
			Auth:   handlers.NewAuthHandler(log, cfg.Session.SecureCookies),
			Pages:  handlers.NewPageHandler(log),
		},
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(map[string]interface{}{
			"addr":    srv.Addr,
			"backend": api.BaseURL(),
		}).Info("dashboard listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
