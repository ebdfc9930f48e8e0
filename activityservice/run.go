package activityservice

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

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/FrithiofJensen/openproject/internal/api"
	"github.com/FrithiofJensen/openproject/internal/auth"
	"github.com/FrithiofJensen/openproject/internal/config"
	"github.com/FrithiofJensen/openproject/internal/factory"
	"github.com/FrithiofJensen/openproject/internal/health"
	"github.com/FrithiofJensen/openproject/internal/logger"
	"github.com/FrithiofJensen/openproject/internal/notify"
	"github.com/FrithiofJensen/openproject/internal/services"
	"github.com/FrithiofJensen/openproject/internal/store"
)

// Run starts the activity service HTTP server and blocks until shutdown or error.
func Run() error {
	cfg, err := config.New()
	if err != nil {
		logger.New("activity-service").Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	log := logger.NewWithWriter(os.Stdout, "activity-service", logger.ParseLevel(cfg.LogLevel))

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("feed_time_zone", cfg.FeedTimeZone).
		Msg("Activity service starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	deps, err := initDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close(log)

	go func() {
		if err := deps.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("notification worker stopped")
		}
	}()

	svcHealth := startHealthCheckers(ctx, cfg, log, deps)
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	router := buildRouter(cfg, log, deps, svcHealth)
	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

type dependencies struct {
	store      store.Store
	closeStore func() error
	sessions   *factory.EditSessions
	notifier   notify.Dispatcher
	worker     *notify.Worker
	service    *services.ActivityService
}

func (d *dependencies) close(log zerolog.Logger) {
	if err := d.sessions.Close(); err != nil {
		log.Warn().Err(err).Msg("close edit session store")
	}
	if err := d.closeStore(); err != nil {
		log.Warn().Err(err).Msg("close store")
	}
}

// initDependencies constructs required components and enforces fail-fast on missing deps.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*dependencies, error) {
	st, closeStore, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return nil, err
	}

	sessions, err := factory.NewEditSessions(ctx, cfg, time.Now, log)
	if err != nil {
		_ = closeStore()
		log.Error().Stack().Err(err).Msg("Edit session store unavailable")
		return nil, err
	}

	notifier, worker := factory.NewNotifier(cfg, log)
	svc := services.NewActivityService(st, sessions.Tracker, notifier,
		services.WithLocation(cfg.Location()),
		services.WithLogger(log.With().Str("component", "activity").Logger()),
	)
	return &dependencies{
		store:      st,
		closeStore: closeStore,
		sessions:   sessions,
		notifier:   notifier,
		worker:     worker,
		service:    svc,
	}, nil
}

// buildRouter wires HTTP routes to handlers.
func buildRouter(cfg *config.Config, log zerolog.Logger, deps *dependencies, svcHealth *health.ServiceHealthChecker) *mux.Router {
	return api.NewRouter(api.RouterDeps{
		Service:       deps.service,
		Authenticator: auth.NewDevAuthenticator(cfg.DevAPIKey),
		Health:        svcHealth,
		Stream:        api.StreamConfig{PollInterval: cfg.StreamPollInterval()},
		Log:           log,
	})
}

// startHealthCheckers starts component checkers and the service-level aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, deps *dependencies) *health.ServiceHealthChecker {
	var checkers []health.HealthChecker

	storeChecker := store.NewStoreHealthChecker(deps.store, log, cfg.HealthCheckTimeout())
	checkers = append(checkers, storeChecker)

	if deps.sessions.Pinger != nil {
		checkers = append(checkers, health.NewPingChecker("redis", deps.sessions.Pinger, log, cfg.HealthCheckTimeout()))
	}

	svcHealth := health.NewServiceHealthChecker(log, checkers...)
	go svcHealth.Start(ctx, cfg.HealthInterval())
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup health timeout in seconds,
// calculated as interval*2 with a minimum of 60 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
