// Package app wires configuration, clients, services, and the HTTP
// router into a runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"corrpulse/internal/cache"
	"corrpulse/internal/config"
	apierrors "corrpulse/internal/errors"
	"corrpulse/internal/fetch"
	"corrpulse/internal/infrastructure"
	"corrpulse/internal/marketdata"
	customMiddleware "corrpulse/internal/middleware"
	"corrpulse/internal/services"
	handlers "corrpulse/internal/transport/http"
	"corrpulse/internal/universe"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Application is the composed service: configuration, shared clients,
// domain services, and the HTTP server.
type Application struct {
	Config *config.Config
	Logger *slog.Logger
	Router *chi.Mux
	Server *http.Server

	Cache       *cache.Service
	Provider    *marketdata.Provider
	Universe    *universe.Resolver
	Correlation *services.CorrelationService
	Earnings    *services.EarningsService
	Events      *services.EventsService
}

// NewApplication loads configuration and builds the full dependency
// graph.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := infrastructure.InitializeLogger(cfg.Logging)

	logger.Info("application starting",
		slog.String("version", Version),
		slog.Int("port", cfg.Server.Port))

	app := &Application{
		Config: cfg,
		Logger: logger,
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the shared cache, outbound clients, and
// domain services.
func (a *Application) initializeServices() {
	a.Cache = cache.NewService(a.Config.Cache.SweepInterval, a.Logger)

	fetchOpts := fetch.Options{
		Retries:           a.Config.Fetch.Retries,
		BaseBackoff:       a.Config.Fetch.BaseBackoff,
		Timeout:           a.Config.Fetch.Timeout,
		RequestsPerSecond: a.Config.Fetch.RequestsPerSecond,
	}
	client := fetch.NewClient(fetchOpts, a.Logger)

	finnhub := marketdata.NewFinnhubClient(client, a.Config.Finnhub.APIKey, a.Config.Finnhub.BaseURL)
	stooq := marketdata.NewStooqClient(client, a.Config.Stooq.BaseURL)

	a.Provider = marketdata.NewProvider(finnhub, stooq, finnhub, a.Cache,
		a.Config.Cache.PriceTTL, a.Config.Cache.EarningsTTL, a.Logger)

	scraper := universe.NewScraper(client)
	a.Universe = universe.NewResolver(finnhub, scraper, a.Cache,
		a.Config.Cache.UniverseTTL, a.Logger)

	validator := customMiddleware.NewValidator()

	a.Correlation = services.NewCorrelationService(a.Provider, services.CorrelationLimits{
		Concurrency:      a.Config.Market.Concurrency,
		MaxLookbackYears: a.Config.Market.MaxLookbackYears,
		MinObservations:  a.Config.Market.MinObservations,
	}, a.Logger)

	a.Earnings = services.NewEarningsService(a.Provider, a.Provider, a.Universe,
		a.Config.Market.Concurrency, a.Logger)

	a.Events = services.NewEventsService(a.Config.Events.File, validator, a.Logger)
}

// setupRouter assembles the middleware chain and mounts the API.
// Ordering: RequestID, RealIP, Logger, Recoverer, RateLimiter,
// Timeout.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	errorHandler := apierrors.NewErrorHandler(a.Logger, false)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	validator := customMiddleware.NewValidator()

	r.Route("/api", func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.WriteTimeout, a.Logger))

		healthHandler := handlers.NewHealthHandler(Version)
		r.Mount("/health", healthHandler.Routes())

		universeHandler := handlers.NewUniverseHandler(a.Universe, a.Logger, errorHandler)
		r.Mount("/universe", universeHandler.Routes())

		pricesHandler := handlers.NewPricesHandler(a.Provider, validator, a.Logger, errorHandler)
		r.Mount("/prices", pricesHandler.Routes())

		earningsHandler := handlers.NewEarningsHandler(a.Earnings, validator, a.Logger, errorHandler)
		r.Mount("/earnings", earningsHandler.Routes())

		eventsHandler := handlers.NewEventsHandler(a.Events, validator, a.Logger, errorHandler)
		r.Mount("/events", eventsHandler.Routes())

		correlationHandler := handlers.NewCorrelationHandler(a.Correlation, validator, a.Logger, errorHandler)
		r.Mount("/correlation", correlationHandler.Routes())
	})

	// Outside the middleware group: scrape traffic should not count
	// against the inbound rate limit.
	r.Handle("/metrics", handlers.MetricsHandler())

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start launches the HTTP server. A listen failure cancels the
// application context.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) {
	go func() {
		a.Logger.InfoContext(ctx, "http server listening",
			slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()
}

// Stop gracefully shuts down the server and background workers.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.Cache.Close()

	a.Logger.InfoContext(ctx, "application stopped")
	return nil
}

// Run starts the application and blocks until SIGINT/SIGTERM or a
// fatal server error.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.Start(ctx, cancel)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.Logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
