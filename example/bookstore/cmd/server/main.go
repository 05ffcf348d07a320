// Command server runs the bookstore HTTP API with its contracts enforced and documented at /docs.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/AntonStoeckl/endpoint-contracts-go/contract"
	"github.com/AntonStoeckl/endpoint-contracts-go/contract/httpcontract"
	"github.com/AntonStoeckl/endpoint-contracts-go/contract/openapi"
	"github.com/AntonStoeckl/endpoint-contracts-go/contract/oteladapters"
	"github.com/AntonStoeckl/endpoint-contracts-go/example/bookstore/config"
	"github.com/AntonStoeckl/endpoint-contracts-go/example/bookstore/endpoints"
)

const (
	instrumentationName = "bookstore"
	shutdownTimeout     = 10 * time.Second
	readHeaderTimeout   = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()

	if err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	registryOptions := []contract.Option{contract.WithLogger(logger)}
	routerOptions := []httpcontract.RouterOption{
		httpcontract.WithInfo(cfg.Server.Title, cfg.Server.Version),
		httpcontract.WithLogger(logger),
	}

	if cfg.Telemetry.Enabled {
		providers, providersErr := config.NewObservabilityProviders(ctx, cfg.Telemetry, cfg.Server.Version)
		if providersErr != nil {
			return providersErr
		}

		defer func() {
			if shutdownErr := providers.Shutdown(context.Background()); shutdownErr != nil {
				logger.Error("failed to shut down telemetry", "error", shutdownErr)
			}
		}()

		contextualLogger := oteladapters.NewSlogBridgeLogger(instrumentationName)

		registryOptions = append(registryOptions,
			contract.WithContextualLogger(contextualLogger),
			contract.WithMetrics(oteladapters.NewMetricsCollector(otel.Meter(instrumentationName))),
			contract.WithTracing(oteladapters.NewTracingCollector(otel.Tracer(instrumentationName))),
		)
		routerOptions = append(routerOptions, httpcontract.WithContextualLogger(contextualLogger))

		logger.Info("telemetry enabled",
			"trace_endpoint", cfg.Telemetry.TraceEndpoint,
			"metric_endpoint", cfg.Telemetry.MetricEndpoint)
	}

	reg, err := contract.NewRegistry(registryOptions...)
	if err != nil {
		return err
	}

	books, closeStore, err := config.NewStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	router, err := httpcontract.NewRouter(routerOptions...)
	if err != nil {
		return err
	}

	if err := endpoints.Register(router, reg, books, endpoints.WithSlowChecks(cfg.Contracts.SlowChecks)); err != nil {
		return err
	}

	var docsOptions []httpcontract.DocsOption
	if cfg.Contracts.ValidateExtensions {
		docsOptions = append(docsOptions, httpcontract.WithExtensionValidation())
	}
	if cfg.Server.OAuth2Redirect {
		docsOptions = append(docsOptions, httpcontract.WithOAuth2Redirect(openapi.DefaultOAuth2RedirectPath, nil))
	}

	if _, err := router.MountDocs(reg, docsOptions...); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("bookstore listening",
			"address", cfg.Server.Address,
			"store", cfg.Store.Kind,
			"slow_checks", cfg.Contracts.SlowChecks)

		if serveErr := server.ListenAndServe(); !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
