package helper

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/endpoint-contracts-go/contract"
)

// Spies bundles the observability spies wired into a registry by GivenRegistryWithSpies.
type Spies struct {
	Logs    *LogHandlerSpy
	Context *ContextualLoggerSpy
	Metrics *MetricsCollectorSpy
	Tracing *TracingCollectorSpy
}

// GivenRegistry creates a registry without observability.
func GivenRegistry(t testing.TB) *contract.Registry {
	registry, err := contract.NewRegistry()
	require.NoError(t, err, "error in arranging test data")

	return registry
}

// GivenRegistryWithSpies creates a registry with a logger, a contextual logger,
// a metrics collector and a tracing collector, all recording.
func GivenRegistryWithSpies(t testing.TB) (*contract.Registry, Spies) {
	spies := Spies{
		Logs:    NewLogHandlerSpy(false),
		Context: NewContextualLoggerSpy(true),
		Metrics: NewMetricsCollectorSpy(true),
		Tracing: NewTracingCollectorSpy(true),
	}

	registry, err := contract.NewRegistry(
		contract.WithLogger(slog.New(spies.Logs)),
		contract.WithContextualLogger(spies.Context),
		contract.WithMetrics(spies.Metrics),
		contract.WithTracing(spies.Tracing),
	)
	require.NoError(t, err, "error in arranging test data")

	return registry, spies
}

// GivenDecorated applies decorators to h and fails the test on a configuration error.
func GivenDecorated(t testing.TB, h contract.Handler, decorators ...contract.Decorator) contract.Handler {
	decorated, err := contract.Apply(h, decorators...)
	require.NoError(t, err, "error in arranging test data")

	return decorated
}

// Truthy returns a predicate that always holds and counts its evaluations in calls.
func Truthy(calls *int) contract.Predicate {
	return func(_ context.Context, _ contract.Values) (bool, error) {
		*calls++
		return true, nil
	}
}
