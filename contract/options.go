package contract

// Option defines a functional option for configuring a Registry.
type Option func(*Registry) error

// WithLogger sets the logger for the Registry and its checkers.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: contract registration and passed checks (development use)
// Info level: contract violations (production-safe)
// Error level: handler, condition and capture failures.
func WithLogger(logger Logger) Option {
	return func(r *Registry) error {
		r.in.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Registry and its checkers.
// The contextual logger will receive log messages with context information including
// automatic trace/span correlation when tracing is enabled.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(r *Registry) error {
		r.in.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the checkers of the Registry.
// It receives check durations, violation counts, fault counts and captured snapshot counts.
func WithMetrics(collector MetricsCollector) Option {
	return func(r *Registry) error {
		r.in.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the checkers of the Registry.
// Every checker invocation becomes one span.
func WithTracing(collector TracingCollector) Option {
	return func(r *Registry) error {
		r.in.tracingCollector = collector
		return nil
	}
}

type contractSettings struct {
	statusCode  int
	description string
	enforced    bool
	documented  bool
}

// ContractOption configures a pre- or post-condition decorator.
type ContractOption func(*contractSettings)

// WithStatusCode sets the status code reported when the condition is violated.
func WithStatusCode(statusCode int) ContractOption {
	return func(s *contractSettings) {
		s.statusCode = statusCode
	}
}

// WithDescription sets the human description, included in the violation message.
func WithDescription(description string) ContractOption {
	return func(s *contractSettings) {
		s.description = description
	}
}

// Enforced switches runtime checking of the condition.
// An unenforced condition costs nothing at runtime and is only documented.
func Enforced(enforced bool) ContractOption {
	return func(s *contractSettings) {
		s.enforced = enforced
	}
}

// Undocumented hides the condition from the metadata; it is still enforced.
func Undocumented() ContractOption {
	return func(s *contractSettings) {
		s.documented = false
	}
}

type snapshotSettings struct {
	enabled    bool
	documented bool
}

// SnapshotOption configures a snapshot decorator.
type SnapshotOption func(*snapshotSettings)

// Enabled switches capturing of the snapshot. Usually toggled together with the post-conditions using it.
func Enabled(enabled bool) SnapshotOption {
	return func(s *snapshotSettings) {
		s.enabled = enabled
	}
}

// UndocumentedSnapshot hides the snapshot from the metadata; it is still captured.
func UndocumentedSnapshot() SnapshotOption {
	return func(s *snapshotSettings) {
		s.documented = false
	}
}
