package contract

import (
	"context"
	"math"
	"strconv"
	"time"
)

const (
	logMsgContractRegistered = "contract registered"
	logMsgSnapshotRegistered = "snapshot registered"
	logMsgCheckerCreated     = "composed checker created"
	logMsgChecksPassed       = "contract checks passed"
	logMsgContractViolated   = "contract violated"
	logMsgHandlerFault       = "handler or condition failed"
	logMsgCheckCanceled      = "contract check canceled"
	logAttrEndpoint          = "endpoint"
	logAttrKind              = "kind"
	logAttrText              = "text"
	logAttrEnforced          = "enforced"
	logAttrDocumented        = "documented"
	logAttrSnapshot          = "snapshot"
	logAttrStatusCode        = "status_code"
	logAttrPhase             = "phase"
	logAttrError             = "error"
	logAttrDurationMS        = "duration_ms"

	metricCheckDuration  = "contract_check_duration_seconds"
	metricViolations     = "contract_violations_total"
	metricFaults         = "contract_faults_total"
	metricSnapshotValues = "contract_snapshot_values"

	spanNameCheck      = "contract.check"
	spanAttrEndpoint   = "contract.endpoint"
	spanAttrKind       = "contract.kind"
	spanAttrStatusCode = "contract.status_code"
	spanAttrPhase      = "contract.phase"
	spanAttrDurationMS = "contract.duration_ms"

	labelEndpoint   = "endpoint"
	labelStatus     = "status"
	labelKind       = "kind"
	labelStatusCode = "status_code"
	labelPhase      = "phase"

	statusSuccess  = "success"
	statusViolated = "violated"
	statusError    = "error"
	statusCanceled = "canceled"

	phasePreconditions   = "preconditions"
	phaseSnapshotCapture = "snapshot_capture"
	phaseInvoke          = "invoke"
	phasePostconditions  = "postconditions"
)

// instrumentation bundles the optional observability collaborators of a Registry.
// Every helper is a no-op for collaborators that are not configured.
type instrumentation struct {
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
}

func (in *instrumentation) logDebug(ctx context.Context, msg string, args ...any) {
	if in.contextualLogger != nil {
		in.contextualLogger.DebugContext(ctx, msg, args...)
	}
	if in.logger != nil {
		in.logger.Debug(msg, args...)
	}
}

func (in *instrumentation) logInfo(ctx context.Context, msg string, args ...any) {
	if in.contextualLogger != nil {
		in.contextualLogger.InfoContext(ctx, msg, args...)
	}
	if in.logger != nil {
		in.logger.Info(msg, args...)
	}
}

func (in *instrumentation) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if in.contextualLogger != nil {
		in.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	}
	if in.logger != nil {
		in.logger.Error(msg, allArgs...)
	}
}

func (in *instrumentation) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if in.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := in.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	in.metricsCollector.IncrementCounter(metric, labels)
}

func (in *instrumentation) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if in.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := in.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	in.metricsCollector.RecordDuration(metric, duration, labels)
}

func (in *instrumentation) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if in.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := in.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metric, value, labels)
		return
	}

	in.metricsCollector.RecordValue(metric, value, labels)
}

func (in *instrumentation) startSpan(ctx context.Context, endpoint string) (context.Context, SpanContext) {
	if in.tracingCollector == nil {
		return ctx, nil
	}

	return in.tracingCollector.StartSpan(ctx, spanNameCheck, map[string]string{spanAttrEndpoint: endpoint})
}

func (in *instrumentation) finishSpan(span SpanContext, status string, attrs map[string]string) {
	if in.tracingCollector != nil && span != nil {
		in.tracingCollector.FinishSpan(span, status, attrs)
	}
}

// recordOutcome reports the end of one checker invocation to every configured collaborator.
func (in *instrumentation) recordOutcome(
	ctx context.Context,
	span SpanContext,
	endpoint string,
	start time.Time,
	phase string,
	err error,
) {
	duration := time.Since(start)
	status := statusSuccess
	spanAttrs := map[string]string{
		spanAttrDurationMS: strconv.FormatFloat(toMilliseconds(duration), 'f', 3, 64),
	}

	switch violation, isViolation := AsViolation(err); {
	case err == nil:
		in.logDebug(ctx, logMsgChecksPassed, logAttrEndpoint, endpoint, logAttrDurationMS, toMilliseconds(duration))

	case isViolation:
		status = statusViolated
		in.incrementCounter(ctx, metricViolations, map[string]string{
			labelEndpoint:   endpoint,
			labelKind:       violation.Kind.String(),
			labelStatusCode: strconv.Itoa(violation.StatusCode),
		})
		spanAttrs[spanAttrKind] = violation.Kind.String()
		spanAttrs[spanAttrStatusCode] = strconv.Itoa(violation.StatusCode)
		in.logInfo(ctx, logMsgContractViolated,
			logAttrEndpoint, endpoint,
			logAttrKind, violation.Kind.String(),
			logAttrStatusCode, violation.StatusCode,
			logAttrText, violation.Text)

	case isCancellation(err):
		status = statusCanceled
		spanAttrs[spanAttrPhase] = phase
		in.logDebug(ctx, logMsgCheckCanceled, logAttrEndpoint, endpoint, logAttrPhase, phase)

	default:
		status = statusError
		spanAttrs[spanAttrPhase] = phase
		in.incrementCounter(ctx, metricFaults, map[string]string{labelEndpoint: endpoint, labelPhase: phase})
		in.logError(ctx, logMsgHandlerFault, err, logAttrEndpoint, endpoint, logAttrPhase, phase)
	}

	in.recordDuration(ctx, metricCheckDuration, duration, map[string]string{labelEndpoint: endpoint, labelStatus: status})
	in.finishSpan(span, status, spanAttrs)
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
