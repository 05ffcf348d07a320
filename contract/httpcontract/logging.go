package httpcontract

import (
	"context"
)

func (r *Router) logDebug(ctx context.Context, msg string, args ...any) {
	if r.contextualLogger != nil {
		r.contextualLogger.DebugContext(ctx, msg, args...)
	}
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *Router) logInfo(ctx context.Context, msg string, args ...any) {
	if r.contextualLogger != nil {
		r.contextualLogger.InfoContext(ctx, msg, args...)
	}
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *Router) logError(ctx context.Context, msg string, args ...any) {
	if r.contextualLogger != nil {
		r.contextualLogger.ErrorContext(ctx, msg, args...)
	}
	if r.logger != nil {
		r.logger.Error(msg, args...)
	}
}
