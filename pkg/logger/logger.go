package logger

import (
	"context"

	"go.uber.org/zap"

	"customer-portal/pkg/trace"
)

// NewLogger returns a JSON production logger whose entries carry service.
func NewLogger(service string) *zap.Logger {
	l, err := zap.NewProduction(zap.Fields(zap.String("service", service)))
	if err != nil {
		panic(err)
	}
	return l
}

// WithTrace adds the request or job trace id in ctx, if any.
func WithTrace(ctx context.Context, log *zap.Logger) *zap.Logger {
	if traceID := trace.FromContext(ctx); traceID != "" {
		return log.With(zap.String("trace_id", traceID))
	}
	return log
}
