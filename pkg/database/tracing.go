package database

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/utafrali/storefront/pkg/database"

// QueryTracer wraps repository calls in client spans and warns about
// statements slower than SlowThreshold. A nil *QueryTracer still traces but
// never logs.
type QueryTracer struct {
	Logger        *slog.Logger
	SlowThreshold time.Duration
}

// NewQueryTracer returns a tracer that logs statements slower than threshold.
func NewQueryTracer(logger *slog.Logger, threshold time.Duration) *QueryTracer {
	return &QueryTracer{Logger: logger, SlowThreshold: threshold}
}

// Trace starts a span named db.<operation>. Call the returned func with the
// operation's error when it completes.
func (q *QueryTracer) Trace(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if q == nil || q.Logger == nil || q.SlowThreshold <= 0 {
			return
		}
		if elapsed := time.Since(start); elapsed >= q.SlowThreshold {
			q.Logger.WarnContext(ctx, "slow query",
				slog.String("operation", operation),
				slog.Duration("duration", elapsed),
			)
		}
	}
}
