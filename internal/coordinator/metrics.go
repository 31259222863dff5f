package coordinator

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Prometheus metrics
var (
	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsim_operations_total",
			Help: "Total number of ingest and query operations by outcome",
		},
		[]string{"operation", "outcome"},
	)
	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docsim_operation_duration_seconds",
			Help:    "Duration of ingest and query operations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~41s
		},
		[]string{"operation"},
	)
	chunksIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docsim_chunks_ingested_total",
			Help: "Total number of chunks written to the index",
		},
	)
	indexCreations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docsim_index_creations_total",
			Help: "Number of times the index was created (at most once per process)",
		},
	)
)

var tracer = otel.Tracer("github.com/bull/docsim/internal/coordinator")

func init() {
	prometheus.MustRegister(operationsTotal, operationDuration, chunksIngested, indexCreations)
}

// startOperation opens a span for op and returns a function that records the
// outcome in both the span and the metrics.
func startOperation(ctx context.Context, op, path string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "coordinator."+op,
		trace.WithAttributes(attribute.String("docsim.path", path)))

	return ctx, func(err error) {
		kind := Kind(err)
		operationsTotal.WithLabelValues(op, kind).Inc()
		operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

		span.SetAttributes(attribute.String("docsim.outcome", kind))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, kind)
		}
		span.End()
	}
}
