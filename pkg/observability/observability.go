package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"ollama-chat-demo/backend/pkg/logger"
)

var completionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ollama_completions_total",
	Help: "Completion requests against the model server, by outcome.",
}, []string{"outcome"})

// RecordCompletion counts one completion attempt. Outcomes: ok, empty,
// http_error, unreachable, error.
func RecordCompletion(outcome string) {
	completionsTotal.WithLabelValues(outcome).Inc()
}

// SetupTracing initializes OpenTelemetry tracing with a stdout exporter
// (replace with OTLP when shipping traces somewhere real). Returns a
// shutdown function.
func SetupTracing(serviceName string, log *logger.Logger) func() {
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.LogError(err, "Failed to initialize stdouttrace exporter")
		return func() {}
	}
	res, _ := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	provider := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return func() { _ = provider.Shutdown(context.Background()) }
}

// SetupPrometheusMetrics wires the OpenTelemetry meter provider to the
// Prometheus registry.
func SetupPrometheusMetrics(log *logger.Logger) *metric.MeterProvider {
	exp, err := otelprom.New()
	if err != nil {
		log.LogError(err, "Failed to initialize prometheus exporter")
		return nil
	}
	mp := metric.NewMeterProvider(metric.WithReader(exp))
	otel.SetMeterProvider(mp)
	return mp
}

// MetricsHandler exposes the Prometheus scrape endpoint for mounting on the
// main router.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
