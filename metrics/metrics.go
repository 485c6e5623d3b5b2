package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

/* Recorder exposes OpenTelemetry instruments for the dispatch pipeline,
 * exported in Prometheus format
 */
type Recorder struct {
	meterProvider *sdkmetric.MeterProvider

	deliveries       metric.Int64Counter
	attempts         metric.Int64Counter
	deliveryDuration metric.Float64Histogram
	notifications    metric.Int64Counter
}

// NewRecorder creates a metrics recorder with a Prometheus exporter
func NewRecorder() (*Recorder, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(
		"webhook-dispatch",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	r := &Recorder{meterProvider: meterProvider}

	r.deliveries, err = meter.Int64Counter(
		"webhook.deliveries",
		metric.WithDescription("Completed webhook deliveries by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating deliveries counter: %w", err)
	}

	r.attempts, err = meter.Int64Counter(
		"webhook.delivery.attempts",
		metric.WithDescription("Individual HTTP delivery attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating attempts counter: %w", err)
	}

	r.deliveryDuration, err = meter.Float64Histogram(
		"webhook.delivery.duration",
		metric.WithDescription("Wall time of one webhook delivery including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	r.notifications, err = meter.Int64Counter(
		"webhook.notifications",
		metric.WithDescription("Processed notifications by event type"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating notifications counter: %w", err)
	}

	return r, nil
}

// RecordDelivery records the outcome of one webhook delivery
func (r *Recorder) RecordDelivery(ctx context.Context, eventType string, successful bool, attempts int, duration time.Duration) {
	outcome := "failed"
	if successful {
		outcome = "delivered"
	}
	attrs := metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("outcome", outcome),
	)

	r.deliveries.Add(ctx, 1, attrs)
	r.attempts.Add(ctx, int64(attempts), metric.WithAttributes(attribute.String("event_type", eventType)))
	r.deliveryDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordNotification records one processed notification
func (r *Recorder) RecordNotification(ctx context.Context, eventType string, matched int) {
	r.notifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.Int("matched_subscriptions", matched),
	))
}

// Handler returns the HTTP handler serving the Prometheus scrape endpoint
func (r *Recorder) Handler() http.Handler {
	return promhttp.Handler()
}

// Shutdown flushes and stops the meter provider
func (r *Recorder) Shutdown(ctx context.Context) error {
	return r.meterProvider.Shutdown(ctx)
}
