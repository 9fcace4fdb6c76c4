package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"school_inventory_tool/config"
)

const MetricInterval = 15 * time.Second

// SetupMetrics installs a global meter provider that pushes to the same OTLP
// endpoint as the traces. Without an endpoint the no-op meter stays in place.
func SetupMetrics(ctx context.Context, cfg config.TelemetryConfig) (shutdown func(context.Context) error, err error) {
	shutdown = func(context.Context) error { return nil }
	if cfg.OTLPEndpoint == "" {
		return shutdown, nil
	}

	res, err := newResource(cfg)
	if err != nil {
		return shutdown, err
	}
	exp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(cfg.OTLPEndpoint))
	if err != nil {
		return shutdown, fmt.Errorf("otlp metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(MetricInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		return errors.Join(mp.ForceFlush(ctx), mp.Shutdown(ctx))
	}, nil
}

// Metrics holds the inventory counters.
type Metrics struct {
	claims  metric.Int64Counter
	returns metric.Int64Counter
	units   metric.Int64Counter
}

// NewMetrics registers the counters on mp; nil means the global provider.
func NewMetrics(mp metric.MeterProvider) *Metrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m := mp.Meter("school_inventory_tool")
	claims, _ := m.Int64Counter("inventory.claims",
		metric.WithDescription("Claim lifecycle transitions by outcome"))
	returns, _ := m.Int64Counter("inventory.returns",
		metric.WithDescription("Return lifecycle transitions by stage"))
	units, _ := m.Int64Counter("inventory.units.checked_out",
		metric.WithDescription("Units moved out of stock by approved claims"),
		metric.WithUnit("{unit}"))
	return &Metrics{claims: claims, returns: returns, units: units}
}

func (m *Metrics) Claim(ctx context.Context, outcome, category string, qty int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("category", category),
	)
	m.claims.Add(ctx, 1, attrs)
	if outcome == "approved" {
		m.units.Add(ctx, int64(qty), attrs)
	}
}

func (m *Metrics) Return(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.returns.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
