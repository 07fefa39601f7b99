package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records checkout outcomes through an OpenTelemetry meter
// exported to Prometheus. A zero value is usable and records nothing.
type Observability struct {
	meterProvider   *metric.MeterProvider
	meter           otelmetric.Meter
	checkoutCounter otelmetric.Int64Counter
	chargeAmount    otelmetric.Float64Histogram
	lookupDuration  otelmetric.Float64Histogram
}

// New builds the meter provider. Exporter failures return an inert instance
// together with the error so callers can log it.
func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return &Observability{}, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	checkoutCounter, _ := meter.Int64Counter(
		"checkout.outcomes",
		otelmetric.WithDescription("Number of checkout attempts by outcome"),
	)

	chargeAmount, _ := meter.Float64Histogram(
		"checkout.charge_amount",
		otelmetric.WithDescription("Total charged per checkout session, surcharge included"),
		otelmetric.WithUnit("USD"),
	)

	lookupDuration, _ := meter.Float64Histogram(
		"lookup.duration",
		otelmetric.WithDescription("Balance lookup duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:   provider,
		meter:           meter,
		checkoutCounter: checkoutCounter,
		chargeAmount:    chargeAmount,
		lookupDuration:  lookupDuration,
	}, nil
}

func (o *Observability) RecordCheckout(ctx context.Context, paymentType, outcome string) {
	if o == nil || o.checkoutCounter == nil {
		return
	}
	o.checkoutCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("payment_type", paymentType),
		attribute.String("outcome", outcome),
	))
}

func (o *Observability) RecordCharge(ctx context.Context, paymentType string, total float64) {
	if o == nil || o.chargeAmount == nil {
		return
	}
	o.chargeAmount.Record(ctx, total, otelmetric.WithAttributes(
		attribute.String("payment_type", paymentType),
	))
}

func (o *Observability) RecordLookup(ctx context.Context, duration time.Duration, result string) {
	if o == nil || o.lookupDuration == nil {
		return
	}
	o.lookupDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("result", result),
	))
}

func (o *Observability) Shutdown() {
	if o != nil && o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.meterProvider.Shutdown(ctx)
	}
}
