package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func engineAttr(engineName string) attribute.KeyValue {
	return attribute.String("engine", engineName)
}

// Telemetry records per-utterance stage latencies as OTel histograms read by
// the OTel Prometheus exporter (spec.md §4.6: stt, mt, tts_ttfb, total);
// this module serves no HTTP endpoint for scraping them. Grounded on MrWong99-glyphoxa's internal/observe provider setup,
// trimmed to metrics only since the system has no request tracing concept.
type Telemetry struct {
	stt     metric.Float64Histogram
	mt      metric.Float64Histogram
	ttsTTFB metric.Float64Histogram
	total   metric.Float64Histogram
}

// InitTelemetry wires a Prometheus-backed MeterProvider as the global OTel
// provider and returns a Telemetry handle plus a shutdown func to call from
// main() on exit.
func InitTelemetry(serviceName string) (*Telemetry, func(context.Context) error, error) {
	exp, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	otel.SetMeterProvider(mp)

	meter := mp.Meter(serviceName)

	stt, err := meter.Float64Histogram("duet.stt.latency_ms", metric.WithDescription("speech recognition latency"), metric.WithUnit("ms"))
	if err != nil {
		return nil, nil, err
	}
	mt, err := meter.Float64Histogram("duet.mt.latency_ms", metric.WithDescription("translation latency"), metric.WithUnit("ms"))
	if err != nil {
		return nil, nil, err
	}
	ttfb, err := meter.Float64Histogram("duet.tts.ttfb_ms", metric.WithDescription("time to first synthesized audio chunk"), metric.WithUnit("ms"))
	if err != nil {
		return nil, nil, err
	}
	total, err := meter.Float64Histogram("duet.utterance.total_ms", metric.WithDescription("end-to-end utterance latency, capture-close to enqueue"), metric.WithUnit("ms"))
	if err != nil {
		return nil, nil, err
	}

	return &Telemetry{stt: stt, mt: mt, ttsTTFB: ttfb, total: total}, mp.Shutdown, nil
}

func (t *Telemetry) recordSTT(ctx context.Context, ms float64, engineName string) {
	if t == nil {
		return
	}
	t.stt.Record(ctx, ms, metric.WithAttributes(engineAttr(engineName)))
}

func (t *Telemetry) recordMT(ctx context.Context, ms float64, engineName string) {
	if t == nil {
		return
	}
	t.mt.Record(ctx, ms, metric.WithAttributes(engineAttr(engineName)))
}

func (t *Telemetry) recordTTSFirstByte(ctx context.Context, ms float64, engineName string) {
	if t == nil {
		return
	}
	t.ttsTTFB.Record(ctx, ms, metric.WithAttributes(engineAttr(engineName)))
}

func (t *Telemetry) recordTotal(ctx context.Context, ms float64, engineName string) {
	if t == nil {
		return
	}
	t.total.Record(ctx, ms, metric.WithAttributes(engineAttr(engineName)))
}
