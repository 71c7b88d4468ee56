package sim

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "flight-dynamics/internal/sim"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type engineMetrics struct {
	attrs metric.MeasurementOption

	steps        metric.Int64Counter
	stepDuration metric.Float64Histogram
	dropped      metric.Int64Counter
	queueSize    metric.Int64ObservableGauge
}

// newEngineMetrics registers the engine instruments on the global meter provider,
// which is a no-op until one is installed.
func newEngineMetrics(aircraft string, queue func() int) (*engineMetrics, error) {
	m := meter()
	em := &engineMetrics{
		attrs: metric.WithAttributes(attribute.String("aircraft", aircraft)),
	}

	var err error
	em.steps, err = m.Int64Counter(
		"sim.steps",
		metric.WithDescription("Fixed simulation steps executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating step counter: %w", err)
	}

	em.stepDuration, err = m.Float64Histogram(
		"sim.step.duration",
		metric.WithDescription("Wall time spent in one simulation step"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating step duration histogram: %w", err)
	}

	em.dropped, err = m.Int64Counter(
		"sim.commands.dropped",
		metric.WithDescription("Commands dropped because the queue was full"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	em.queueSize, err = m.Int64ObservableGauge(
		"sim.commands.queued",
		metric.WithDescription("Commands waiting for the simulation loop"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(em.queueSize, int64(queue()), em.attrs)
			return nil
		},
		em.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	return em, nil
}
