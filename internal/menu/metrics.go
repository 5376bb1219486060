package menu

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "holoui.ai/internal/menu"

func meter(mp metric.MeterProvider) metric.Meter {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	return mp.Meter(instrumentationName)
}

type metrics struct {
	transitions metric.Int64Counter
	clicks      metric.Int64Counter
	holders     metric.Int64ObservableGauge
}

// newMetrics registers the manager's instruments on mp.
func newMetrics(m *Manager, mp metric.MeterProvider) (*metrics, error) {
	mt := meter(mp)
	out := &metrics{}
	var err error

	out.transitions, err = mt.Int64Counter(
		"menu.sessions.transitions",
		metric.WithDescription("Session and preview lifecycle transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}

	out.clicks, err = mt.Int64Counter(
		"menu.clicks",
		metric.WithDescription("Clicks that hit a clickable component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating clicks counter: %w", err)
	}

	out.holders, err = mt.Int64ObservableGauge(
		"menu.holders",
		metric.WithDescription("Observers with a session holder"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating holders gauge: %w", err)
	}
	_, err = mt.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(out.holders, int64(m.Len()))
			return nil
		},
		out.holders,
	)
	if err != nil {
		return nil, fmt.Errorf("registering holders callback: %w", err)
	}
	return out, nil
}

func (m *metrics) transition(ev SessionEvent) {
	if m == nil {
		return
	}
	m.transitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("kind", string(ev.Kind)),
		attribute.String("menu", ev.MenuID),
	))
}

func (m *metrics) click(menuID string) {
	if m == nil {
		return
	}
	m.clicks.Add(context.Background(), 1, metric.WithAttributes(attribute.String("menu", menuID)))
}
