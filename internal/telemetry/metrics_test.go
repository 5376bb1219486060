package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func TestWritePrometheus(t *testing.T) {
	ctx := context.Background()
	m, err := New(ctx, "holoui-test", "holoui")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Shutdown(ctx)

	mt := m.MeterProvider().Meter("test")
	clicks, err := mt.Int64Counter("menu.clicks", metric.WithDescription("Clicks"))
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	clicks.Add(ctx, 2, metric.WithAttributes(attribute.String("menu", "main")))
	clicks.Add(ctx, 1, metric.WithAttributes(attribute.String("menu", `say "hi"`)))

	depth, err := mt.Int64UpDownCounter("queue.depth")
	if err != nil {
		t.Fatalf("updown: %v", err)
	}
	depth.Add(ctx, 5)
	depth.Add(ctx, -2)

	var buf bytes.Buffer
	if err := m.WritePrometheus(ctx, &buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# HELP holoui_menu_clicks_total Clicks\n",
		"# TYPE holoui_menu_clicks_total counter\n",
		"holoui_menu_clicks_total{menu=\"main\"} 2\n",
		"holoui_menu_clicks_total{menu=\"say \\\"hi\\\"\"} 1\n",
		"# TYPE holoui_queue_depth gauge\n",
		"holoui_queue_depth 3\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Index(out, "holoui_menu_clicks_total") > strings.Index(out, "holoui_queue_depth") {
		t.Fatalf("families not sorted:\n%s", out)
	}
}

func TestWritePrometheus_Empty(t *testing.T) {
	ctx := context.Background()
	m, err := New(ctx, "holoui-test", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Shutdown(ctx)

	var buf bytes.Buffer
	if err := m.WritePrometheus(ctx, &buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("got %q want empty", buf.String())
	}
}
