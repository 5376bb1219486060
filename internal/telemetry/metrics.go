// Package telemetry owns the process meter provider and renders what it
// collects in the Prometheus text format for the /metrics endpoint.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Metrics is a meter provider backed by a manual reader. Nothing is
// exported in the background; WritePrometheus collects on demand.
type Metrics struct {
	prefix   string
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
}

// New creates the provider. Metric names are rendered with prefix and an
// underscore, e.g. "holoui" turns menu.clicks into holoui_menu_clicks_total.
func New(ctx context.Context, serviceName, prefix string) (*Metrics, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	reader := sdkmetric.NewManualReader()
	return &Metrics{
		prefix: prefix,
		reader: reader,
		provider: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(reader),
			sdkmetric.WithResource(res),
		),
	}, nil
}

// MeterProvider is the provider instruments should be created on.
func (m *Metrics) MeterProvider() metric.MeterProvider { return m.provider }

// SetGlobal installs the provider as the otel global.
func (m *Metrics) SetGlobal() { otel.SetMeterProvider(m.provider) }

func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

// WritePrometheus collects every instrument and writes sums and gauges to
// w. Histograms are skipped.
func (m *Metrics) WritePrometheus(ctx context.Context, w io.Writer) error {
	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}
	var families []family
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if f, ok := m.family(md); ok {
				families = append(families, f)
			}
		}
	}
	sort.Slice(families, func(i, j int) bool { return families[i].name < families[j].name })
	for _, f := range families {
		if f.help != "" {
			fmt.Fprintf(w, "# HELP %s %s\n", f.name, f.help)
		}
		fmt.Fprintf(w, "# TYPE %s %s\n", f.name, f.typ)
		for _, line := range f.samples {
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

type family struct {
	name    string
	help    string
	typ     string
	samples []string
}

func (m *Metrics) family(md metricdata.Metrics) (family, bool) {
	f := family{name: m.promName(md.Name), help: md.Description, typ: "gauge"}
	switch d := md.Data.(type) {
	case metricdata.Sum[int64]:
		if d.IsMonotonic {
			f.name, f.typ = f.name+"_total", "counter"
		}
		for _, dp := range d.DataPoints {
			f.samples = append(f.samples, sample(f.name, dp.Attributes, strconv.FormatInt(dp.Value, 10)))
		}
	case metricdata.Sum[float64]:
		if d.IsMonotonic {
			f.name, f.typ = f.name+"_total", "counter"
		}
		for _, dp := range d.DataPoints {
			f.samples = append(f.samples, sample(f.name, dp.Attributes, strconv.FormatFloat(dp.Value, 'g', -1, 64)))
		}
	case metricdata.Gauge[int64]:
		for _, dp := range d.DataPoints {
			f.samples = append(f.samples, sample(f.name, dp.Attributes, strconv.FormatInt(dp.Value, 10)))
		}
	case metricdata.Gauge[float64]:
		for _, dp := range d.DataPoints {
			f.samples = append(f.samples, sample(f.name, dp.Attributes, strconv.FormatFloat(dp.Value, 'g', -1, 64)))
		}
	default:
		return family{}, false
	}
	sort.Strings(f.samples)
	return f, true
}

func (m *Metrics) promName(name string) string {
	var b strings.Builder
	if m.prefix != "" {
		b.WriteString(m.prefix)
		b.WriteByte('_')
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func sample(name string, attrs attribute.Set, value string) string {
	if attrs.Len() == 0 {
		return name + " " + value
	}
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	iter := attrs.Iter()
	for i := 0; iter.Next(); i++ {
		kv := iter.Attribute()
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strings.ReplaceAll(string(kv.Key), ".", "_"))
		b.WriteString(`="`)
		b.WriteString(labelEscaper.Replace(kv.Value.Emit()))
		b.WriteByte('"')
	}
	b.WriteString("} ")
	b.WriteString(value)
	return b.String()
}
