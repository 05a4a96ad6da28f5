package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes order and kitchen instruments.
type Metrics struct {
	itemsAdded        metric.Int64Counter
	itemsVoided       metric.Int64Counter
	discountsApplied  metric.Int64Counter
	paymentsRecorded  metric.Int64Counter
	paymentAmount     metric.Float64Counter
	ticketsCreated    metric.Int64Counter
	ticketTransitions metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New creates the domain instruments on the given provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "dinein"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
	}{
		{&m.itemsAdded, "dinein_order_items_added_total"},
		{&m.itemsVoided, "dinein_order_items_voided_total"},
		{&m.discountsApplied, "dinein_discounts_applied_total"},
		{&m.paymentsRecorded, "dinein_payments_recorded_total"},
		{&m.ticketsCreated, "dinein_kds_tickets_created_total"},
		{&m.ticketTransitions, "dinein_kds_ticket_transitions_total"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name); err != nil {
			return nil, fmt.Errorf("create %s: %w", c.name, err)
		}
	}
	if m.paymentAmount, err = meter.Float64Counter("dinein_payment_amount_total"); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) RecordItemAdded(ctx context.Context, quantity int) {
	if m == nil {
		return
	}
	m.itemsAdded.Add(ctx, int64(quantity))
}

func (m *Metrics) RecordItemVoided(ctx context.Context) {
	if m == nil {
		return
	}
	m.itemsVoided.Add(ctx, 1)
}

func (m *Metrics) RecordDiscountApplied(ctx context.Context, discountType string, requiresApproval bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("discount_type", discountType),
		attribute.Bool("requires_approval", requiresApproval),
	)
	m.discountsApplied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPayment counts a completed payment and its amount.
func (m *Metrics) RecordPayment(ctx context.Context, method string, amount float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("method", strings.ToLower(method)))...)
	m.paymentsRecorded.Add(ctx, 1, attrs)
	m.paymentAmount.Add(ctx, amount, attrs)
}

func (m *Metrics) RecordTicketCreated(ctx context.Context, items int) {
	if m == nil {
		return
	}
	m.ticketsCreated.Add(ctx, 1, metric.WithAttributes(attribute.Int("items", items)))
}

func (m *Metrics) RecordTicketTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from_status", from),
		attribute.String("to_status", to),
	)
	m.ticketTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"method":            {},
	"discount_type":     {},
	"requires_approval": {},
	"from_status":       {},
	"to_status":         {},
	"route":             {},
	"status_code":       {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
