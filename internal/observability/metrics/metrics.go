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

// Metrics exposes application-level instruments for the pairing core.
type Metrics struct {
	redemptions          metric.Int64Counter
	links                metric.Int64Counter
	unlinks              metric.Int64Counter
	verificationMismatch metric.Int64Counter
	rateLimitAllowed     metric.Int64Counter
	rateLimitDenied      metric.Int64Counter
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

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "tandem"
	}
	meter := provider.Meter(name)

	redemptions, err := meter.Int64Counter("tandem_redemptions_total")
	if err != nil {
		return nil, err
	}
	links, err := meter.Int64Counter("tandem_links_total")
	if err != nil {
		return nil, err
	}
	unlinks, err := meter.Int64Counter("tandem_unlinks_total")
	if err != nil {
		return nil, err
	}
	verificationMismatch, err := meter.Int64Counter("tandem_link_verification_mismatch_total")
	if err != nil {
		return nil, err
	}
	rateLimitAllowed, err := meter.Int64Counter("tandem_rate_limit_allowed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("tandem_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		redemptions:          redemptions,
		links:                links,
		unlinks:              unlinks,
		verificationMismatch: verificationMismatch,
		rateLimitAllowed:     rateLimitAllowed,
		rateLimitDenied:      rateLimitDenied,
	}, nil
}

// RecordRedemption counts redemption attempts by invite kind and result.
func (m *Metrics) RecordRedemption(ctx context.Context, kind, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("kind", strings.TrimSpace(kind)),
		attribute.String("result", strings.TrimSpace(result)),
	)
	m.redemptions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLink counts link operations by outcome.
func (m *Metrics) RecordLink(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.links.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordUnlink counts unlink operations.
func (m *Metrics) RecordUnlink(ctx context.Context) {
	if m == nil {
		return
	}
	m.unlinks.Add(ctx, 1)
}

// RecordVerificationMismatch counts post-link verification failures.
// A non-zero rate indicates a concurrency bug somewhere in the fleet.
func (m *Metrics) RecordVerificationMismatch(ctx context.Context) {
	if m == nil {
		return
	}
	m.verificationMismatch.Add(ctx, 1)
}

// RecordRateLimit counts rate-limit decisions.
func (m *Metrics) RecordRateLimit(ctx context.Context, allowed bool) {
	if m == nil {
		return
	}
	if allowed {
		m.rateLimitAllowed.Add(ctx, 1)
		return
	}
	m.rateLimitDenied.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported metrics exporter protocol %q", protocol)
	}
}
