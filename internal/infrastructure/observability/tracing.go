package observability

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ilustra/ilustra-server/internal/config"
	pkgobs "github.com/ilustra/ilustra-server/pkg/observability"
)

const tracerName = "ilustra/ilustra-api"

// Setup initializes OpenTelemetry from service configuration.
func Setup(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pkgobs.Provider, error) {
	obsCfg := pkgobs.DefaultConfig(cfg.ServiceName)
	obsCfg.Environment = cfg.Environment
	obsCfg.PIILevel = cfg.PIILevel
	obsCfg.TracingEnabled = cfg.EnableTracing && cfg.OTLPEndpoint != ""
	obsCfg.MetricsEnabled = obsCfg.TracingEnabled
	if cfg.OTLPEndpoint != "" {
		obsCfg.OTLPEndpoint = cfg.OTLPEndpoint
	}

	provider, err := pkgobs.Init(ctx, obsCfg)
	if err != nil {
		return nil, err
	}
	if obsCfg.TracingEnabled {
		log.Info().Str("endpoint", obsCfg.OTLPEndpoint).Msg("opentelemetry exporters enabled")
	}
	return provider, nil
}

// GetTracer returns the tracer for the illustration service.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartProviderSpan starts a client span for a call to a hosted AI provider.
func StartProviderSpan(ctx context.Context, provider, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
	)
	return GetTracer().Start(ctx, provider+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// StartStageSpan starts an internal span for one step of a pipeline.
func StartStageSpan(ctx context.Context, pipeline, stage string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, pipeline+"."+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("pipeline.stage", stage)),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
