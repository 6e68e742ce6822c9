package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	promreg "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/ncecere/model_pricing_extractor/internal/config"
)

const namespace = "model_pricing_extractor"

// Provider owns the trace and metric pipelines. All Record methods are safe on
// a nil receiver so callers never need to check whether metrics are enabled.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *metric.MeterProvider
	promExporter   *prometheus.Exporter
	promHandler    http.Handler
	shutdownFuncs  []func(context.Context) error

	httpRequestCounter *promreg.CounterVec
	httpRequestLatency *promreg.HistogramVec
	extractionCounter  *promreg.CounterVec
	extractionLatency  *promreg.HistogramVec
	stageLatency       *promreg.HistogramVec
	tokensCounter      *promreg.CounterVec
}

func Setup(ctx context.Context, cfg config.ObservabilityConfig) (*Provider, error) {
	if !cfg.EnableOTLP && !cfg.EnableMetrics {
		return nil, nil
	}

	provider := &Provider{}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("model-pricing-extractor"),
		),
	)
	if err != nil {
		return nil, err
	}

	if cfg.EnableOTLP {
		rawEndpoint := strings.TrimSpace(cfg.OTLPEndpoint)
		endpoint := rawEndpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		opts := []otlptracegrpc.Option{}
		switch {
		case strings.HasPrefix(endpoint, "http://"):
			endpoint = strings.TrimPrefix(endpoint, "http://")
			opts = append(opts, otlptracegrpc.WithInsecure())
		case strings.HasPrefix(endpoint, "https://"):
			endpoint = strings.TrimPrefix(endpoint, "https://")
		default:
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		opts = append(opts, otlptracegrpc.WithEndpoint(endpoint))

		client := otlptracegrpc.NewClient(opts...)
		exporter, err := otlptrace.New(ctx, client)
		if err != nil {
			return nil, err
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		provider.tracerProvider = tp
		provider.shutdownFuncs = append(provider.shutdownFuncs, tp.Shutdown)
	}

	if cfg.EnableMetrics {
		registry := promreg.NewRegistry()
		promExporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return nil, err
		}
		mp := metric.NewMeterProvider(
			metric.WithReader(promExporter),
			metric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		provider.meterProvider = mp
		provider.promExporter = promExporter
		provider.promHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
		provider.shutdownFuncs = append(provider.shutdownFuncs, mp.Shutdown)

		httpRequests := promreg.NewCounterVec(
			promreg.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed.",
			},
			[]string{"method", "route", "status"},
		)
		latencyBuckets := []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30, 60, 120}
		httpLatency := promreg.NewHistogramVec(
			promreg.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds.",
				Buckets:   latencyBuckets,
			},
			[]string{"method", "route", "status"},
		)
		extractions := promreg.NewCounterVec(
			promreg.CounterOpts{
				Namespace: namespace,
				Name:      "extractions_total",
				Help:      "Extraction calls by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		)
		extractionLatency := promreg.NewHistogramVec(
			promreg.HistogramOpts{
				Namespace: namespace,
				Name:      "extraction_duration_seconds",
				Help:      "End-to-end duration of extraction calls.",
				Buckets:   latencyBuckets,
			},
			[]string{"provider", "outcome"},
		)
		stageLatency := promreg.NewHistogramVec(
			promreg.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of the crawl and inference stages.",
				Buckets:   latencyBuckets,
			},
			[]string{"stage", "provider", "outcome"},
		)
		tokenCounter := promreg.NewCounterVec(
			promreg.CounterOpts{
				Namespace: namespace,
				Name:      "llm_tokens_total",
				Help:      "Total prompt/completion tokens spent on extraction.",
			},
			[]string{"provider", "model", "type"},
		)
		for _, c := range []promreg.Collector{httpRequests, httpLatency, extractions, extractionLatency, stageLatency, tokenCounter} {
			if err := registry.Register(c); err != nil {
				return nil, err
			}
		}
		provider.httpRequestCounter = httpRequests
		provider.httpRequestLatency = httpLatency
		provider.extractionCounter = extractions
		provider.extractionLatency = extractionLatency
		provider.stageLatency = stageLatency
		provider.tokensCounter = tokenCounter
	}

	return provider, nil
}

func (p *Provider) PrometheusHandler() http.Handler {
	if p == nil || p.promHandler == nil {
		return nil
	}
	return p.promHandler
}

func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	for _, fn := range p.shutdownFuncs {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) TracerProvider() *sdktrace.TracerProvider {
	if p == nil {
		return nil
	}
	return p.tracerProvider
}

func (p *Provider) RecordHTTPRequest(_ context.Context, method, route string, status int, duration time.Duration) {
	if p == nil {
		return
	}

	statusLabel := strconv.Itoa(status)

	if p.httpRequestCounter != nil {
		p.httpRequestCounter.WithLabelValues(method, route, statusLabel).Inc()
	}

	if p.httpRequestLatency != nil {
		p.httpRequestLatency.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
	}
}

// RecordExtraction counts one extraction call. outcome is "ok" or an error kind.
func (p *Provider) RecordExtraction(provider, outcome string, duration time.Duration) {
	if p == nil || p.extractionCounter == nil {
		return
	}
	p.extractionCounter.WithLabelValues(provider, outcome).Inc()
	p.extractionLatency.WithLabelValues(provider, outcome).Observe(duration.Seconds())
}

func (p *Provider) RecordStage(stage, provider, outcome string, duration time.Duration) {
	if p == nil || p.stageLatency == nil {
		return
	}
	p.stageLatency.WithLabelValues(stage, provider, outcome).Observe(duration.Seconds())
}

func (p *Provider) RecordTokens(provider, model string, promptTokens, completionTokens int64) {
	if p == nil || p.tokensCounter == nil {
		return
	}
	if promptTokens > 0 {
		p.tokensCounter.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		p.tokensCounter.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}
