package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ncecere/model_pricing_extractor/internal/models"
	"github.com/ncecere/model_pricing_extractor/internal/requestctx"
)

// Crawler fetches page content for a URL.
type Crawler interface {
	Crawl(ctx context.Context, url string) (models.Page, error)
}

// Structurer runs a schema-constrained inference call.
type Structurer interface {
	Structure(ctx context.Context, req models.StructuredRequest) (models.StructuredResponse, error)
}

// Recorder receives extraction metrics. Implementations must tolerate a nil receiver.
type Recorder interface {
	RecordExtraction(provider, outcome string, duration time.Duration)
	RecordStage(stage, provider, outcome string, duration time.Duration)
	RecordTokens(provider, model string, promptTokens, completionTokens int64)
}

// ExtractorOptions wires the collaborators of an Extractor.
type ExtractorOptions struct {
	Crawler     Crawler
	Structurer  Structurer
	Model       string
	Temperature float64
	MaxTokens   int
	Logger      *zap.Logger
	Metrics     Recorder
}

// Extractor implements the crawl, prompt, infer and shape pipeline.
type Extractor struct {
	crawler     Crawler
	structurer  Structurer
	model       string
	temperature float64
	maxTokens   int
	logger      *zap.Logger
	metrics     Recorder
}

func NewExtractor(opts ExtractorOptions) *Extractor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		crawler:     opts.Crawler,
		structurer:  opts.Structurer,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		logger:      logger.Named("extractor"),
		metrics:     opts.Metrics,
	}
}

// Configured reports whether both collaborators are present.
func (e *Extractor) Configured() bool {
	return e != nil && e.crawler != nil && e.structurer != nil
}

// Extract crawls url, asks the model for pricing of modelNames and returns one
// row per record stamped with provider. Every failure is a *Error; zero
// records is a successful, empty result.
func (e *Extractor) Extract(ctx context.Context, url string, modelNames []string, provider string) (rows []Row, err error) {
	if !e.Configured() {
		return nil, ErrNotConfigured
	}

	start := time.Now()
	logger := e.logger.With(requestctx.LogFields(ctx)...)
	ctx, span := otel.Tracer("model-pricing-extractor/pricing").Start(ctx, "pricing.extract",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pricing.provider", provider),
			attribute.String("pricing.url", url),
			attribute.Int("pricing.models", len(modelNames)),
		),
	)
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = extractionError(KindInference, fmt.Errorf("panic: %v", r))
		}
		outcome := "ok"
		if err != nil {
			outcome = string(KindOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
			logger.Warn("extraction failed",
				zap.String("provider", provider),
				zap.String("url", url),
				zap.String("kind", outcome),
				zap.Error(err),
			)
		} else {
			span.SetStatus(codes.Ok, "OK")
			logger.Info("extraction finished",
				zap.String("provider", provider),
				zap.String("url", url),
				zap.Int("rows", len(rows)),
				zap.Duration("took", time.Since(start)),
			)
		}
		span.End()
		if e.metrics != nil {
			e.metrics.RecordExtraction(provider, outcome, time.Since(start))
		}
	}()

	page, err := e.fetch(ctx, url, provider)
	if err != nil {
		return nil, err
	}

	prompt, err := RenderPrompt(PromptInput{Provider: provider, Models: modelNames, Document: page.Content})
	if err != nil {
		return nil, extractionError(KindInference, err)
	}

	list, err := e.infer(ctx, prompt, provider)
	if err != nil {
		return nil, err
	}

	return ShapeRows(list, provider), nil
}

func (e *Extractor) fetch(ctx context.Context, url, provider string) (models.Page, error) {
	start := time.Now()
	page, err := e.crawler.Crawl(ctx, url)
	if err == nil && strings.TrimSpace(page.Content) == "" {
		err = fmt.Errorf("crawl returned no content for %s", url)
	}
	e.recordStage("crawl", provider, err, start)
	if err != nil {
		return models.Page{}, extractionError(KindFetch, err)
	}
	e.logger.Debug("page crawled",
		zap.String("url", url),
		zap.Int("sources", page.Sources),
		zap.Int("chars", len(page.Content)),
	)
	return page, nil
}

func (e *Extractor) infer(ctx context.Context, prompt, provider string) (PricingList, error) {
	schema, err := Schema()
	if err != nil {
		return PricingList{}, extractionError(KindInference, err)
	}

	start := time.Now()
	resp, err := e.structurer.Structure(ctx, models.StructuredRequest{
		Model:             e.model,
		System:            systemPrompt,
		Prompt:            prompt,
		SchemaName:        SchemaName,
		SchemaDescription: SchemaDescription,
		Schema:            schema,
		Temperature:       e.temperature,
		MaxTokens:         e.maxTokens,
	})
	var list PricingList
	if err == nil {
		list, err = DecodePricingList(resp.Content)
	}
	e.recordStage("inference", provider, err, start)
	if err != nil {
		return PricingList{}, extractionError(KindInference, err)
	}
	if e.metrics != nil {
		e.metrics.RecordTokens(provider, e.model, int64(resp.Usage.PromptTokens), int64(resp.Usage.CompletionTokens))
	}
	return list, nil
}

func (e *Extractor) recordStage(stage, provider string, err error, start time.Time) {
	if e.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	default:
		outcome = "error"
	}
	e.metrics.RecordStage(stage, provider, outcome, time.Since(start))
}
