package pricing

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ncecere/model_pricing_extractor/internal/config"
)

// Extraction is the contract of the extraction function the orchestrators delegate to.
type Extraction interface {
	Configured() bool
	Extract(ctx context.Context, url string, modelNames []string, provider string) ([]Row, error)
}

// Service exposes the two user-facing actions.
type Service struct {
	extractor    Extraction
	targets      []config.Target
	allowPartial bool
	logger       *zap.Logger
}

func NewService(extractor Extraction, cfg config.PredefinedConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	targets := make([]config.Target, len(cfg.Targets))
	copy(targets, cfg.Targets)
	return &Service{
		extractor:    extractor,
		targets:      targets,
		allowPartial: cfg.AllowPartial,
		logger:       logger.Named("service"),
	}
}

// Targets returns a copy of the predefined targets.
func (s *Service) Targets() []config.Target {
	out := make([]config.Target, len(s.targets))
	copy(out, s.targets)
	return out
}

func (s *Service) configured() bool {
	return s != nil && s.extractor != nil && s.extractor.Configured()
}

// Predefined runs every configured target in order and concatenates the rows.
// By default a single failing target fails the whole table.
func (s *Service) Predefined(ctx context.Context) Table {
	if !s.configured() {
		return TableFromError(ErrNotConfigured)
	}

	var (
		rows      []Row
		warnings  []string
		firstFail error
		failures  int
	)
	for _, target := range s.targets {
		got, err := s.extractor.Extract(ctx, target.URL, target.Models, target.Provider)
		if err != nil {
			failures++
			if firstFail == nil {
				firstFail = err
			}
			warnings = append(warnings, fmt.Sprintf("%s: %s", target.Provider, MessageOf(err)))
			continue
		}
		rows = append(rows, got...)
	}

	if firstFail != nil {
		if !s.allowPartial || failures == len(s.targets) {
			s.logger.Warn("predefined extraction failed",
				zap.Int("failed_targets", failures),
				zap.Strings("details", warnings),
			)
			return FailureTable(KindOf(firstFail), msgPredefinedFailed)
		}
	} else {
		warnings = nil
	}

	if len(rows) == 0 {
		return FailureTable(KindEmptyResult, msgPredefinedEmpty)
	}
	return SuccessTable(rows, warnings...)
}

// Custom validates free-form input and runs a single extraction.
func (s *Service) Custom(ctx context.Context, rawURL, modelsText, provider string) Table {
	if !s.configured() {
		return TableFromError(ErrNotConfigured)
	}

	rawURL = strings.TrimSpace(rawURL)
	provider = strings.TrimSpace(provider)
	if rawURL == "" || modelsText == "" || provider == "" {
		return FailureTable(KindInputValidation, msgFillAllFields)
	}

	modelNames := ParseModelNames(modelsText)
	if len(modelNames) == 0 {
		return FailureTable(KindInputValidation, msgNoModelNames)
	}

	if !validHTTPURL(rawURL) {
		return FailureTable(KindInputValidation, msgInvalidURL)
	}

	rows, err := s.extractor.Extract(ctx, rawURL, modelNames, provider)
	if err != nil {
		return TableFromError(err)
	}
	if len(rows) == 0 {
		return FailureTable(KindEmptyResult, fmt.Sprintf("No pricing data found for %s models at %s", provider, rawURL))
	}
	return SuccessTable(rows)
}

// ParseModelNames splits text on newlines, trims each line and drops blanks.
func ParseModelNames(text string) []string {
	lines := strings.Split(text, "\n")
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
