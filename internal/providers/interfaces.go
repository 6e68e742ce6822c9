package providers

import (
	"context"

	"github.com/ncecere/model_pricing_extractor/internal/models"
)

// Structurer returns model output constrained to a JSON schema.
type Structurer interface {
	Structure(ctx context.Context, req models.StructuredRequest) (models.StructuredResponse, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
