package pricing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
)

const (
	SchemaName        = "pricing_list"
	SchemaDescription = "Per-model token pricing extracted from a provider pricing page"
)

var ErrSchemaMismatch = errors.New("response does not match the pricing schema")

// schemaRecord and schemaList describe the wire shape handed to the model.
// Costs are plain numbers there; decoding goes through decimal.
type schemaRecord struct {
	ModelName             string  `json:"model_name" jsonschema_description:"Name of the model"`
	CostPer1MInputTokens  float64 `json:"cost_per_1M_input_token" jsonschema_description:"Cost per 1M input tokens in USD"`
	CostPer1MOutputTokens float64 `json:"cost_per_1M_output_token" jsonschema_description:"Cost per 1M output tokens in USD"`
}

type schemaList struct {
	PricingList []schemaRecord `json:"pricinglist"`
}

var schemaReflector = jsonschema.Reflector{
	DoNotReference:            true,
	AllowAdditionalProperties: false,
	ExpandedStruct:            true,
}

var (
	schemaOnce sync.Once
	schemaMap  map[string]any
	schemaErr  error
)

// Schema returns the JSON Schema of PricingList as a generic map, suitable
// for strict structured-output modes. Callers must not mutate the result.
func Schema() (map[string]any, error) {
	schemaOnce.Do(func() {
		raw, err := json.Marshal(schemaReflector.Reflect(&schemaList{}))
		if err != nil {
			schemaErr = fmt.Errorf("marshal pricing schema: %w", err)
			return
		}
		var out map[string]any
		if err := json.Unmarshal(raw, &out); err != nil {
			schemaErr = fmt.Errorf("decode pricing schema: %w", err)
			return
		}
		delete(out, "$schema")
		delete(out, "$id")
		schemaMap = out
	})
	return schemaMap, schemaErr
}

type wireRecord struct {
	ModelName             *string          `json:"model_name"`
	CostPer1MInputTokens  *decimal.Decimal `json:"cost_per_1M_input_token"`
	CostPer1MOutputTokens *decimal.Decimal `json:"cost_per_1M_output_token"`
}

type wireList struct {
	PricingList *[]wireRecord `json:"pricinglist"`
}

// DecodePricingList parses raw model output and rejects anything that does
// not satisfy the PricingList schema.
func DecodePricingList(raw []byte) (PricingList, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return PricingList{}, fmt.Errorf("%w: empty response", ErrSchemaMismatch)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	var wire wireList
	if err := dec.Decode(&wire); err != nil {
		return PricingList{}, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if wire.PricingList == nil {
		return PricingList{}, fmt.Errorf("%w: pricinglist is required", ErrSchemaMismatch)
	}

	out := PricingList{PricingList: make([]ModelPricing, 0, len(*wire.PricingList))}
	for i, rec := range *wire.PricingList {
		if rec.ModelName == nil || strings.TrimSpace(*rec.ModelName) == "" {
			return PricingList{}, fmt.Errorf("%w: pricinglist[%d].model_name is required", ErrSchemaMismatch, i)
		}
		if rec.CostPer1MInputTokens == nil {
			return PricingList{}, fmt.Errorf("%w: pricinglist[%d].cost_per_1M_input_token is required", ErrSchemaMismatch, i)
		}
		if rec.CostPer1MOutputTokens == nil {
			return PricingList{}, fmt.Errorf("%w: pricinglist[%d].cost_per_1M_output_token is required", ErrSchemaMismatch, i)
		}
		if rec.CostPer1MInputTokens.IsNegative() || rec.CostPer1MOutputTokens.IsNegative() {
			return PricingList{}, fmt.Errorf("%w: pricinglist[%d] costs must be >= 0", ErrSchemaMismatch, i)
		}
		out.PricingList = append(out.PricingList, ModelPricing{
			ModelName:             strings.TrimSpace(*rec.ModelName),
			CostPer1MInputTokens:  *rec.CostPer1MInputTokens,
			CostPer1MOutputTokens: *rec.CostPer1MOutputTokens,
		})
	}
	return out, nil
}
