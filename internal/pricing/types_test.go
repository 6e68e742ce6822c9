package pricing

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestShapeRowsStampsProvider(t *testing.T) {
	list := PricingList{PricingList: []ModelPricing{{
		ModelName:             "X",
		CostPer1MInputTokens:  decimal.RequireFromString("1.5"),
		CostPer1MOutputTokens: decimal.RequireFromString("6.0"),
	}}}

	rows := ShapeRows(list, "P")
	require.Len(t, rows, 1)
	require.Equal(t, "X", rows[0].ModelName)
	require.Equal(t, "P", rows[0].Provider)
	require.True(t, decimal.RequireFromString("1.5").Equal(rows[0].CostPer1MInputTokens))
	require.True(t, decimal.RequireFromString("6").Equal(rows[0].CostPer1MOutputTokens))

	require.Empty(t, ShapeRows(PricingList{}, "P"))
}

func TestRowJSONIsFlat(t *testing.T) {
	row := Row{
		ModelPricing: ModelPricing{
			ModelName:             "X",
			CostPer1MInputTokens:  decimal.RequireFromString("1.5"),
			CostPer1MOutputTokens: decimal.RequireFromString("6"),
		},
		Provider: "P",
	}
	raw, err := json.Marshal(row)
	require.NoError(t, err)
	require.JSONEq(t, `{"model_name":"X","cost_per_1M_input_token":"1.5","cost_per_1M_output_token":"6","provider":"P"}`, string(raw))
}

func TestTableVariants(t *testing.T) {
	ok := SuccessTable(nil)
	require.False(t, ok.Failed())
	require.NotNil(t, ok.Rows)
	require.Empty(t, ok.Warnings)

	failed := FailureTable(KindFetch, "boom")
	require.True(t, failed.Failed())
	require.Empty(t, failed.Rows)
	require.Equal(t, KindFetch, failed.Failure.Kind)

	raw, err := json.Marshal(failed)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"error":{"kind":"fetch","error_message":"boom"}`)
	require.NotEqual(t, ok.RunID, failed.RunID)
}

func TestTableFromError(t *testing.T) {
	table := TableFromError(extractionError(KindInference, errors.New("model refused")))
	require.Equal(t, KindInference, table.Failure.Kind)
	require.Equal(t, "Failed to extract pricing: model refused", table.Failure.Message)

	table = TableFromError(errors.New("surprise"))
	require.Equal(t, KindUnknown, table.Failure.Kind)
	require.Equal(t, "Error: surprise", table.Failure.Message)

	table = TableFromError(ErrNotConfigured)
	require.Equal(t, KindConfiguration, table.Failure.Kind)
	require.Equal(t, msgNotConfigured, table.Failure.Message)
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := extractionError(KindFetch, errors.New("dns"))
	require.True(t, errors.Is(err, &Error{Kind: KindFetch}))
	require.False(t, errors.Is(err, &Error{Kind: KindInference}))
	require.Equal(t, "dns", errors.Unwrap(err).Error())
}
