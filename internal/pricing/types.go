package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ModelPricing is one extracted record. Costs are USD per one million tokens.
type ModelPricing struct {
	ModelName             string          `json:"model_name"`
	CostPer1MInputTokens  decimal.Decimal `json:"cost_per_1M_input_token"`
	CostPer1MOutputTokens decimal.Decimal `json:"cost_per_1M_output_token"`
}

// PricingList is the shape the language model is constrained to return.
type PricingList struct {
	PricingList []ModelPricing `json:"pricinglist"`
}

// Row is a ModelPricing stamped with the provider it was extracted for.
type Row struct {
	ModelPricing
	Provider string `json:"provider"`
}

// Failure is the error variant of a Table.
type Failure struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"error_message"`
}

// Table is the result handed to presentation layers. Exactly one of Rows or
// Failure is meaningful; check Failed first.
type Table struct {
	RunID    uuid.UUID `json:"run_id"`
	Rows     []Row     `json:"rows"`
	Warnings []string  `json:"warnings,omitempty"`
	Failure  *Failure  `json:"error,omitempty"`
}

// Failed reports whether the table is the error variant.
func (t Table) Failed() bool {
	return t.Failure != nil
}

// SuccessTable wraps rows into the success variant.
func SuccessTable(rows []Row, warnings ...string) Table {
	if rows == nil {
		rows = []Row{}
	}
	return Table{RunID: uuid.New(), Rows: rows, Warnings: warnings}
}

// FailureTable builds the single-failure variant.
func FailureTable(kind Kind, message string) Table {
	return Table{
		RunID:   uuid.New(),
		Rows:    []Row{},
		Failure: &Failure{Kind: kind, Message: message},
	}
}

// TableFromError converts any error into the failure variant, keeping the
// kind and message of a *Error.
func TableFromError(err error) Table {
	return FailureTable(KindOf(err), MessageOf(err))
}

// ShapeRows flattens a PricingList into rows stamped with provider.
func ShapeRows(list PricingList, provider string) []Row {
	rows := make([]Row, 0, len(list.PricingList))
	for _, record := range list.PricingList {
		rows = append(rows, Row{ModelPricing: record, Provider: provider})
	}
	return rows
}
