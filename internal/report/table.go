package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/ncecere/model_pricing_extractor/internal/config"
	"github.com/ncecere/model_pricing_extractor/internal/pricing"
)

// Format selects how results are printed.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table or json)", s)
	}
}

// Render writes a pricing table. In table format a failure is printed as a
// single red line instead of an empty grid.
func Render(w io.Writer, table pricing.Table, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, table)
	}

	for _, warning := range table.Warnings {
		fmt.Fprintln(w, color.YellowString("warning: %s", warning))
	}
	if table.Failed() {
		fmt.Fprintln(w, color.RedString("error (%s): %s", table.Failure.Kind, table.Failure.Message))
		return nil
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Provider", "Model", "Input $/1M", "Output $/1M"})
	tw.SetBorder(false)
	tw.SetAutoWrapText(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
	for _, row := range table.Rows {
		tw.Append([]string{
			row.Provider,
			row.ModelName,
			formatCost(row.CostPer1MInputTokens),
			formatCost(row.CostPer1MOutputTokens),
		})
	}
	tw.Render()
	fmt.Fprintln(w, color.GreenString("%d rows", len(table.Rows)))
	return nil
}

// formatCost pads to cents but keeps every digit the model returned.
func formatCost(d decimal.Decimal) string {
	if d.Exponent() >= -2 {
		return d.StringFixed(2)
	}
	return d.String()
}

// RenderTargets lists the predefined targets.
func RenderTargets(w io.Writer, targets []config.Target, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, targets)
	}
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Provider", "URL", "Models"})
	tw.SetBorder(false)
	tw.SetAutoWrapText(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, t := range targets {
		tw.Append([]string{t.Provider, t.URL, strings.Join(t.Models, ", ")})
	}
	tw.Render()
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
