package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"

	"tally_insights/pkg/core/llm"
	"tally_insights/pkg/core/utils"
	"tally_insights/pkg/models"
)

// =============================================================================
// CHART SPEC BUILDER - Filtered rows to a renderable Vega-Lite description
// =============================================================================

// SpecBuilder turns filtered rows into a Vega-Lite v5 spec. A model pass
// refines the layout when a provider is available; the deterministic layouts
// below are always a valid fallback, so spec construction never fails.
type SpecBuilder struct {
	Provider llm.Provider
}

func NewSpecBuilder(provider llm.Provider) *SpecBuilder {
	return &SpecBuilder{Provider: provider}
}

// Build produces the chart spec for the requested type. Every returned spec
// carries the schema tag, an inline dataset, and a color/legend encoding.
func (b *SpecBuilder) Build(ctx context.Context, rows []models.NormalizedRow, query, chartType string, numericFields []string) models.ChartSpec {
	if b.Provider != nil {
		if spec := b.buildWithModel(ctx, rows, query, chartType, numericFields); spec != nil {
			log.Printf("[SpecBuilder] model-refined %s spec", chartType)
			return models.ChartSpec{Spec: spec}
		}
		log.Printf("[SpecBuilder] model refinement unavailable, using deterministic %s layout", chartType)
	}
	return models.ChartSpec{Spec: b.buildDeterministic(rows, chartType, numericFields)}
}

func (b *SpecBuilder) buildDeterministic(rows []models.NormalizedRow, chartType string, numericFields []string) map[string]interface{} {
	switch {
	case chartType == "pie":
		return signedPieSpec(rows)
	case chartType == "bar" && len(numericFields) > 1:
		return groupedBarSpec(rows, numericFields)
	case chartType == "line":
		return lineSpec(rows)
	default:
		return barSpec(rows)
	}
}

// =============================================================================
// DETERMINISTIC LAYOUTS
// =============================================================================

// groupedBarSpec unpivots the numeric fields into (metric, amount) pairs and
// sub-offsets bars by metric within each label group.
func groupedBarSpec(rows []models.NormalizedRow, numericFields []string) map[string]interface{} {
	fields := make([]interface{}, 0, len(numericFields))
	for _, f := range numericFields {
		fields = append(fields, f)
	}

	return map[string]interface{}{
		"$schema": models.SchemaURL,
		"data":    map[string]interface{}{"values": rowValues(rows)},
		"transform": []interface{}{
			map[string]interface{}{
				"fold": fields,
				"as":   []interface{}{"metric", "amount"},
			},
		},
		"mark": map[string]interface{}{"type": "bar"},
		"encoding": map[string]interface{}{
			"x": map[string]interface{}{
				"field": "label",
				"type":  "ordinal",
				"axis":  map[string]interface{}{"title": "Period", "labelAngle": -45},
			},
			"xOffset": map[string]interface{}{"field": "metric"},
			"y": map[string]interface{}{
				"field": "amount",
				"type":  "quantitative",
				"axis":  map[string]interface{}{"title": "Amount (₹)"},
			},
			"color": map[string]interface{}{
				"field":  "metric",
				"type":   "nominal",
				"legend": map[string]interface{}{"title": "Type"},
				"scale":  map[string]interface{}{"scheme": "set2"},
			},
			"tooltip": []interface{}{
				map[string]interface{}{"field": "label", "title": "Label"},
				map[string]interface{}{"field": "metric", "title": "Type"},
				map[string]interface{}{"field": "amount", "title": "Amount", "format": ",.2f"},
			},
		},
	}
}

// signedPieSpec sizes slices by magnitude while keeping the signed value
// available on hover. Zero and unparseable rows carry no angle and are
// dropped from the dataset.
func signedPieSpec(rows []models.NormalizedRow) map[string]interface{} {
	var values []map[string]interface{}
	for _, r := range rows {
		if r.Value == nil || *r.Value == 0 {
			continue
		}
		values = append(values, map[string]interface{}{
			"label":        r.Label,
			"abs_value":    math.Abs(*r.Value), // slice size
			"signed_value": *r.Value,           // exact hover value
		})
	}

	return map[string]interface{}{
		"$schema": models.SchemaURL,
		"data":    map[string]interface{}{"values": values},
		"mark":    map[string]interface{}{"type": "arc", "innerRadius": 50},
		"encoding": map[string]interface{}{
			"theta": map[string]interface{}{
				"field": "abs_value",
				"type":  "quantitative",
				"title": "Magnitude",
			},
			"color": map[string]interface{}{
				"field":  "label",
				"type":   "nominal",
				"legend": map[string]interface{}{"title": "Category"},
				"scale":  map[string]interface{}{"scheme": "category20b"},
			},
			"tooltip": []interface{}{
				map[string]interface{}{"field": "label", "type": "nominal", "title": "Item"},
				map[string]interface{}{"field": "signed_value", "type": "quantitative", "title": "Exact Value", "format": ",.2f"},
			},
		},
		"view": map[string]interface{}{"stroke": nil},
	}
}

func lineSpec(rows []models.NormalizedRow) map[string]interface{} {
	return map[string]interface{}{
		"$schema": models.SchemaURL,
		"data":    map[string]interface{}{"values": rowValues(rows)},
		"mark":    map[string]interface{}{"type": "line", "point": true},
		"encoding": map[string]interface{}{
			"x": map[string]interface{}{
				"field": "label",
				"type":  "ordinal",
				"axis":  map[string]interface{}{"title": "Period", "labelAngle": -45},
			},
			"y": map[string]interface{}{
				"field": "value",
				"type":  "quantitative",
				"axis":  map[string]interface{}{"title": "Amount (₹)"},
			},
			"color": map[string]interface{}{
				"field":  "label",
				"type":   "nominal",
				"legend": map[string]interface{}{"title": "Category"},
				"scale":  map[string]interface{}{"scheme": "tableau20"},
			},
			"tooltip": []interface{}{
				map[string]interface{}{"field": "label", "type": "nominal"},
				map[string]interface{}{"field": "value", "type": "quantitative", "format": ",.2f"},
			},
		},
	}
}

// barSpec is the single-metric default, also used for unknown chart types.
func barSpec(rows []models.NormalizedRow) map[string]interface{} {
	return map[string]interface{}{
		"$schema": models.SchemaURL,
		"data":    map[string]interface{}{"values": rowValues(rows)},
		"mark":    "bar",
		"encoding": map[string]interface{}{
			"x": map[string]interface{}{
				"field": "label",
				"type":  "nominal",
				"axis":  map[string]interface{}{"title": "Category", "labelAngle": -45},
			},
			"y": map[string]interface{}{
				"field": "value",
				"type":  "quantitative",
				"axis":  map[string]interface{}{"title": "Amount (₹)"},
			},
			"color": map[string]interface{}{
				"field":  "label",
				"type":   "nominal",
				"legend": map[string]interface{}{"title": "Items"},
				"scale":  map[string]interface{}{"scheme": "category20"},
			},
			"tooltip": []interface{}{
				map[string]interface{}{"field": "label", "type": "nominal"},
				map[string]interface{}{"field": "value", "type": "quantitative", "format": ",.2f"},
			},
		},
	}
}

// =============================================================================
// MODEL REFINEMENT
// =============================================================================

const specSystemPrompt = `You are a Vega-Lite v5 specification generator for financial charts.

Requirements for every spec you produce:
- Valid Vega-Lite v5 JSON with a "$schema" tag and an "encoding" block.
- Use only the fields present in the sample data.
- Always include a "color" encoding with a titled legend; categories must have distinct colors (use a named scheme such as "category20" or "tableau20").
- Always include tooltips showing the label and every numeric field.
- Do NOT include a "data" block; it is attached by the caller.

Respond with ONLY the JSON object, no markdown and no explanation.`

func (b *SpecBuilder) buildWithModel(ctx context.Context, rows []models.NormalizedRow, query, chartType string, numericFields []string) map[string]interface{} {
	if len(rows) == 0 {
		return nil
	}

	sample := rows
	if len(sample) > 5 {
		sample = sample[:5]
	}
	sampleJSON, err := json.Marshal(rowValues(sample))
	if err != nil {
		return nil
	}

	prompt := fmt.Sprintf(
		"USER QUERY: %s\nCHART TYPE: %s\nNUMERIC FIELDS: %s\n\nSAMPLE DATA (first rows):\n%s",
		query, chartType, strings.Join(numericFields, ", "), sampleJSON,
	)

	raw, err := b.Provider.GenerateResponse(ctx, prompt, specSystemPrompt, map[string]interface{}{
		"response_format": map[string]interface{}{"type": "json_object"},
	})
	if err != nil {
		log.Printf("[SpecBuilder] model call failed: %v", err)
		return nil
	}

	var spec map[string]interface{}
	if _, err := utils.SmartParse(raw, &spec); err != nil {
		log.Printf("[SpecBuilder] model spec unparseable: %v", err)
		return nil
	}

	if _, ok := spec["$schema"]; !ok {
		return nil
	}
	encoding, ok := spec["encoding"].(map[string]interface{})
	if !ok {
		return nil
	}

	if chartType == "pie" {
		// The signed-pie dataset transformation is not negotiable.
		pie := signedPieSpec(rows)
		spec["data"] = pie["data"]
	} else {
		spec["data"] = map[string]interface{}{"values": rowValues(rows)}
	}

	ensureColorEncoding(encoding)
	return spec
}

// ensureColorEncoding injects the default categorical color and legend when
// the generation step omitted them.
func ensureColorEncoding(encoding map[string]interface{}) {
	if _, ok := encoding["color"]; ok {
		return
	}
	encoding["color"] = map[string]interface{}{
		"field":  "label",
		"type":   "nominal",
		"legend": map[string]interface{}{"title": "Category"},
		"scale":  map[string]interface{}{"scheme": "category20"},
	}
}

// =============================================================================
// DATASET HELPERS
// =============================================================================

// NumericFieldInventory lists the numeric fields present in the first row, in
// the canonical field order.
func NumericFieldInventory(rows []models.NormalizedRow) []string {
	if len(rows) == 0 {
		return nil
	}
	var fields []string
	for _, name := range models.NumericFields {
		if rows[0].Field(name) != nil {
			fields = append(fields, name)
		}
	}
	return fields
}

// rowValues renders rows as the inline dataset maps Vega-Lite expects,
// omitting nil amounts the way the row model's JSON form does.
func rowValues(rows []models.NormalizedRow) []map[string]interface{} {
	values := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		v := map[string]interface{}{"label": r.Label}
		if r.Section != "" {
			v["section"] = r.Section
		}
		if r.Quantity != "" {
			v["quantity"] = r.Quantity
		}
		if r.Rate != nil {
			v["rate"] = *r.Rate
		}
		for _, name := range models.NumericFields {
			if f := r.Field(name); f != nil {
				v[name] = *f
			}
		}
		values = append(values, v)
	}
	return values
}
