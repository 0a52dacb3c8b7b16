package graph

import (
	"context"
	"testing"

	"tally_insights/pkg/models"
)

func chartRows() []models.NormalizedRow {
	return []models.NormalizedRow{
		{Section: "CashFlow", Label: "April", Value: models.Float(5000)},
		{Section: "CashFlow", Label: "May", Value: models.Float(0)},
		{Section: "CashFlow", Label: "June", Value: models.Float(-2500)},
	}
}

func specData(t *testing.T, spec map[string]interface{}) []map[string]interface{} {
	t.Helper()
	data, ok := spec["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("spec has no data block: %v", spec)
	}
	values, ok := data["values"].([]map[string]interface{})
	if !ok {
		t.Fatalf("data.values has unexpected type: %T", data["values"])
	}
	return values
}

func TestBuildPieExcludesZeroRows(t *testing.T) {
	b := NewSpecBuilder(nil)
	rows := chartRows()

	pie := b.Build(context.Background(), rows, "pie of cash flow", "pie", []string{"value"})
	values := specData(t, pie.Spec)

	if len(values) != 2 {
		t.Fatalf("pie dataset has %d rows, want 2 (zero dropped)", len(values))
	}
	// Slice size is the magnitude; the signed value survives for the tooltip.
	june := values[1]
	if june["abs_value"] != 2500.0 || june["signed_value"] != -2500.0 {
		t.Errorf("june = %v", june)
	}

	bar := b.Build(context.Background(), rows, "bar of cash flow", "bar", []string{"value"})
	if got := specData(t, bar.Spec); len(got) != 3 {
		t.Errorf("bar dataset has %d rows, want all 3", len(got))
	}
}

func TestBuildCarriesSchemaTag(t *testing.T) {
	b := NewSpecBuilder(nil)
	rows := chartRows()

	for _, chartType := range []string{"bar", "pie", "line", "area"} {
		spec := b.Build(context.Background(), rows, "q", chartType, []string{"value"})
		if spec.Spec["$schema"] != models.SchemaURL {
			t.Errorf("%s spec missing schema tag", chartType)
		}
		if _, ok := spec.Spec["encoding"]; !ok {
			t.Errorf("%s spec missing encoding", chartType)
		}
	}
}

func TestBuildGroupedBar(t *testing.T) {
	b := NewSpecBuilder(nil)
	rows := []models.NormalizedRow{
		{Label: "April", Inflow: models.Float(100), Outflow: models.Float(40), NetFlow: models.Float(60)},
		{Label: "May", Inflow: models.Float(80), Outflow: models.Float(90), NetFlow: models.Float(-10)},
	}
	fields := NumericFieldInventory(rows)

	spec := b.Build(context.Background(), rows, "inflow vs outflow", "bar", fields)

	transforms, ok := spec.Spec["transform"].([]interface{})
	if !ok || len(transforms) != 1 {
		t.Fatalf("grouped bar must fold metrics, got %v", spec.Spec["transform"])
	}
	fold := transforms[0].(map[string]interface{})["fold"].([]interface{})
	if len(fold) != 3 {
		t.Errorf("folded %d fields, want 3", len(fold))
	}
	encoding := spec.Spec["encoding"].(map[string]interface{})
	if _, ok := encoding["xOffset"]; !ok {
		t.Errorf("grouped bar missing xOffset encoding")
	}
}

func TestBuildSingleFieldBarHasNoFold(t *testing.T) {
	b := NewSpecBuilder(nil)
	spec := b.Build(context.Background(), chartRows(), "q", "bar", []string{"value"})
	if _, ok := spec.Spec["transform"]; ok {
		t.Errorf("single-metric bar must not fold")
	}
}

func TestBuildModelRefinement(t *testing.T) {
	// Model reply omits color; the builder must inject the default legend
	// binding and attach the dataset.
	stub := &stubProvider{reply: `{
		"$schema": "https://vega.github.io/schema/vega-lite/v5.json",
		"mark": "bar",
		"encoding": {
			"x": {"field": "label", "type": "nominal"},
			"y": {"field": "value", "type": "quantitative"}
		}
	}`}
	b := NewSpecBuilder(stub)

	spec := b.Build(context.Background(), chartRows(), "q", "bar", []string{"value"})

	encoding := spec.Spec["encoding"].(map[string]interface{})
	color, ok := encoding["color"].(map[string]interface{})
	if !ok {
		t.Fatalf("color encoding not injected")
	}
	if color["field"] != "label" {
		t.Errorf("color field = %v", color["field"])
	}
	if len(specData(t, spec.Spec)) != 3 {
		t.Errorf("model spec missing attached dataset")
	}
}

func TestBuildModelFailureFallsBackToDeterministic(t *testing.T) {
	b := NewSpecBuilder(&stubProvider{reply: ""})
	spec := b.Build(context.Background(), chartRows(), "q", "line", []string{"value"})
	if spec.Spec["$schema"] != models.SchemaURL {
		t.Errorf("fallback spec missing schema tag")
	}
	mark, ok := spec.Spec["mark"].(map[string]interface{})
	if !ok || mark["type"] != "line" {
		t.Errorf("fallback did not build the requested line layout: %v", spec.Spec["mark"])
	}
}

func TestNumericFieldInventory(t *testing.T) {
	rows := []models.NormalizedRow{
		{Label: "x", Debit: models.Float(1), Credit: models.Float(2), Value: models.Float(2)},
	}
	got := NumericFieldInventory(rows)
	want := []string{"credit", "debit", "value"}
	if len(got) != len(want) {
		t.Fatalf("inventory = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("inventory[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
