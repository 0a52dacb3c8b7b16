package graph

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"tally_insights/pkg/models"
)

// stubProvider returns a canned reply, or an error when reply is empty.
type stubProvider struct {
	reply string
	calls int
}

func (s *stubProvider) GenerateResponse(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	s.calls++
	if s.reply == "" {
		return "", errors.New("provider unavailable")
	}
	return s.reply, nil
}

func (s *stubProvider) AdaptInstructions(raw string) string { return raw }

func balanceRows() []models.NormalizedRow {
	return []models.NormalizedRow{
		{Section: "BalanceSheet", Label: "Capital Account", Value: models.Float(500000)},
		{Section: "BalanceSheet", Label: "Loans", Value: models.Float(120000)},
		{Section: "BalanceSheet", Label: "Current Assets", Value: models.Float(340000)},
	}
}

func TestFilterFullReportKeyword(t *testing.T) {
	queries := []string{
		"show the complete balance sheet",
		"plot everything",
		"graph the entire report",
	}

	f := NewRowFilter(nil)
	rows := balanceRows()
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			got := f.Filter(context.Background(), rows, q)
			if len(got) != len(rows) {
				t.Errorf("Filter(%q) returned %d rows, want all %d", q, len(got), len(rows))
			}
		})
	}
}

func TestFilterExplicitLabels(t *testing.T) {
	f := NewRowFilter(nil)
	rows := balanceRows()

	got := f.Filter(context.Background(), rows, "only Capital Account and Loans")

	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2: %+v", len(got), got)
	}
	if got[0].Label != "Capital Account" || got[1].Label != "Loans" {
		t.Errorf("labels = %q, %q", got[0].Label, got[1].Label)
	}
}

func TestFilterExplicitSubstringMatch(t *testing.T) {
	f := NewRowFilter(nil)
	rows := balanceRows()

	// "current assets" matches exactly after stop-word stripping; a partial
	// like "capital" goes through the substring gate.
	got := f.Filter(context.Background(), rows, "pie chart of capital and current assets")

	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2: %+v", len(got), got)
	}
	if got[0].Label != "Capital Account" || got[1].Label != "Current Assets" {
		t.Errorf("labels = %q, %q", got[0].Label, got[1].Label)
	}
}

func TestFilterAmbiguousKeepsAllRows(t *testing.T) {
	f := NewRowFilter(nil)
	rows := balanceRows()

	got := f.Filter(context.Background(), rows, "how is my financial position")

	if len(got) != len(rows) {
		t.Errorf("ambiguous question must keep all rows, got %d", len(got))
	}
}

func TestFilterOnlyDelegatesToSelector(t *testing.T) {
	stub := &stubProvider{reply: `["April", "June"]`}
	f := NewRowFilter(stub)
	rows := []models.NormalizedRow{
		{Label: "April", Value: models.Float(1)},
		{Label: "May", Value: models.Float(2)},
		{Label: "June", Value: models.Float(3)},
	}

	got := f.Filter(context.Background(), rows, "xyz periods only")

	if stub.calls != 1 {
		t.Fatalf("selector calls = %d, want 1", stub.calls)
	}
	if len(got) != 2 || got[0].Label != "April" || got[1].Label != "June" {
		t.Errorf("got %+v", got)
	}
}

func TestFilterSelectorEmptyFallsBackToAll(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"Empty selection", `[]`},
		{"Invented labels dropped", `["December", "Never"]`},
		{"Provider error", ""},
	}

	rows := []models.NormalizedRow{
		{Label: "April", Value: models.Float(1)},
		{Label: "May", Value: models.Float(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewRowFilter(&stubProvider{reply: tt.reply})
			got := f.Filter(context.Background(), rows, "xyz periods only")
			if len(got) != len(rows) {
				t.Errorf("empty selection must fall back to all rows, got %d", len(got))
			}
		})
	}
}

func TestCollapseBills(t *testing.T) {
	var rows []models.NormalizedRow
	// 25 distinct counterparties, with repeat bill counts 25..1.
	for i := 0; i < 25; i++ {
		party := fmt.Sprintf("Party %02d", i)
		for j := 0; j <= 25-i-1; j++ {
			rows = append(rows, models.NormalizedRow{
				Section: "Bills",
				Label:   party,
				Value:   models.Float(float64(1000 + j)),
			})
		}
	}

	got := CollapseBills(rows)

	if len(got) != 20 {
		t.Fatalf("collapsed to %d rows, want cap of 20", len(got))
	}
	if got[0].Label != "Party 00" || *got[0].Value != 25 {
		t.Errorf("top row = %+v, want Party 00 with count 25", got[0])
	}
	for i := 1; i < len(got); i++ {
		if *got[i].Value > *got[i-1].Value {
			t.Fatalf("counts not sorted descending at %d", i)
		}
	}
}

func TestCollapseBillsSkipsEmptyLabels(t *testing.T) {
	rows := []models.NormalizedRow{
		{Label: "Acme", Value: models.Float(10)},
		{Label: "", Value: models.Float(20)},
		{Label: "Acme", Value: models.Float(30)},
	}

	got := CollapseBills(rows)

	if len(got) != 1 || got[0].Label != "Acme" || *got[0].Value != 2 {
		t.Errorf("got %+v, want single Acme row with count 2", got)
	}
}
