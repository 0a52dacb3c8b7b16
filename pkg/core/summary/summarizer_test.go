package summary

import (
	"context"
	"testing"

	"tally_insights/pkg/models"
)

func TestDeterministicSummary(t *testing.T) {
	rows := []models.NormalizedRow{
		{Label: "Cash", Value: models.Float(1000)},
		{Label: "Loans", Value: models.Float(-250000.5)},
		{Label: "Unpriced", Value: nil},
	}

	got := deterministicSummary(rows)

	want := "The analysis shows 3 items with Loans having the highest value at ₹-250,000.50."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDeterministicSummaryNoValues(t *testing.T) {
	rows := []models.NormalizedRow{{Label: "A"}, {Label: "B"}}
	got := deterministicSummary(rows)
	if got != "The analysis shows 2 items." {
		t.Errorf("got %q", got)
	}
}

func TestSummarizeWithoutClient(t *testing.T) {
	s := &Summarizer{}

	if got := s.Summarize(context.Background(), "Balance Sheet", nil, "q", "table"); got != "No data available to summarize." {
		t.Errorf("empty rows summary = %q", got)
	}

	rows := []models.NormalizedRow{{Label: "Cash", Value: models.Float(10)}}
	got := s.Summarize(context.Background(), "Balance Sheet", rows, "q", "table")
	if got == "" {
		t.Error("clientless summarizer must still produce a summary")
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{1234.5, "1,234.50"},
		{1234567.891, "1,234,567.89"},
		{-42, "-42.00"},
		{999.999, "1,000.00"},
	}

	for _, tt := range tests {
		if got := formatAmount(tt.in); got != tt.want {
			t.Errorf("formatAmount(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
