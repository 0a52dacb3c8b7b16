package intent

import (
	"context"
	"errors"
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

func TestClassifyRules(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  models.Intent
	}{
		{"Superlative single value", "What is my costliest stock item?", models.IntentValue},
		{"Superlative lowest", "Which account has the lowest balance?", models.IntentValue},
		{"Top N overrides superlative", "Show top 5 costliest items", models.IntentTable},
		{"Spelled out top N", "give me the top ten customers", models.IntentTable},
		{"Display verb with bare top", "show the top performers", models.IntentTable},
		{"Multi item comparison", "Compare Cash, Bank, and Debtors", models.IntentGraph},
		{"Binary comparison", "Compare Cash and Bank", models.IntentValue},
		{"Explicit chart request", "plot sales, purchases, and expenses", models.IntentGraph},
		{"Explicit table keyword", "show all rows of the day book", models.IntentTable},
		{"Company selection", "use Dakshin Traders", models.IntentCompanySelection},
		{"Company selection switch", "switch to Acme Pvt Ltd", models.IntentCompanySelection},
		{"Superlative with top inside a word", "what is my costliest laptop item?", models.IntentValue},
	}

	c := NewClassifier(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(context.Background(), tt.query, nil)
			if got.Intent != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.query, got.Intent, tt.want)
			}
			if got.Confidence != ruleConfidence {
				t.Errorf("rule match confidence = %v, want %v", got.Confidence, ruleConfidence)
			}
		})
	}
}

func TestClassifySetterVerbWithAnalyticKeyword(t *testing.T) {
	// "set" leading an analytic question must not read as a company switch.
	c := NewClassifier(nil)
	got := c.Classify(context.Background(), "set up a table of stock items", nil)
	if got.Intent == models.IntentCompanySelection {
		t.Errorf("analytic question misread as company selection")
	}
}

func TestClassifyTopRequiresWholeWord(t *testing.T) {
	// "laptop" must not satisfy the bare-"top" display rule.
	c := NewClassifier(nil)
	got := c.Classify(context.Background(), "show my laptop stock position", nil)
	if got.Intent == models.IntentTable {
		t.Errorf("substring inside a word matched the top rule: %+v", got)
	}
}

func TestClassifyDefaultsToSummary(t *testing.T) {
	c := NewClassifier(nil)
	got := c.Classify(context.Background(), "tell me about my business", nil)
	if got.Intent != models.IntentSummary {
		t.Errorf("intent = %s, want summary", got.Intent)
	}
	if got.Confidence != defaultConfidence {
		t.Errorf("confidence = %v, want %v", got.Confidence, defaultConfidence)
	}
}

func TestClassifyModelFallback(t *testing.T) {
	stub := &stubProvider{reply: `{"intent": "graph", "confidence": 0.85, "report": "Balance Sheet"}`}
	c := NewClassifier(stub)

	got := c.Classify(context.Background(), "how do my accounts relate to each other", nil)

	if stub.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", stub.calls)
	}
	if got.Intent != models.IntentGraph {
		t.Errorf("intent = %s, want graph", got.Intent)
	}
	if got.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", got.Confidence)
	}
	if got.ReportTypeHint != "Balance Sheet" {
		t.Errorf("report hint = %q", got.ReportTypeHint)
	}
}

func TestClassifyModelNotConsultedOnRuleMatch(t *testing.T) {
	stub := &stubProvider{reply: `{"intent": "summary", "confidence": 0.9, "report": ""}`}
	c := NewClassifier(stub)

	got := c.Classify(context.Background(), "What is my costliest stock item?", nil)

	if stub.calls != 0 {
		t.Errorf("provider consulted despite rule match")
	}
	if got.Intent != models.IntentValue {
		t.Errorf("intent = %s, want value", got.Intent)
	}
}

func TestClassifyModelFailureFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"Provider error", ""},
		{"Unparseable reply", "I think this is a graph question."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(&stubProvider{reply: tt.reply})
			got := c.Classify(context.Background(), "tell me about my business", nil)
			if got.Intent != models.IntentSummary || got.Confidence != defaultConfidence {
				t.Errorf("got %+v, want summary default", got)
			}
		})
	}
}

func TestClassifyModelIntentClamped(t *testing.T) {
	// The model layer is constrained to the fixed intent set.
	c := NewClassifier(&stubProvider{reply: `{"intent": "comparison", "confidence": 0.9, "report": ""}`})
	got := c.Classify(context.Background(), "tell me about my business", nil)
	if got.Intent != models.IntentSummary {
		t.Errorf("out-of-set intent not clamped: %s", got.Intent)
	}
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Show me the P&L", "show me the profit and loss"},
		{"what is my BS looking like", "what is my balance sheet looking like"},
		{"closing qty and amt", "closing quantity and amount"},
		{"  Plain question  ", "plain question"},
	}

	for _, tt := range tests {
		if got := NormalizeQuery(tt.in); got != tt.want {
			t.Errorf("NormalizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInferReportType(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"what is my closing stock", "Stock Summary"},
		{"show current assets", "Balance Sheet"},
		{"indirect expenses this year", "Profit & Loss"},
		{"voucher entries for april", "Day Book"},
		{"tell me something", ""},
	}

	for _, tt := range tests {
		if got := InferReportType(tt.query); got != tt.want {
			t.Errorf("InferReportType(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestExtractCompany(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"use Dakshin Traders", "Dakshin Traders"},
		{"switch to Global Exports", "Global Exports"},
		{"compare with Acme Pvt Ltd accounts", "Acme Pvt Ltd"},
		{"what is my capital account", ""},
	}

	for _, tt := range tests {
		if got := ExtractCompany(tt.query); got != tt.want {
			t.Errorf("ExtractCompany(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}
