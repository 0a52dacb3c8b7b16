package tally

import (
	"context"
	"strings"
	"testing"
)

func TestBuildReportEnvelope(t *testing.T) {
	payload := BuildReportEnvelope("Balance Sheet", "Acme & Sons", map[string]string{
		"SVFromDate": "2025-04-01",
	})

	if !strings.Contains(payload, "<REPORTNAME>Balance Sheet</REPORTNAME>") {
		t.Errorf("missing report name:\n%s", payload)
	}
	if !strings.Contains(payload, "<SVCurrentCompany>Acme &amp; Sons</SVCurrentCompany>") {
		t.Errorf("company not defaulted into static vars, or not escaped:\n%s", payload)
	}
	if !strings.Contains(payload, "<SVFromDate>2025-04-01</SVFromDate>") {
		t.Errorf("static var missing:\n%s", payload)
	}
}

func TestBuildReportEnvelopeCompanyOverride(t *testing.T) {
	payload := BuildReportEnvelope("Day Book", "Acme", map[string]string{
		"SVCurrentCompany": "Beta Supplies",
	})
	if !strings.Contains(payload, "<SVCurrentCompany>Beta Supplies</SVCurrentCompany>") {
		t.Errorf("explicit SVCurrentCompany not honored:\n%s", payload)
	}
	if strings.Contains(payload, ">Acme<") {
		t.Errorf("default company leaked alongside the override:\n%s", payload)
	}
}

func TestParseEnvelope(t *testing.T) {
	raw := `<ENVELOPE>
  <BODY>
    <DATA>
      <STATNAME>Ledgers</STATNAME>
      <STATNAME>Vouchers</STATNAME>
      <STATVALUE><STATDIRECT>120</STATDIRECT></STATVALUE>
      <EMPTYFIELD></EMPTYFIELD>
    </DATA>
  </BODY>
</ENVELOPE>`

	export, err := ParseEnvelope(raw)
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}

	env, ok := export["ENVELOPE"].(map[string]interface{})
	if !ok {
		t.Fatalf("ENVELOPE missing: %v", export)
	}
	body, ok := env["BODY"].(map[string]interface{})
	if !ok {
		t.Fatalf("tag names not folded to uppercase: %v", env)
	}
	data := body["DATA"].(map[string]interface{})

	// Repeated sibling tags become a list.
	names, ok := data["STATNAME"].([]interface{})
	if !ok || len(names) != 2 {
		t.Fatalf("STATNAME = %v, want 2-element list", data["STATNAME"])
	}
	if names[0] != "Ledgers" || names[1] != "Vouchers" {
		t.Errorf("names = %v", names)
	}

	// Single nested block stays a map; leaf text becomes a string.
	stat := data["STATVALUE"].(map[string]interface{})
	if stat["STATDIRECT"] != "120" {
		t.Errorf("STATDIRECT = %v", stat["STATDIRECT"])
	}

	// Empty leaves become nil.
	if data["EMPTYFIELD"] != nil {
		t.Errorf("EMPTYFIELD = %v, want nil", data["EMPTYFIELD"])
	}
}

func TestParseEnvelopeRejectsGarbage(t *testing.T) {
	if _, err := ParseEnvelope(""); err == nil {
		t.Error("empty document must error")
	}
	if _, err := ParseEnvelope("<html><body>gateway error page</body></html>"); err == nil {
		t.Error("document without ENVELOPE must error")
	}
}

func TestKeywordResolver(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"show my balance sheet", "Balance Sheet"},
		{"pie of stock items", "Stock Summary"},
		{"who owes me money", "Bills Receivable"},
		{"monthly sales trend", "Sales Register"},
		{"projected cash outflow", "Cash Flow"},
		{"indirect expenses", "Profit & Loss"},
		{"voucher entries for april", "Day Book"},
		{"hello there", ""},
	}

	r := KeywordResolver{}
	for _, tt := range tests {
		got, err := r.ResolveReport(context.Background(), tt.query)
		if err != nil {
			t.Fatalf("ResolveReport(%q): %v", tt.query, err)
		}
		if got != tt.want {
			t.Errorf("ResolveReport(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}
