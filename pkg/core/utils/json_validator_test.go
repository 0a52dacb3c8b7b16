package utils

import (
	"encoding/json"
	"strings"
	"testing"
)

// classification mirrors the shape the model layers parse their replies into.
type classification struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Report     string  `json:"report"`
}

func TestValidateJSON(t *testing.T) {
	valid := `{"intent": "graph", "confidence": 0.8, "report": "Balance Sheet"}`
	var c1 classification
	if err := ValidateJSON(valid, &c1); err != nil {
		t.Errorf("valid reply rejected: %v", err)
	}

	structural := `{"intent": "graph" "confidence": 0.8}`
	var c2 classification
	if err := ValidateJSON(structural, &c2); err == nil {
		t.Error("missing comma must fail the structural check")
	} else if !strings.Contains(err.Error(), "JSON_STRUCTURAL_ERROR") {
		t.Errorf("err = %v, want structural error", err)
	}

	missingField := `{"intent": "graph", "confidence": 0.8}`
	var c3 classification
	if err := ValidateJSON(missingField, &c3); err == nil {
		t.Error("missing required field must fail the schema check")
	} else if !strings.Contains(err.Error(), "JSON_SCHEMA_VIOLATION") {
		t.Errorf("err = %v, want schema violation", err)
	}
}

func TestSmartParseLenientForms(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  classification
	}{
		{
			name:  "Valid JSON",
			input: `{"intent": "graph", "confidence": 0.8, "report": "Balance Sheet"}`,
			want:  classification{Intent: "graph", Confidence: 0.8, Report: "Balance Sheet"},
		},
		{
			name:  "Fenced code block",
			input: "```json\n{\"intent\": \"table\", \"confidence\": 0.7, \"report\": \"Stock Summary\"}\n```",
			want:  classification{Intent: "table", Confidence: 0.7, Report: "Stock Summary"},
		},
		{
			name:  "Single quotes",
			input: `{'intent': 'value', 'confidence': 0.9, 'report': 'Day Book'}`,
			want:  classification{Intent: "value", Confidence: 0.9, Report: "Day Book"},
		},
		{
			name:  "Trailing comma",
			input: `{"intent": "summary", "confidence": 0.5, "report": "Cash Flow",}`,
			want:  classification{Intent: "summary", Confidence: 0.5, Report: "Cash Flow"},
		},
		{
			name: "Hjson comments and unquoted values",
			input: `{
				# model note
				intent: graph
				confidence: 0.6
				report: Balance Sheet
			}`,
			want: classification{Intent: "graph", Confidence: 0.6, Report: "Balance Sheet"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got classification
			result, err := SmartParse(tc.input, &got)
			if err != nil {
				t.Fatalf("SmartParse failed: %v", err)
			}
			if result == "" {
				t.Error("SmartParse must return the JSON it parsed")
			}
			if got.Intent != tc.want.Intent || got.Confidence != tc.want.Confidence {
				t.Errorf("parsed %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestSmartParseArrayReply(t *testing.T) {
	// The row selector parses label arrays through the same path.
	var labels []string
	if _, err := SmartParse("```json\n[\"Capital Account\", \"Loans\"]\n```", &labels); err != nil {
		t.Fatalf("SmartParse failed: %v", err)
	}
	if len(labels) != 2 || labels[0] != "Capital Account" {
		t.Errorf("labels = %v", labels)
	}
}

func TestSmartParseAllStrategiesFail(t *testing.T) {
	var c classification
	_, err := SmartParse("the report looks healthy overall", &c)
	if err == nil {
		t.Fatal("prose input must fail every strategy")
	}
	if !strings.Contains(err.Error(), "SMART_PARSE_FAILED") {
		t.Errorf("err = %v, want SMART_PARSE_FAILED", err)
	}
}

func TestMustRepairJSON(t *testing.T) {
	repaired := MustRepairJSON(`{'intent': 'graph', 'confidence': 0.8, 'report': 'x'}`)
	var c classification
	if err := json.Unmarshal([]byte(repaired), &c); err != nil {
		t.Fatalf("repaired output not valid JSON: %v", err)
	}
	if c.Intent != "graph" {
		t.Errorf("intent = %q", c.Intent)
	}
}

func TestValidateAndRepairJSON(t *testing.T) {
	repaired, err := ValidateAndRepairJSON(`{intent: 'value', confidence: 0.9, report: 'Stock Summary'}`, &classification{})
	if err != nil {
		t.Fatalf("repairable reply rejected: %v", err)
	}
	var c classification
	if err := json.Unmarshal([]byte(repaired), &c); err != nil || c.Intent != "value" {
		t.Errorf("repaired = %q parsed %+v err=%v", repaired, c, err)
	}

	// A repairable but incomplete reply still fails validation.
	if _, err := ValidateAndRepairJSON(`{intent: 'value'}`, &classification{}); err == nil {
		t.Error("incomplete reply must fail the schema check")
	}
}

func TestParseHJSONToStruct(t *testing.T) {
	var c classification
	input := `{
		intent: table
		confidence: 0.7
		report: Sales Register
	}`
	if err := ParseHJSONToStruct(input, &c); err != nil {
		t.Fatalf("ParseHJSONToStruct failed: %v", err)
	}
	if c.Intent != "table" || c.Report != "Sales Register" {
		t.Errorf("parsed %+v", c)
	}
}
