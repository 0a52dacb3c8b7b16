// Package models defines the shared data structures flowing through the
// report analytics pipeline: normalized report tables, question intents,
// graph commands and chart specifications.
package models

// RawExport is the opaque tree produced by decoding one report export.
// Nodes are map[string]interface{}, []interface{} or string. The tree is
// read-only input: the normalizer never mutates it.
type RawExport map[string]interface{}

// NormalizedRow is one flattened line item of a report. Value is nil when the
// export carried no parseable amount for the row ("genuinely unknown"), which
// is distinct from a parsed zero.
type NormalizedRow struct {
	Section        string   `json:"section"`
	Label          string   `json:"label"`
	Value          *float64 `json:"value"`
	Quantity       string   `json:"quantity,omitempty"`
	Rate           *float64 `json:"rate,omitempty"`
	Debit          *float64 `json:"debit,omitempty"`
	Credit         *float64 `json:"credit,omitempty"`
	ClosingBalance *float64 `json:"closing_balance,omitempty"`
	Inflow         *float64 `json:"inflow,omitempty"`
	Outflow        *float64 `json:"outflow,omitempty"`
	NetFlow        *float64 `json:"net_flow,omitempty"`
}

// NormalizedTable is the uniform row model every export shape flattens into.
// Columns varies by shape: the 3-column default is section,label,value; the
// stock shape adds quantity,rate; ledger shapes add debit,credit,closing_balance.
type NormalizedTable struct {
	Columns []string        `json:"columns"`
	Rows    []NormalizedRow `json:"rows"`
}

// DefaultColumns is the column set emitted by most shapes.
var DefaultColumns = []string{"section", "label", "value"}

// Intent is the classification of a question's analytic goal.
type Intent string

const (
	IntentCompanySelection Intent = "company_selection"
	IntentValue            Intent = "value"
	IntentTable            Intent = "table"
	IntentSummary          Intent = "summary"
	IntentGraph            Intent = "graph"
)

// IntentResult is the outcome of classifying one question.
type IntentResult struct {
	Intent         Intent  `json:"intent"`
	Confidence     float64 `json:"confidence"`
	ReportTypeHint string  `json:"report_type_hint,omitempty"`
}

// GraphCommand describes one visualization request. Immutable per request.
type GraphCommand struct {
	ChartType   string `json:"chart_type"` // bar, pie, line, area
	ReportName  string `json:"report_name"`
	CompanyName string `json:"company_name"`
}

// ChartSpec is a declarative, renderer-independent visualization description.
// Spec is a Vega-Lite v5 document carrying the schema-version tag, mark,
// encodings and embedded data rows.
type ChartSpec struct {
	Spec map[string]interface{} `json:"vega_spec"`
}

// SchemaURL is the schema-version tag every emitted chart spec carries.
const SchemaURL = "https://vega.github.io/schema/vega-lite/v5.json"

// NumericFields lists the row facets a chart may encode, in the order the
// field inventory probes them.
var NumericFields = []string{
	"credit", "debit", "closing_balance",
	"inflow", "outflow", "net_flow",
	"value",
}

// Field returns the named numeric facet of a row, or nil when absent.
func (r *NormalizedRow) Field(name string) *float64 {
	switch name {
	case "value":
		return r.Value
	case "rate":
		return r.Rate
	case "debit":
		return r.Debit
	case "credit":
		return r.Credit
	case "closing_balance":
		return r.ClosingBalance
	case "inflow":
		return r.Inflow
	case "outflow":
		return r.Outflow
	case "net_flow":
		return r.NetFlow
	}
	return nil
}

// HasAnyAmount reports whether the row carries at least one non-nil numeric
// facet. Rows failing this are dropped before rendering.
func (r *NormalizedRow) HasAnyAmount() bool {
	for _, f := range NumericFields {
		if r.Field(f) != nil {
			return true
		}
	}
	return false
}

// Float is a convenience for building *float64 literals.
func Float(v float64) *float64 { return &v }
