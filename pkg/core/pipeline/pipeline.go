package pipeline

import (
	"context"
	"log"
	"strings"

	"tally_insights/pkg/core/graph"
	"tally_insights/pkg/core/llm"
	"tally_insights/pkg/core/normalize"
	"tally_insights/pkg/models"
)

// ReportFetcher retrieves one raw report export for a company.
// Implementations may fetch from the live Tally gateway or a test fixture.
type ReportFetcher interface {
	FetchReport(ctx context.Context, companyName, reportName string, staticVars map[string]string) models.RawExport
}

// Pipeline runs the request-scoped flow: resolve report, fetch, normalize,
// aggregate, filter, and render either a table or a chart spec. It holds no
// shared mutable state; concurrent requests are fully independent.
type Pipeline struct {
	fetcher     ReportFetcher
	resolver    graph.ReportResolver
	filter      *graph.RowFilter
	specBuilder *graph.SpecBuilder
}

// NewPipeline wires the pipeline with its collaborators. provider may be nil:
// every model-backed step carries a deterministic fallback.
func NewPipeline(fetcher ReportFetcher, resolver graph.ReportResolver, provider llm.Provider) *Pipeline {
	return &Pipeline{
		fetcher:     fetcher,
		resolver:    resolver,
		filter:      graph.NewRowFilter(provider),
		specBuilder: graph.NewSpecBuilder(provider),
	}
}

// GraphResult is one completed visualization request.
type GraphResult struct {
	Command models.GraphCommand    `json:"command"`
	Table   models.NormalizedTable `json:"normalized"`
	Spec    models.ChartSpec       `json:"vega_spec"`
}

// TableResult is one completed tabular request.
type TableResult struct {
	Columns    []string               `json:"columns"`
	Rows       []models.NormalizedRow `json:"rows"`
	RowCount   int                    `json:"row_count"`
	ReportUsed string                 `json:"report_used"`
}

// RunGraph executes the visualization pipeline for one question.
func (p *Pipeline) RunGraph(ctx context.Context, question, companyName string, staticVars map[string]string) (*GraphResult, error) {
	cmd, err := graph.ParseCommand(ctx, question, companyName, p.resolver)
	if err != nil {
		return nil, err
	}

	table := p.fetchNormalized(ctx, cmd, staticVars)
	rows := table.Rows

	rows = p.filter.Filter(ctx, rows, question)

	// Bills registers chart as per-counterparty frequency, never per bill.
	if strings.HasPrefix(cmd.ReportName, "Bills") {
		rows = graph.CollapseBills(rows)
	}

	numericFields := graph.NumericFieldInventory(rows)
	spec := p.specBuilder.Build(ctx, rows, question, cmd.ChartType, numericFields)

	log.Printf("[Pipeline] graph: report=%q chart=%s rows=%d fields=%v",
		cmd.ReportName, cmd.ChartType, len(rows), numericFields)

	return &GraphResult{
		Command: cmd,
		Table:   models.NormalizedTable{Columns: table.Columns, Rows: rows},
		Spec:    spec,
	}, nil
}

// RunTable executes the tabular pipeline for one question.
func (p *Pipeline) RunTable(ctx context.Context, question, companyName string, staticVars map[string]string) (*TableResult, error) {
	cmd, err := graph.ParseCommand(ctx, question, companyName, p.resolver)
	if err != nil {
		return nil, err
	}

	table := p.fetchNormalized(ctx, cmd, staticVars)
	columns := table.Columns
	rows := table.Rows

	// Sales register tables show the ledger facets only, even when the
	// normalizer emitted the wider period-ledger column set.
	if strings.EqualFold(cmd.ReportName, "Sales Register") {
		columns = []string{"section", "label", "credit", "closing_balance"}
		cleaned := make([]models.NormalizedRow, 0, len(rows))
		for _, r := range rows {
			cleaned = append(cleaned, models.NormalizedRow{
				Section:        r.Section,
				Label:          r.Label,
				Credit:         r.Credit,
				ClosingBalance: r.ClosingBalance,
			})
		}
		rows = cleaned
	}

	log.Printf("[Pipeline] table: report=%q rows=%d", cmd.ReportName, len(rows))

	return &TableResult{
		Columns:    columns,
		Rows:       rows,
		RowCount:   len(rows),
		ReportUsed: cmd.ReportName,
	}, nil
}

// fetchNormalized fetches, flattens, aggregates and drops amount-less rows.
// Every failure mode upstream yields an empty table, never an error.
func (p *Pipeline) fetchNormalized(ctx context.Context, cmd models.GraphCommand, staticVars map[string]string) models.NormalizedTable {
	raw := p.fetcher.FetchReport(ctx, cmd.CompanyName, cmd.ReportName, staticVars)
	table := normalize.Normalize(raw)

	if cmd.ReportName == "Balance Sheet" {
		normalize.AggregateParents(table.Rows)
	}

	kept := make([]models.NormalizedRow, 0, len(table.Rows))
	for _, r := range table.Rows {
		if r.HasAnyAmount() {
			kept = append(kept, r)
		}
	}
	table.Rows = kept
	return table
}

// ResolveValueQuery answers a single-value question against a table by label
// lookup, used by the value intent path.
func ResolveValueQuery(rows []models.NormalizedRow, question string) (models.NormalizedRow, bool) {
	q := strings.ToLower(question)
	for _, r := range rows {
		label := strings.ToLower(r.Label)
		if label != "" && strings.Contains(q, label) {
			return r, true
		}
	}
	return models.NormalizedRow{}, false
}
