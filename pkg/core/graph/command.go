package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tally_insights/pkg/models"
)

// =============================================================================
// COMMAND PARSING - Question text to a concrete chart instruction
// =============================================================================

// ErrNoCompany is returned when a visualization is requested before any
// company has been selected. Handlers pass it through as a structured reply,
// never as a server error.
var ErrNoCompany = errors.New("company not selected")

// ReportResolver is the external semantic lookup that maps a free-text
// question to a canonical report name. Its result is trusted without
// re-validation.
type ReportResolver interface {
	ResolveReport(ctx context.Context, query string) (string, error)
}

// ParseCommand turns a question into a GraphCommand: chart type from explicit
// keywords (default bar), report name from the resolver.
func ParseCommand(ctx context.Context, query, companyName string, resolver ReportResolver) (models.GraphCommand, error) {
	if companyName == "" {
		return models.GraphCommand{}, ErrNoCompany
	}

	q := strings.ToLower(query)

	chartType := "bar"
	switch {
	case strings.Contains(q, "pie"):
		chartType = "pie"
	case strings.Contains(q, "line"):
		chartType = "line"
	case strings.Contains(q, "bar"):
		chartType = "bar"
	}

	reportName, err := resolver.ResolveReport(ctx, query)
	if err != nil {
		return models.GraphCommand{}, fmt.Errorf("report lookup failed: %w", err)
	}
	if reportName == "" {
		return models.GraphCommand{}, errors.New("unable to determine report, please rephrase the question")
	}

	return models.GraphCommand{
		ChartType:   chartType,
		ReportName:  reportName,
		CompanyName: companyName,
	}, nil
}
