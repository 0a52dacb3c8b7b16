package intent

import (
	"context"
	"fmt"
	"strings"

	"tally_insights/pkg/core/utils"
	"tally_insights/pkg/models"
)

// =============================================================================
// MODEL-ASSISTED FALLBACK - Constrained to the rule layer's intent set
// =============================================================================

const classifierSystemPrompt = `You are a query classifier for a Tally accounting assistant.

Classify the user's question into EXACTLY ONE of these intents:
- company_selection: the user wants to select or switch the active company (e.g. "use Dakshin", "select ABC Ltd")
- value: the user wants a single numeric value (e.g. "what is the value of capital account?")
- summary: the user wants a textual explanation of a report
- graph: the user wants a visualization (chart/graph/comparison across many items)
- table: the user wants the data as a table

Also identify the Tally report type if apparent:
- Balance Sheet (assets, liabilities, capital)
- Profit & Loss (incomes, expenses)
- Stock Summary (inventory, stock items)
- Day Book (voucher entries, particulars)

Respond with ONLY a JSON object in this exact shape:
{"intent": "<one of the five intents>", "confidence": <0.0-1.0>, "report": "<report name or empty string>"}`

type modelClassification struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Report     string  `json:"report"`
}

// validIntents is the closed set the model reply is clamped to. Anything
// outside it degrades to the summary default.
var validIntents = map[string]models.Intent{
	"company_selection": models.IntentCompanySelection,
	"value":             models.IntentValue,
	"summary":           models.IntentSummary,
	"graph":             models.IntentGraph,
	"table":             models.IntentTable,
}

func (c *Classifier) classifyWithModel(ctx context.Context, query string, history []string) (models.IntentResult, error) {
	var sb strings.Builder
	if len(history) > 0 {
		turns := history
		if len(turns) > 3 {
			turns = turns[len(turns)-3:]
		}
		sb.WriteString("Recent conversation:\n")
		sb.WriteString(strings.Join(turns, "\n"))
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "Current question: %q", query)

	raw, err := c.Provider.GenerateResponse(ctx, sb.String(), classifierSystemPrompt, map[string]interface{}{
		"response_format": map[string]interface{}{"type": "json_object"},
	})
	if err != nil {
		return models.IntentResult{}, fmt.Errorf("intent model call failed: %w", err)
	}

	var parsed modelClassification
	if _, err := utils.SmartParse(raw, &parsed); err != nil {
		return models.IntentResult{}, fmt.Errorf("intent reply unparseable: %w", err)
	}

	intent, ok := validIntents[strings.ToLower(strings.TrimSpace(parsed.Intent))]
	if !ok {
		intent = models.IntentSummary
		parsed.Confidence = defaultConfidence
	}

	confidence := parsed.Confidence
	if confidence < 0 || confidence > 1 {
		confidence = defaultConfidence
	}

	report := strings.TrimSpace(parsed.Report)
	if strings.EqualFold(report, "none") {
		report = ""
	}

	return models.IntentResult{
		Intent:         intent,
		Confidence:     confidence,
		ReportTypeHint: report,
	}, nil
}
