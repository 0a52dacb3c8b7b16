package graph

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"

	"tally_insights/pkg/core/llm"
	"tally_insights/pkg/core/utils"
	"tally_insights/pkg/models"
)

// =============================================================================
// ROW FILTER - Select the rows a visualization should actually show
// =============================================================================

// fullReportKeywords short-circuit filtering entirely: the user asked for the
// whole report.
var fullReportKeywords = []string{
	"full", "complete", "entire", "all", "total", "whole", "everything",
}

// stopWords are stripped from each question segment before matching against
// row labels.
var stopWords = map[string]bool{
	"show": true, "display": true, "plot": true, "graph": true, "chart": true,
	"pie": true, "bar": true, "line": true, "me": true, "the": true, "a": true,
	"an": true, "of": true, "in": true, "from": true, "for": true,
	"balance": true, "sheet": true, "profit": true, "loss": true,
	"stock": true, "summary": true, "only": true, "just": true, "give": true,
}

// minSubstringLen gates the substring fallback: shorter cleaned tokens match
// too many unrelated labels.
const minSubstringLen = 3

// billsCollapseLimit caps the per-counterparty frequency view.
const billsCollapseLimit = 20

var segmentSplitPattern = regexp.MustCompile(`[,;&]|\band\b`)
var nonAlnumPattern = regexp.MustCompile(`[^a-z0-9 ]`)

// RowFilter narrows normalized rows to the subset a question asks to see.
// Ambiguity always resolves toward completeness: every failure mode returns
// the full row set.
type RowFilter struct {
	Provider llm.Provider
}

func NewRowFilter(provider llm.Provider) *RowFilter {
	return &RowFilter{Provider: provider}
}

// Filter applies the selection cascade: full-report keywords pass everything
// through, explicitly named labels win when they match, "only" delegates to
// the constrained model selector, and anything else keeps all rows.
func (f *RowFilter) Filter(ctx context.Context, rows []models.NormalizedRow, query string) []models.NormalizedRow {
	if len(rows) == 0 {
		return rows
	}

	q := strings.ToLower(query)

	if containsKeyword(q, fullReportKeywords) {
		return rows
	}

	if matched := matchExplicitLabels(q, rows); len(matched) > 0 {
		log.Printf("[RowFilter] explicit match: %d of %d rows", len(matched), len(rows))
		return matched
	}

	if strings.Contains(q, "only") && f.Provider != nil {
		if selected := f.selectWithModel(ctx, rows, query); len(selected) > 0 {
			log.Printf("[RowFilter] model selection: %d of %d rows", len(selected), len(rows))
			return selected
		}
		// An empty selection is a valid conservative outcome; fall back to
		// the full set rather than render nothing.
		log.Printf("[RowFilter] model selection empty, keeping all %d rows", len(rows))
	}

	return rows
}

// matchExplicitLabels splits the question into comma/"and" segments, strips
// stop words, and matches the remainder against row labels: exact normalized
// match first, then a length-gated substring match.
func matchExplicitLabels(q string, rows []models.NormalizedRow) []models.NormalizedRow {
	type labelRow struct {
		norm string
		idx  int
	}
	var labels []labelRow
	for i, r := range rows {
		labels = append(labels, labelRow{normalizeLabel(r.Label), i})
	}

	matchedIdx := map[int]bool{}
	var order []int

	for _, part := range segmentSplitPattern.Split(q, -1) {
		cleaned := cleanSegment(part)
		if cleaned == "" {
			continue
		}

		found := -1
		for _, lr := range labels {
			if lr.norm == cleaned {
				found = lr.idx
				break
			}
		}
		if found < 0 && len(cleaned) > minSubstringLen {
			for _, lr := range labels {
				if strings.Contains(lr.norm, cleaned) || strings.Contains(cleaned, lr.norm) {
					found = lr.idx
					break
				}
			}
		}
		if found >= 0 && !matchedIdx[found] {
			matchedIdx[found] = true
			order = append(order, found)
		}
	}

	var matched []models.NormalizedRow
	for _, idx := range order {
		matched = append(matched, rows[idx])
	}
	return matched
}

func normalizeLabel(s string) string {
	return strings.TrimSpace(nonAlnumPattern.ReplaceAllString(strings.ToLower(s), ""))
}

func cleanSegment(part string) string {
	var kept []string
	for _, w := range strings.Fields(normalizeLabel(part)) {
		if !stopWords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func containsKeyword(q string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// =============================================================================
// CONSTRAINED MODEL SELECTOR - "only" questions the rules could not resolve
// =============================================================================

const selectorSystemPrompt = `You are a data filter for financial report visualizations.

You are given a user question and the exact list of labels available in the report. Decide which labels the visualization should include.

Rules:
- "till X" / "until X" / "up to X" means every period from the start through X inclusive.
- "from X to Y" means every period from X through Y inclusive.
- "only X and Y" means exactly X and Y.
- A question naming a field (inflow, outflow, credit, debit, value) rather than a label means ALL labels.
- Never invent a label that is not in the list. Never expand beyond what the question implies.
- If you are not confident, return an empty array.

Respond with ONLY a JSON array of label strings, no markdown and no explanation.`

func (f *RowFilter) selectWithModel(ctx context.Context, rows []models.NormalizedRow, query string) []models.NormalizedRow {
	available := make([]string, 0, len(rows))
	for _, r := range rows {
		available = append(available, r.Label)
	}

	prompt := fmt.Sprintf("USER QUESTION: %q\n\nAVAILABLE LABELS:\n%s",
		query, strings.Join(available, "\n"))

	raw, err := f.Provider.GenerateResponse(ctx, prompt, selectorSystemPrompt, map[string]interface{}{
		"response_format": map[string]interface{}{"type": "json_object"},
	})
	if err != nil {
		log.Printf("[RowFilter] selector call failed: %v", err)
		return nil
	}

	var selected []string
	if _, err := utils.SmartParse(raw, &selected); err != nil {
		log.Printf("[RowFilter] selector reply unparseable: %v", err)
		return nil
	}

	// Only labels that actually exist survive; the model must not invent.
	allowed := map[string]bool{}
	for _, l := range selected {
		allowed[l] = true
	}

	var matched []models.NormalizedRow
	for _, r := range rows {
		if allowed[r.Label] {
			matched = append(matched, r)
		}
	}
	return matched
}

// =============================================================================
// BILLS COLLAPSE - Frequency view for bills registers, visualization only
// =============================================================================

// CollapseBills replaces per-bill rows with one row per distinct counterparty
// whose value is the occurrence count, sorted descending and truncated. Used
// only for graph output; tabular display keeps the per-bill rows.
func CollapseBills(rows []models.NormalizedRow) []models.NormalizedRow {
	counts := map[string]int{}
	var order []string
	for _, r := range rows {
		if r.Label == "" {
			continue
		}
		if _, seen := counts[r.Label]; !seen {
			order = append(order, r.Label)
		}
		counts[r.Label]++
	}

	collapsed := make([]models.NormalizedRow, 0, len(order))
	for _, label := range order {
		collapsed = append(collapsed, models.NormalizedRow{
			Section: "Bills",
			Label:   label,
			Value:   models.Float(float64(counts[label])),
		})
	}

	sort.SliceStable(collapsed, func(i, j int) bool {
		return *collapsed[i].Value > *collapsed[j].Value
	})

	if len(collapsed) > billsCollapseLimit {
		collapsed = collapsed[:billsCollapseLimit]
	}
	return collapsed
}
