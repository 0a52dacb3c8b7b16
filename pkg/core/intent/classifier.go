package intent

import (
	"context"
	"log"
	"regexp"
	"strings"

	"tally_insights/pkg/core/llm"
	"tally_insights/pkg/models"
)

// =============================================================================
// INTENT CLASSIFIER - Fixed-precedence rules with model-assisted fallback
// =============================================================================

// ruleConfidence is the conventional confidence attached to any rule match.
// Rule and model confidences share a [0,1] scale but are not calibrated
// against each other.
const ruleConfidence = 0.7

// defaultConfidence is attached to the summary default when neither rules nor
// the model resolve the question.
const defaultConfidence = 0.5

// Classifier routes a free-text question to exactly one intent. Rules run
// first in a fixed precedence; the model layer is consulted only when every
// rule passes, and is itself constrained to the same intent set. A nil
// provider degrades to rules plus the summary default.
type Classifier struct {
	Provider llm.Provider
}

func NewClassifier(provider llm.Provider) *Classifier {
	return &Classifier{Provider: provider}
}

// Classify is a pure function of the question text plus up to three prior
// turns of history. It always returns a usable result.
func (c *Classifier) Classify(ctx context.Context, query string, history []string) models.IntentResult {
	normalized := NormalizeQuery(query)
	hint := InferReportType(normalized)

	if res, ok := classifyWithRules(normalized); ok {
		res.ReportTypeHint = hint
		log.Printf("[Classifier] rule match: intent=%s query=%q", res.Intent, query)
		return res
	}

	if c.Provider != nil {
		if res, err := c.classifyWithModel(ctx, normalized, history); err == nil {
			if res.ReportTypeHint == "" {
				res.ReportTypeHint = hint
			}
			log.Printf("[Classifier] model match: intent=%s confidence=%.2f", res.Intent, res.Confidence)
			return res
		} else {
			log.Printf("[Classifier] model classification failed: %v", err)
		}
	}

	return models.IntentResult{
		Intent:         models.IntentSummary,
		Confidence:     defaultConfidence,
		ReportTypeHint: hint,
	}
}

// =============================================================================
// RULE LAYER - First match wins, no fallthrough once matched
// =============================================================================

var (
	superlativeKeywords = []string{
		"costliest", "cheapest", "highest", "lowest",
		"maximum", "minimum", "largest", "smallest", "biggest",
		"most expensive", "least expensive",
	}

	// multiItemKeywords disqualify the rank-one superlative rule: the user
	// wants several rows, not the single extreme. The word "top" is matched
	// separately with a boundary so "laptop" does not trip it.
	multiItemKeywords = []string{"compare", "graph", "plot", "chart", "list"}

	comparisonKeywords = []string{"compare", "comparison", " vs ", "versus", "difference between"}

	plotKeywords = []string{"graph", "chart", "plot", "visualize", "visualise", "draw"}

	visualKeywords = []string{
		"graph", "chart", "plot", "visualize", "visualise",
		"compare", "analyze", "analyse", "analysis", "trend",
	}

	tableKeywords = []string{"table", "tabular", "list all", "show all", "rows"}

	displayVerbs = []string{"show", "list", "display", "give", "get"}

	// analyticKeywords block the company-selection rule: their presence means
	// the setter verb is part of an analytic question, not a company switch.
	analyticKeywords = []string{
		"value", "amount", "total", "balance", "profit", "loss", "stock",
		"report", "table", "graph", "chart", "top", "compare", "summary",
		"what", "how", "show",
	}
)

var (
	topNPattern    = regexp.MustCompile(`\btop\s+(\d+|two|three|four|five|six|seven|eight|nine|ten|fifteen|twenty)\b`)
	topWordPattern = regexp.MustCompile(`\btop\b`)
	andPattern     = regexp.MustCompile(`\band\b`)
)

func classifyWithRules(q string) (models.IntentResult, bool) {
	rule := func(intent models.Intent) (models.IntentResult, bool) {
		return models.IntentResult{Intent: intent, Confidence: ruleConfidence}, true
	}

	// 1. Company selection: a setter verb leading an otherwise bare name.
	if setterVerbPattern.MatchString(q) && !containsAny(q, analyticKeywords) {
		return rule(models.IntentCompanySelection)
	}

	// 2. Rank-one superlative: one extreme row, so a single value — unless a
	// multi-item indicator widens the ask.
	if containsAny(q, superlativeKeywords) &&
		!containsAny(q, multiItemKeywords) && !topWordPattern.MatchString(q) {
		return rule(models.IntentValue)
	}

	// 3. Top-N: an explicit count, or a display verb around the bare "top".
	if topNPattern.MatchString(q) {
		return rule(models.IntentTable)
	}
	if topWordPattern.MatchString(q) && containsAny(q, displayVerbs) {
		return rule(models.IntentTable)
	}

	// 4. Simple binary comparison: at most two items and no plot request
	// reads better as two values than as a chart.
	if containsAny(q, comparisonKeywords) && !containsAny(q, plotKeywords) &&
		commaSegments(q) <= 2 && countAnd(q) <= 1 {
		return rule(models.IntentValue)
	}

	// 5. Multi-item visual: an analysis keyword over three or more items.
	if containsAny(q, visualKeywords) &&
		(commaSegments(q) >= 3 || countAnd(q) >= 2) {
		return rule(models.IntentGraph)
	}

	// 6. Explicit table request.
	if containsAny(q, tableKeywords) {
		return rule(models.IntentTable)
	}

	return models.IntentResult{}, false
}

func containsAny(q string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// commaSegments counts non-empty comma-separated pieces of the question.
func commaSegments(q string) int {
	n := 0
	for _, seg := range strings.Split(q, ",") {
		if strings.TrimSpace(seg) != "" {
			n++
		}
	}
	return n
}

func countAnd(q string) int {
	return len(andPattern.FindAllString(q, -1))
}
