package intent

import (
	"regexp"
	"strings"
)

// =============================================================================
// QUERY NORMALIZATION - Lowercasing and abbreviation expansion
// =============================================================================

var abbreviations = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\bp&l\b`), "profit and loss"},
	{regexp.MustCompile(`\bpl\b`), "profit and loss"},
	{regexp.MustCompile(`\bbs\b`), "balance sheet"},
	{regexp.MustCompile(`\bqty\b`), "quantity"},
	{regexp.MustCompile(`\bamt\b`), "amount"},
}

// NormalizeQuery lowercases the question and expands the accounting
// abbreviations users habitually type.
func NormalizeQuery(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	for _, a := range abbreviations {
		normalized = a.pattern.ReplaceAllString(normalized, a.replacement)
	}
	return normalized
}

// =============================================================================
// REPORT TYPE INFERENCE - Keyword-based hint, checked in fixed order
// =============================================================================

var reportPatterns = []struct {
	report   string
	keywords []string
}{
	{"Stock Summary", []string{"stock", "inventory", "items", "quantity", "rate"}},
	{"Balance Sheet", []string{"balance sheet", "assets", "liabilities", "capital", "loans", "fixed assets", "current assets"}},
	{"Profit & Loss", []string{"profit", "loss", "income", "expense"}},
	{"Day Book", []string{"day book", "particulars", "voucher", "entries", "debit amount", "credit amount"}},
}

// InferReportType returns a report-type hint for a normalized question, or ""
// when no keyword matches.
func InferReportType(normalized string) string {
	for _, rp := range reportPatterns {
		for _, kw := range rp.keywords {
			if strings.Contains(normalized, kw) {
				return rp.report
			}
		}
	}
	return ""
}

// =============================================================================
// COMPANY EXTRACTION
// =============================================================================

var setterVerbPattern = regexp.MustCompile(`(?i)^(use|select|set|switch to|change to)\s+`)

// companyMentionPattern catches formal company names mentioned mid-sentence
// ("ABC Traders Pvt Ltd", "Dakshin Corp").
var companyMentionPattern = regexp.MustCompile(`\b([A-Z][A-Za-z &]+(Pvt\.?\s*Ltd\.?|Limited|Corp|Inc)\.?)\b`)

// ExtractCompany pulls a company name out of a selection command or a formal
// mention. Returns "" when the question carries no company.
func ExtractCompany(query string) string {
	trimmed := strings.TrimSpace(query)
	if setterVerbPattern.MatchString(trimmed) {
		return strings.TrimSpace(setterVerbPattern.ReplaceAllString(trimmed, ""))
	}
	if m := companyMentionPattern.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
