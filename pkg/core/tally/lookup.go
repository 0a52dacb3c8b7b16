package tally

import (
	"context"
	"strings"
)

// =============================================================================
// REPORT LOOKUP - Question text to a canonical Tally report name
// =============================================================================

// reportKeywords maps question vocabulary to the report that answers it,
// checked in order: the more specific registers come before the broad
// financial statements.
var reportKeywords = []struct {
	report   string
	keywords []string
}{
	{"Bills Receivable", []string{"bills receivable", "receivable", "outstanding bills", "pending bills", "who owes"}},
	{"Bills Payable", []string{"bills payable", "payable"}},
	{"Cash Flow", []string{"cash flow", "cashflow", "inflow", "outflow"}},
	{"Sales Register", []string{"sales register", "sales", "monthly sales"}},
	{"Ratio Analysis", []string{"ratio", "ratios"}},
	{"Stock Summary", []string{"stock", "inventory", "item", "items", "quantity", "rate"}},
	{"Day Book", []string{"day book", "daybook", "voucher", "vouchers", "entries", "transactions"}},
	{"Profit & Loss", []string{"profit", "loss", "profit and loss", "income", "expense", "expenses"}},
	{"Balance Sheet", []string{"balance sheet", "assets", "liabilities", "capital", "loans"}},
}

// KeywordResolver is the deterministic report lookup used when no semantic
// lookup collaborator is wired in, and the local fallback when one fails.
type KeywordResolver struct{}

// ResolveReport maps a question to a canonical report name, or "" when no
// vocabulary matches.
func (KeywordResolver) ResolveReport(_ context.Context, query string) (string, error) {
	q := strings.ToLower(query)
	for _, rk := range reportKeywords {
		for _, kw := range rk.keywords {
			if strings.Contains(q, kw) {
				return rk.report, nil
			}
		}
	}
	return "", nil
}
