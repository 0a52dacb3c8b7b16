package normalize

import (
	"fmt"
	"math"
	"strings"

	"tally_insights/pkg/models"
)

// =============================================================================
// SHAPE RECOGNIZERS - One predicate+extractor pair per known export layout
// =============================================================================

// shapeRecognizer pairs a shape name with its extractor. The extractor
// returns nil when the envelope does not match the shape; the first
// recognizer to emit at least one row wins and the cascade stops.
type shapeRecognizer struct {
	name    string
	extract func(env map[string]interface{}) *models.NormalizedTable
}

// recognizers is the binding priority order. Several shapes can partially
// satisfy one export; only this fixed order resolves the ambiguity
// deterministically.
var recognizers = []shapeRecognizer{
	{"statistics", extractStatistics},
	{"grouped_accounts", extractGroupedAccounts},
	{"columnar_period", extractColumnarPeriod},
	{"balance_sheet", extractBalanceSheet},
	{"bills_register", extractBillsRegister},
	{"stock_summary", extractStockSummary},
	{"voucher_daybook", extractVoucherDayBook},
	{"period_ledger", extractPeriodLedger},
}

// groupedAmountContainers are the parallel amount arrays a grouped-accounts
// export may carry, in probe order.
var groupedAmountContainers = []string{"PLAMT", "DSPACCINFO", "BSAMT"}

// groupedAmountKeys is the fixed priority list of amount fields probed per
// index inside a grouped-accounts amount object.
var groupedAmountKeys = []string{"PLSUBAMT", "BSMAINAMT", "BSSUBAMT", "DSPCLAMTA", "DSPOPAMTA"}

// billAmountArrays are the alternate amount arrays of a bills register, in
// selection priority.
var billAmountArrays = []string{"BILLFINAL", "BILLCL", "BILLGSTRBALANCE", "BILLOP"}

// extractStatistics handles the Statistics shape: STATNAME and STATVALUE are
// equal-length parallel arrays; the number lives in STATVALUE[i].STATDIRECT.
func extractStatistics(env map[string]interface{}) *models.NormalizedTable {
	names, okN := asList(env["STATNAME"])
	vals, okV := asList(env["STATVALUE"])
	if !okN || !okV {
		return nil
	}

	n := len(names)
	if len(vals) < n {
		n = len(vals)
	}

	var rows []models.NormalizedRow
	for i := 0; i < n; i++ {
		label := labelName(names[i])
		if label == "" {
			label = fmt.Sprintf("row_%d", i)
		}
		var val *float64
		if obj, ok := asMap(vals[i]); ok {
			val = ParseAmount(obj["STATDIRECT"])
		} else {
			val = ParseAmount(vals[i])
		}
		rows = append(rows, models.NormalizedRow{
			Section: "Statistics",
			Label:   label,
			Value:   val,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return &models.NormalizedTable{Columns: models.DefaultColumns, Rows: rows}
}

// extractGroupedAccounts handles P&L-like exports. The DSPACCNAME array can
// be nested anywhere in the tree, so the block is located by key search; the
// amounts come from whichever parallel container is present, probing the
// fixed amount-key priority per index.
func extractGroupedAccounts(env map[string]interface{}) *models.NormalizedTable {
	block := findBlockWithKey(env, "DSPACCNAME")
	if block == nil {
		return nil
	}

	names, ok := asList(block["DSPACCNAME"])
	if !ok {
		return nil
	}

	var amountLists [][]interface{}
	for _, k := range groupedAmountContainers {
		if l, isList := asList(block[k]); isList {
			amountLists = append(amountLists, l)
		}
	}

	var rows []models.NormalizedRow
	for i, nameObj := range names {
		label := labelName(nameObj)
		if label == "" {
			continue
		}

		var val *float64
		for _, amtList := range amountLists {
			if i >= len(amtList) {
				continue
			}
			if amtObj, isMap := asMap(amtList[i]); isMap {
				for _, key := range groupedAmountKeys {
					if _, present := amtObj[key]; present {
						if val = ParseAmount(amtObj[key]); val != nil {
							break
						}
					}
				}
			}
			if val != nil {
				break
			}
		}
		if val == nil {
			continue
		}

		rows = append(rows, models.NormalizedRow{
			Section: "ProfitAndLoss",
			Label:   label,
			Value:   val,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return &models.NormalizedTable{Columns: models.DefaultColumns, Rows: rows}
}

// extractColumnarPeriod handles columnar reports: a PARTICULARS array plus
// sibling equal-length arrays treated as period columns. Only rows whose
// particulars text reads as a balance line are kept — a deliberate narrowing
// to avoid fabricating per-period values for unrelated line items.
func extractColumnarPeriod(env map[string]interface{}) *models.NormalizedTable {
	particulars, ok := asList(env["PARTICULARS"])
	if !ok {
		return nil
	}

	type column struct {
		name   string
		values []interface{}
	}
	var columns []column
	for _, k := range sortedKeys(env) {
		if strings.EqualFold(k, "PARTICULARS") {
			continue
		}
		if l, isList := asList(env[k]); isList && len(l) == len(particulars) {
			columns = append(columns, column{k, l})
		}
	}

	var rows []models.NormalizedRow
	for i, part := range particulars {
		label := ""
		if s, isStr := part.(string); isStr {
			label = strings.TrimSpace(s)
		}
		if !strings.Contains(strings.ToLower(label), "net balance") {
			continue
		}

		for _, col := range columns {
			val := ParseAmount(col.values[i])
			if val == nil {
				continue
			}
			rows = append(rows, models.NormalizedRow{
				Section: "CashFlowProjection",
				Label:   col.name,
				Value:   val,
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return &models.NormalizedTable{Columns: models.DefaultColumns, Rows: rows}
}

// extractBalanceSheet handles the two-level hierarchy shape: parallel
// BSNAME/BSAMT arrays where the value prefers the main amount, then the sub
// amount, then any numeric field found by scanning the amount object.
// The caller runs parent aggregation on the result.
func extractBalanceSheet(env map[string]interface{}) *models.NormalizedTable {
	names, okN := asList(env["BSNAME"])
	amts, okA := asList(env["BSAMT"])
	if !okN || !okA {
		return nil
	}

	n := len(names)
	if len(amts) < n {
		n = len(amts)
	}

	var rows []models.NormalizedRow
	for i := 0; i < n; i++ {
		label := labelName(names[i])
		if label == "" {
			label = fmt.Sprintf("row_%d", i)
		}

		var val *float64
		if amtObj, isMap := asMap(amts[i]); isMap {
			if present(amtObj["BSMAINAMT"]) {
				val = ParseAmount(amtObj["BSMAINAMT"])
			} else if present(amtObj["BSSUBAMT"]) {
				val = ParseAmount(amtObj["BSSUBAMT"])
			} else {
				for _, k := range sortedKeys(amtObj) {
					if v := ParseAmount(amtObj[k]); v != nil {
						val = v
						break
					}
				}
			}
		} else {
			val = ParseAmount(amts[i])
		}

		rows = append(rows, models.NormalizedRow{
			Section: "BalanceSheet",
			Label:   label,
			Value:   val,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	AggregateParents(rows)
	return &models.NormalizedTable{Columns: models.DefaultColumns, Rows: rows}
}

// extractBillsRegister handles bills payable/receivable: a BILLFIXED array
// plus up to four alternate amount arrays selected by priority, first
// non-null per index.
func extractBillsRegister(env map[string]interface{}) *models.NormalizedTable {
	fixed, ok := asList(env["BILLFIXED"])
	if !ok {
		return nil
	}

	fromList := func(key string, idx int) *float64 {
		if l, isList := asList(env[key]); isList && idx < len(l) {
			return ParseAmount(l[idx])
		}
		return nil
	}

	var rows []models.NormalizedRow
	for i, item := range fixed {
		obj, isMap := asMap(item)
		if !isMap {
			continue
		}

		label := firstString(obj, "BILLPARTY", "BILLREF", "BILLDATE")
		if label == "" {
			label = fmt.Sprintf("Bill_%d", i)
		}

		var val *float64
		for _, key := range billAmountArrays {
			if val = fromList(key, i); val != nil {
				break
			}
		}

		rows = append(rows, models.NormalizedRow{
			Section: "Bills",
			Label:   label,
			Value:   val,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return &models.NormalizedTable{Columns: models.DefaultColumns, Rows: rows}
}

// extractStockSummary handles inventory exports: parallel name/info arrays
// yielding three numeric facets per row (quantity, rate, value) and a
// distinct column set.
func extractStockSummary(env map[string]interface{}) *models.NormalizedTable {
	names, okN := asList(env["DSPACCNAME"])
	infos, okI := asList(env["DSPSTKINFO"])
	if !okN || !okI {
		return nil
	}

	n := len(names)
	if len(infos) < n {
		n = len(infos)
	}

	var rows []models.NormalizedRow
	for i := 0; i < n; i++ {
		label := labelName(names[i])
		if label == "" {
			label = fmt.Sprintf("Item_%d", i)
		}

		var stk map[string]interface{}
		if infoObj, isMap := asMap(infos[i]); isMap {
			stk, _ = asMap(infoObj["DSPSTKCL"])
		}

		row := models.NormalizedRow{
			Section: "StockSummary",
			Label:   label,
		}
		if stk != nil {
			if q, isStr := stk["DSPCLQTY"].(string); isStr {
				row.Quantity = strings.TrimSpace(q)
			}
			row.Rate = ParseAmount(stk["DSPCLRATE"])
			row.Value = ParseAmount(stk["DSPCLAMTA"])
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}
	return &models.NormalizedTable{
		Columns: []string{"section", "label", "quantity", "rate", "value"},
		Rows:    rows,
	}
}

// extractVoucherDayBook handles day-book exports: a list of voucher records
// each holding ledger-entry sublists, one row per nonzero ledger entry with
// an absolute value plus a signed debit/credit split.
func extractVoucherDayBook(env map[string]interface{}) *models.NormalizedTable {
	vouchers := listOrSingle(env["VOUCHER"])
	if vouchers == nil {
		return nil
	}

	var rows []models.NormalizedRow
	for _, v := range vouchers {
		voucher, isMap := asMap(v)
		if !isMap {
			continue
		}

		party := firstString(voucher, "PARTYLEDGERNAME", "LEDGERNAME")
		if party == "" {
			party = "Unknown"
		}

		for _, e := range listOrSingle(voucher["LEDGERENTRIES.LIST"]) {
			entry, isEntry := asMap(e)
			if !isEntry {
				continue
			}

			amt := ParseAmount(entry["AMOUNT"])
			if amt == nil || *amt == 0 {
				continue
			}

			label := firstString(entry, "LEDGERNAME")
			if label == "" {
				label = party
			}

			row := models.NormalizedRow{
				Section: "DayBook",
				Label:   label,
				Value:   models.Float(math.Abs(*amt)),
			}
			if *amt > 0 {
				row.Debit = models.Float(math.Abs(*amt))
			} else {
				row.Credit = models.Float(math.Abs(*amt))
			}
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return &models.NormalizedTable{
		Columns: []string{"section", "label", "value", "debit", "credit"},
		Rows:    rows,
	}
}

// extractPeriodLedger handles the alternate columnar encoding: parallel
// DSPPERIOD/DSPACCINFO arrays. Two or more negative debit amounts reclassify
// the whole report as a cash-flow shape (inflow/outflow/net_flow columns)
// instead of a ledger register (debit/credit/closing_balance).
func extractPeriodLedger(env map[string]interface{}) *models.NormalizedTable {
	periods, okP := asList(env["DSPPERIOD"])
	infos, okI := asList(env["DSPACCINFO"])
	if !okP || !okI {
		return nil
	}

	nestedAmount := func(info map[string]interface{}, outer, inner string) *float64 {
		if obj, ok := asMap(info[outer]); ok {
			return ParseAmount(obj[inner])
		}
		return nil
	}

	negativeDr := 0
	positiveDr := 0
	for _, item := range infos {
		info, isMap := asMap(item)
		if !isMap {
			continue
		}
		dr := nestedAmount(info, "DSPDRAMT", "DSPDRAMTA")
		if dr == nil {
			continue
		}
		if *dr < 0 {
			negativeDr++
		} else {
			positiveDr++
		}
	}

	isCashFlow := negativeDr >= 2

	n := len(periods)
	if len(infos) < n {
		n = len(infos)
	}

	var rows []models.NormalizedRow
	for i := 0; i < n; i++ {
		label := ""
		if s, isStr := periods[i].(string); isStr {
			label = strings.TrimSpace(s)
		}
		if label == "" {
			label = fmt.Sprintf("row_%d", i)
		}

		info, isMap := asMap(infos[i])
		if !isMap {
			continue
		}

		dr := nestedAmount(info, "DSPDRAMT", "DSPDRAMTA")
		cr := nestedAmount(info, "DSPCRAMT", "DSPCRAMTA")
		cl := nestedAmount(info, "DSPCLAMT", "DSPCLAMTA")
		if dr == nil && cr == nil && cl == nil {
			continue
		}

		if isCashFlow {
			row := models.NormalizedRow{
				Section: "CashFlow",
				Label:   label,
				Inflow:  cr,
				NetFlow: cl,
			}
			if dr != nil {
				row.Outflow = models.Float(math.Abs(*dr))
			}
			rows = append(rows, row)
			continue
		}

		section := "SalesRegister"
		if positiveDr > 0 {
			section = "DayBook"
		}
		row := models.NormalizedRow{
			Section:        section,
			Label:          label,
			Debit:          dr,
			Credit:         cr,
			ClosingBalance: cl,
		}
		if cr != nil {
			row.Value = cr
		} else {
			row.Value = dr
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}

	columns := []string{"section", "label", "debit", "credit", "closing_balance", "value"}
	if isCashFlow {
		columns = []string{"section", "label", "inflow", "outflow", "net_flow"}
	}
	return &models.NormalizedTable{Columns: columns, Rows: rows}
}

// present reports whether an amount slot carries usable content.
func present(v interface{}) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		t := strings.TrimSpace(s)
		return t != "" && !strings.EqualFold(t, "null")
	}
	return true
}

// firstString returns the first non-empty string among the named keys.
func firstString(obj map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
