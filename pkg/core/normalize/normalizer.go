package normalize

import (
	"fmt"
	"log"
	"strings"

	"tally_insights/pkg/models"
)

// =============================================================================
// NORMALIZER - Ordered recognizer cascade with generic fallback
// =============================================================================

// Normalize flattens a raw export tree into a uniform table. It never fails:
// an unrecognized or empty export yields an empty table with the default
// column set. A panic inside one recognizer counts as a non-match and the
// cascade proceeds.
func Normalize(parsed models.RawExport) models.NormalizedTable {
	empty := models.NormalizedTable{Columns: models.DefaultColumns, Rows: nil}

	if parsed == nil {
		return empty
	}

	env := map[string]interface{}(parsed)
	if inner, ok := asMap(parsed["ENVELOPE"]); ok {
		env = inner
	}

	for _, rec := range recognizers {
		if table := tryRecognizer(rec, env); table != nil {
			log.Printf("[Normalizer] shape=%s rows=%d", rec.name, len(table.Rows))
			return *table
		}
	}

	if rows := walkGeneric(env); len(rows) > 0 {
		log.Printf("[Normalizer] shape=generic_fallback rows=%d", len(rows))
		return models.NormalizedTable{Columns: models.DefaultColumns, Rows: rows}
	}

	log.Printf("[Normalizer] no shape matched, returning empty table")
	return empty
}

// tryRecognizer runs one extractor, converting any panic into a non-match.
func tryRecognizer(rec shapeRecognizer, env map[string]interface{}) (table *models.NormalizedTable) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Normalizer] recognizer %s panicked, treating as non-match: %v", rec.name, r)
			table = nil
		}
	}()
	return rec.extract(env)
}

// =============================================================================
// GENERIC FALLBACK - Aggressive tree walk for unknown report shapes
// =============================================================================

// walkGeneric recursively extracts plausible (label, value) rows from an
// unknown tree. For maps it inspects map-valued children; for lists of maps
// it emits one row per element, synthesizing a "<key>_<i>" label when none
// is found.
func walkGeneric(env map[string]interface{}) []models.NormalizedRow {
	var rows []models.NormalizedRow
	walkNode(env, "", 0, &rows)
	return rows
}

func walkNode(node interface{}, parentKey string, depth int, rows *[]models.NormalizedRow) {
	if depth > maxSearchDepth {
		return
	}

	section := sectionHint(parentKey)

	if m, ok := asMap(node); ok {
		keys := sortedKeys(m)

		for _, k := range keys {
			if child, isMap := asMap(m[k]); isMap {
				label, value := guessLabelAndValue(child, sortedKeys(child))
				if label != "" && value != nil {
					*rows = append(*rows, models.NormalizedRow{
						Section: section,
						Label:   label,
						Value:   value,
					})
				}
			}
		}

		for _, k := range keys {
			if l, isList := asList(m[k]); isList {
				for i, item := range l {
					child, isMap := asMap(item)
					if !isMap {
						continue
					}
					label, value := guessLabelAndValue(child, sortedKeys(child))
					if label == "" && value == nil {
						continue
					}
					if label == "" {
						label = fmt.Sprintf("%s_%d", k, i)
					}
					*rows = append(*rows, models.NormalizedRow{
						Section: section,
						Label:   label,
						Value:   value,
					})
				}
			}
		}

		for _, k := range keys {
			switch m[k].(type) {
			case map[string]interface{}, []interface{}:
				walkNode(m[k], k, depth+1, rows)
			}
		}
		return
	}

	if l, ok := asList(node); ok {
		for _, item := range l {
			switch item.(type) {
			case map[string]interface{}, []interface{}:
				walkNode(item, parentKey, depth+1, rows)
			}
		}
	}
}

// sectionHint derives a section name from the parent key of an unknown block.
func sectionHint(parentKey string) string {
	pk := strings.ToUpper(parentKey)
	switch {
	case strings.Contains(pk, "RATIO"):
		return "RatioAnalysis"
	case strings.Contains(pk, "STOCK"), strings.Contains(pk, "ITEM"):
		return "StockSummary"
	default:
		return "auto"
	}
}
