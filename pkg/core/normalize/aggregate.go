package normalize

import (
	"strings"

	"tally_insights/pkg/models"
)

// =============================================================================
// PARENT AGGREGATION - Roll up group headers from their child rows
// =============================================================================

// AggregateParents fills in null-valued rows by summing textually related
// child rows, in place. Hierarchical shapes discard the parent/child tree
// during flattening, so a group header's total must be reconstructed from
// sibling rows whose labels contain the header's label as a case-insensitive
// substring. A header with no matching children keeps its nil value.
//
// The substring heuristic can spuriously match an unrelated sibling; this is
// the known precision limit of the export format and is kept as-is.
func AggregateParents(rows []models.NormalizedRow) {
	for i := range rows {
		if rows[i].Value != nil {
			continue
		}

		parent := strings.ToLower(rows[i].Label)
		total := 0.0
		found := false

		for j := range rows {
			if rows[j].Value == nil {
				continue
			}
			child := strings.ToLower(rows[j].Label)
			if child == parent {
				continue
			}
			if strings.Contains(child, parent) {
				total += *rows[j].Value
				found = true
			}
		}

		if found {
			rows[i].Value = models.Float(total)
		}
	}
}
