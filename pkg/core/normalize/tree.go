package normalize

import (
	"strings"
)

// =============================================================================
// TREE HELPERS - Navigating the raw export tree
// =============================================================================

// maxSearchDepth bounds every tree traversal. Exports are rarely more than a
// dozen levels deep; malformed or adversarial trees must not blow the stack.
const maxSearchDepth = 64

// nameKeys are the keys that carry a human-readable label inside nested
// export dictionaries, in probe order.
var nameKeys = []string{"DSPDISPNAME", "DSPACCNAME", "NAME", "LEDGERNAME", "ACCNAME"}

// nameLikeKeys are substrings that mark a key as label-bearing for the
// generic fallback extractor.
var nameLikeKeys = []string{
	"DSPDISPNAME", "DSPACCNAME", "NAME", "LEDGERNAME", "ACCNAME",
	"STOCK", "ITEM", "RATIO", "PARTY", "GROUP",
}

func asMap(node interface{}) (map[string]interface{}, bool) {
	m, ok := node.(map[string]interface{})
	return m, ok
}

func asList(node interface{}) ([]interface{}, bool) {
	l, ok := node.([]interface{})
	return l, ok
}

// listOrSingle wraps a lone map into a one-element list. The transport layer
// only produces lists for repeated sibling tags, so a single-entry section
// arrives as a bare map.
func listOrSingle(node interface{}) []interface{} {
	if l, ok := asList(node); ok {
		return l
	}
	if m, ok := asMap(node); ok {
		return []interface{}{m}
	}
	return nil
}

// labelName extracts a human-readable label from a nested export value.
// It probes the known name keys first, unwrapping nested maps, then falls
// back to the first scalar value found.
func labelName(node interface{}) string {
	return labelNameBounded(node, 0)
}

func labelNameBounded(node interface{}, depth int) string {
	if node == nil || depth > maxSearchDepth {
		return ""
	}

	if s, ok := node.(string); ok {
		return strings.TrimSpace(s)
	}

	obj, ok := asMap(node)
	if !ok {
		return ""
	}

	for _, k := range nameKeys {
		if v, present := obj[k]; present {
			if inner, isMap := asMap(v); isMap {
				if label := labelNameBounded(inner, depth+1); label != "" {
					return label
				}
				continue
			}
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}

	for _, k := range sortedKeys(obj) {
		v := obj[k]
		if inner, isMap := asMap(v); isMap {
			if label := labelNameBounded(inner, depth+1); label != "" {
				return label
			}
		} else if s, isStr := v.(string); isStr && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}

	return ""
}

// findBlockWithKey searches the tree for the first map containing the given
// key, visiting siblings in sorted key order so the pick is deterministic.
// The traversal is an explicit depth-bounded stack, not recursion, so a
// deeply nested or cyclic-looking export cannot overflow.
func findBlockWithKey(root interface{}, key string) map[string]interface{} {
	type frame struct {
		node  interface{}
		depth int
	}

	stack := []frame{{root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.depth > maxSearchDepth {
			continue
		}

		if m, ok := asMap(f.node); ok {
			if _, present := m[key]; present {
				return m
			}
			// Push in reverse so pops come out in ascending key order.
			keys := sortedKeys(m)
			for i := len(keys) - 1; i >= 0; i-- {
				stack = append(stack, frame{m[keys[i]], f.depth + 1})
			}
		} else if l, ok := asList(f.node); ok {
			for i := len(l) - 1; i >= 0; i-- {
				stack = append(stack, frame{l[i], f.depth + 1})
			}
		}
	}
	return nil
}

// guessLabelAndValue is the generic fallback heuristic for an unknown row
// map: pick the first name-like or string field as the label, and the first
// numeric-parseable field as the value.
func guessLabelAndValue(row map[string]interface{}, keys []string) (string, *float64) {
	label := ""
	for _, k := range keys {
		ku := strings.ToUpper(k)
		nameLike := false
		for _, h := range nameLikeKeys {
			if strings.Contains(ku, h) {
				nameLike = true
				break
			}
		}
		if !nameLike {
			continue
		}
		if s, ok := row[k].(string); ok && strings.TrimSpace(s) != "" {
			label = strings.TrimSpace(s)
			break
		}
	}

	if label == "" {
		for _, k := range keys {
			s, ok := row[k].(string)
			if !ok || strings.TrimSpace(s) == "" {
				continue
			}
			// an amount string is not a label
			if ParseAmount(s) != nil {
				continue
			}
			label = strings.TrimSpace(s)
			break
		}
	}

	var value *float64
	for _, k := range keys {
		if v := ParseAmount(row[k]); v != nil {
			value = v
			break
		}
	}

	return label, value
}

// sortedKeys returns the map keys in insertion-independent deterministic
// order so the fallback extractor emits stable rows.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// insertion sort: maps are small here
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}
