package balance

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Stringify flattens any structured value into one string for keyword
// analysis. Mappings render as their values (in key order) joined by
// spaces, sequences as their elements joined by spaces, scalars as-is.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any:
		keys := sortedKeys(t)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, Stringify(t[k]))
		}
		return strings.Join(parts, " ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, Stringify(e))
		}
		return strings.Join(parts, " ")
	case []string:
		return strings.Join(t, " ")
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isSequence(v any) bool {
	switch v.(type) {
	case []any, []string:
		return true
	}
	return false
}
