package chain

import (
	"strconv"
	"strings"

	"github.com/basinforge/skillforge/pkg/ferr"
)

// extractPath traverses data using a dotted path, where integer
// components index into a sequence and any other component must be a
// string-keyed map entry. Any missing key, wrong kind, or out-of-range
// index is a MappingError.
func extractPath(data map[string]any, dottedPath string, fromStep int) (any, error) {
	parts := strings.Split(dottedPath, ".")
	var current any = data

	for i, part := range parts {
		traversed := strings.Join(parts[:i+1], ".")

		if idx, err := strconv.Atoi(part); err == nil {
			seq, ok := current.([]any)
			if !ok {
				return nil, &ferr.MappingError{Path: dottedPath, FromStep: fromStep, Reason: "cannot index into non-sequence at '" + traversed + "'"}
			}
			if idx < 0 || idx >= len(seq) {
				return nil, &ferr.MappingError{Path: dottedPath, FromStep: fromStep, Reason: "index out of range at '" + traversed + "'"}
			}
			current = seq[idx]
			continue
		}

		m, ok := current.(map[string]any)
		if !ok {
			return nil, &ferr.MappingError{Path: dottedPath, FromStep: fromStep, Reason: "cannot traverse into non-map at '" + traversed + "'"}
		}
		value, present := m[part]
		if !present {
			return nil, &ferr.MappingError{Path: dottedPath, FromStep: fromStep, Reason: "missing key '" + part + "' at '" + traversed + "'"}
		}
		current = value
	}
	return current, nil
}

// deepCopyMap clones a JSON-shaped map so mutating the resolved input
// never affects the step's own InputTemplate.
func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
