package linkextract

import (
	"encoding/json"
	"sort"
	"strings"
)

func jsonUnmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// labelKeys are sibling keys, in preference order, used to resolve a link
// candidate's visible label within its containing JSON object.
var labelKeys = []string{"label", "title", "name", "text"}

// walkJSON recursively visits a decoded JSON value tree, calling emit for
// every string value that looks like a link candidate (begins with
// "http://", "https://", or "/"). The label for a candidate found inside an
// object is resolved from that same object's other fields: an exact match
// on one of labelKeys, else the first sibling string key (in sorted order,
// for determinism) containing one of those words and not containing
// "alttext".
func walkJSON(node interface{}, _ string, emit func(candidate, label string)) {
	switch v := node.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys) // deterministic emit order, so page hashes are stable
		for _, key := range keys {
			val := v[key]
			if s, ok := val.(string); ok && looksLikeLink(s) {
				emit(s, resolveLabel(v, key))
			} else {
				walkJSON(val, key, emit)
			}
		}
	case []interface{}:
		for _, item := range v {
			walkJSON(item, "", emit)
		}
	}
}

func looksLikeLink(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "/")
}

// resolveLabel finds a label for the link found at linkKey within obj,
// per the sibling-key resolution rule in spec.md §4.3.
func resolveLabel(obj map[string]interface{}, linkKey string) string {
	for _, want := range labelKeys {
		for k, v := range obj {
			if k == linkKey {
				continue
			}
			if strings.EqualFold(k, want) {
				if s, ok := v.(string); ok {
					return s
				}
			}
		}
	}

	var candidates []string
	for k := range obj {
		if k == linkKey {
			continue
		}
		lower := strings.ToLower(k)
		if strings.Contains(lower, "alttext") {
			continue
		}
		for _, want := range labelKeys {
			if strings.Contains(lower, want) {
				candidates = append(candidates, k)
				break
			}
		}
	}
	sort.Strings(candidates)
	for _, k := range candidates {
		if s, ok := obj[k].(string); ok {
			return s
		}
	}

	return ""
}
