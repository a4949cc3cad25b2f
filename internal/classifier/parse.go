package classifier

import (
	"encoding/json"
	"fmt"
)

// Classified is one validated classifier result: a link with its raw
// per-keyword scores, prior to ranking.
type Classified struct {
	URL      string             `json:"url"`
	Text     string             `json:"text"`
	Keywords map[string]float64 `json:"keywords"`
}

// parseResponse parses a classifier response, wrapping a single JSON
// object into a singleton list (spec.md §4.4 validation step 1, §8
// testable property 8), then validates each item's shape, discarding
// items that cannot be coerced. discarded counts how many items failed
// shape validation, distinguishing a fully malformed response (parse
// error) from a well-formed list containing some bad items (shape
// error) so the caller can pick the matching remediation prompt.
func parseResponse(raw string) (results []Classified, discarded int, err error) {
	var generic interface{}
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, 0, fmt.Errorf("parse classifier response: %w", err)
	}

	var items []interface{}
	switch v := generic.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		items = []interface{}{v}
	default:
		return nil, 0, fmt.Errorf("classifier response is neither an object nor a list")
	}

	results = make([]Classified, 0, len(items))
	for _, item := range items {
		c, ok := coerce(item)
		if ok {
			results = append(results, c)
		} else {
			discarded++
		}
	}
	return results, discarded, nil
}

func coerce(item interface{}) (Classified, bool) {
	obj, ok := item.(map[string]interface{})
	if !ok {
		return Classified{}, false
	}

	url, ok := obj["url"].(string)
	if !ok || url == "" {
		return Classified{}, false
	}

	text, _ := obj["text"].(string)

	rawKeywords, ok := obj["keywords"].(map[string]interface{})
	if !ok {
		return Classified{}, false
	}

	keywords := make(map[string]float64, len(rawKeywords))
	for k, v := range rawKeywords {
		n, ok := v.(float64)
		if !ok {
			continue
		}
		keywords[k] = n
	}

	return Classified{URL: url, Text: text, Keywords: keywords}, true
}

// outOfVocabulary returns the set of keyword names used across results
// that are not present in vocab.
func outOfVocabulary(results []Classified, vocab map[string]float64) []string {
	seen := map[string]bool{}
	var invalid []string
	for _, r := range results {
		for kw := range r.Keywords {
			if _, ok := vocab[kw]; !ok && !seen[kw] {
				seen[kw] = true
				invalid = append(invalid, kw)
			}
		}
	}
	return invalid
}
