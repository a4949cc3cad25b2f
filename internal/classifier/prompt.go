package classifier

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// linkInput is the wire shape of one link as sent to the model.
type linkInput struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

func sortedKeywords() []string {
	names := make([]string, 0, len(Vocabulary))
	for k := range Vocabulary {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// buildPrompt assembles the classification request for a batch of links,
// describing the input/output shapes, the scoring guidance, and the
// strict closed-vocabulary rule (spec.md §4.4).
func buildPrompt(links []linkInput) (string, error) {
	encoded, err := json.Marshal(links)
	if err != nil {
		return "", fmt.Errorf("encode links for prompt: %w", err)
	}

	var kwList strings.Builder
	for _, kw := range sortedKeywords() {
		fmt.Fprintf(&kwList, "- %s\n", kw)
	}

	return fmt.Sprintf(`At the end of this prompt is a JSON list of web links scraped from a single
page. Each link looks like this:
{"url": "https://finance.com", "text": "Budget Link"}

Classify links according to keywords that might be present in the text of
the link or in the URL itself. A link might have zero or more keywords.
Return a JSON list of objects, one for each link that has at least one
keyword associated with it. Each object has three keys: "url", "text", and
"keywords" (an object mapping keyword to a score in [0,1]).

Example output:
[{"url": "https://finance.com", "text": "Budget Link", "keywords": {"finance": 1.0, "budget": 1.0}}]

The keywords to look for are below.
%s
An exact keyword match (ignoring casing and plurality) scores 1.0. A
synonym or closely related word scores lower depending on similarity
(roughly 0.8). An adjective form of a noun keyword scores around 0.9; a
verb form scores around 0.4. Unrelated words are omitted entirely.

Don't output any code or other text, just the JSON. If a link has no
keywords, omit it. Do not evaluate against any keyword except those listed
above, and ignore anything to do with taxes.

If your output would include a keyword other than the ones listed, replace
it with the closest listed keyword and scale its score down from 1.0 to
reflect the similarity, or omit it if nothing listed is close.

%s`, kwList.String(), string(encoded)), nil
}

const retryMalformedJSONPrompt = `The JSON output from the last message was not valid. Produce the same
response again, but with valid JSON.`

const retryInvalidShapePrompt = `The response did not match the expected format. Produce the same response
again, but keep to this format, where "url" and "keywords" are required.
The keys inside "keywords" can be anything, but the values must be numbers.
Omit any object that doesn't match this format.

Example:
[{"url": "https://finance.com", "text": "Budget Link", "keywords": {"finance": 1.0}}]`

func buildOutOfVocabularyPrompt(invalid []string) string {
	sort.Strings(invalid)
	var kwList strings.Builder
	for _, kw := range sortedKeywords() {
		fmt.Fprintf(&kwList, "- %s\n", kw)
	}
	return fmt.Sprintf(`The JSON output from the last message used keywords outside the requested
list. The requested keywords are:
%s
The unknown keywords were: %s

Produce the same response again, but only use keywords from the requested
list. If an unknown keyword was chosen for being similar in meaning to a
requested keyword, use the requested keyword instead and scale its score
down from 1.0 to reflect the similarity. Otherwise omit it.`, kwList.String(), strings.Join(invalid, ", "))
}
