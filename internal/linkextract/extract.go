// Package linkextract mines outbound links from rendered page HTML: one
// pass over anchor elements, one pass over an embedded JSON settings blob.
package linkextract

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/lukemcguire/siteranker/internal/urlnorm"
)

// jsonBlobSelector is the marker attribute identifying the settings script
// tag mined for link candidates (spec.md §4.3).
const jsonBlobSelector = "drupal-settings-json"

// Link is one candidate outbound link as mined from a page, before
// admission filtering (robots, domain, depth, count) is applied.
type Link struct {
	URL  string
	Text string
}

// Extract mines every anchor-tag link and every drupal-settings-json link
// candidate from doc HTML, relative to base. Candidates are normalized
// (fragment stripped, query truncated to maxParams, resolved against
// base) but not deduplicated or domain-filtered; duplicates are preserved
// because deduplication is the caller's responsibility via the visited set
// and page hash.
func Extract(rawHTML string, base *url.URL, maxParams int) ([]Link, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	var links []Link
	links = append(links, extractAnchors(doc, base, maxParams)...)
	links = append(links, extractJSONBlob(doc, base, maxParams)...)
	return links, nil
}

func extractAnchors(doc *html.Node, base *url.URL, maxParams int) []Link {
	var links []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href, ok := attr(n, "href")
			if ok && href != "" && !strings.HasPrefix(href, "#") {
				if normalized, ok := normalizeCandidate(href, base, maxParams); ok {
					links = append(links, Link{
						URL:  normalized,
						Text: collapseWhitespace(innerText(n)),
					})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

func extractJSONBlob(doc *html.Node, base *url.URL, maxParams int) []Link {
	blob := findSettingsScript(doc)
	if blob == nil {
		return nil
	}
	var data interface{}
	if err := jsonUnmarshal([]byte(innerText(blob)), &data); err != nil {
		return nil
	}

	var links []Link
	walkJSON(data, "", func(candidate, label string) {
		normalized, ok := normalizeCandidate(candidate, base, maxParams)
		if !ok {
			return
		}
		links = append(links, Link{URL: normalized, Text: label})
	})
	return links
}

func findSettingsScript(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "script" {
		if v, ok := attr(n, "data-drupal-selector"); ok && v == jsonBlobSelector {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findSettingsScript(c); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func innerText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func normalizeCandidate(raw string, base *url.URL, maxParams int) (string, bool) {
	normalized, err := urlnorm.Normalize(raw, base, maxParams)
	if err != nil {
		return "", false
	}
	return normalized, true
}
