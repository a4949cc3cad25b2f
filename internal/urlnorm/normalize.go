// Package urlnorm normalizes candidate URLs and decides whether they are
// admissible for enqueue under a site's crawl policy.
package urlnorm

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Normalize resolves rawURL against base (if rawURL is relative), rejects
// non-http(s) schemes, strips the fragment unconditionally, and strips the
// query string down to its leading maxParams parameters. maxParams < 0
// means keep all parameters; maxParams == 0 strips the query entirely.
//
// Normalize is idempotent: normalizing an already-normalized URL with the
// same maxParams returns it unchanged.
func Normalize(rawURL string, base *url.URL, maxParams int) (string, error) {
	if rawURL == "" {
		return "", errors.New("cannot normalize empty URL")
	}

	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL %q: %w", rawURL, err)
	}

	resolved := ref
	if base != nil {
		resolved = base.ResolveReference(ref)
	}

	if resolved.Scheme == "" || resolved.Host == "" {
		return "", errors.New("URL must have both scheme and host")
	}

	scheme := strings.ToLower(resolved.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", resolved.Scheme)
	}
	resolved.Scheme = scheme
	resolved.Host = strings.ToLower(resolved.Host)
	resolved.Fragment = ""

	if resolved.Path != "/" && strings.HasSuffix(resolved.Path, "/") {
		resolved.Path = strings.TrimRight(resolved.Path, "/")
		if resolved.Path == "" {
			resolved.Path = "/"
		}
	}

	resolved.RawQuery = truncateQuery(resolved.RawQuery, maxParams)

	return resolved.String(), nil
}

// truncateQuery keeps at most the first maxParams "key=value" pairs of a
// raw query string, preserving their original order and encoding. A
// negative maxParams keeps the query unchanged; zero strips it entirely.
func truncateQuery(rawQuery string, maxParams int) string {
	if maxParams < 0 || rawQuery == "" {
		return rawQuery
	}
	if maxParams == 0 {
		return ""
	}

	pairs := strings.Split(rawQuery, "&")
	if len(pairs) <= maxParams {
		return rawQuery
	}
	return strings.Join(pairs[:maxParams], "&")
}

// PathComponents returns the slash-delimited segments of path with leading
// and trailing slashes removed; an empty path has zero components.
func PathComponents(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// SameHost reports whether targetURL's host component equals baseHost
// exactly (case-insensitive). Unlike subdomain-generalizing domain checks,
// this performs no suffix matching: "blog.example.com" is not the same
// host as "example.com".
func SameHost(targetURL string, baseHost string) bool {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Hostname(), baseHost)
}

// IsHTTPScheme reports whether rawURL has an http or https scheme.
func IsHTTPScheme(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	return scheme == "http" || scheme == "https"
}
