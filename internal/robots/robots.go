// Package robots gates crawl admission against a site's robots.txt,
// caching parsed rules per host and failing open on any fetch or parse
// error.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// cachedRobots stores parsed robots.txt data with its fetch timestamp. A
// nil data field means the host's robots.txt was unreachable or
// unparseable and the host is treated as allow-all.
type cachedRobots struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// Checker fetches and caches robots.txt rules per host.
type Checker struct {
	client   *http.Client
	cache    sync.Map // host string -> *cachedRobots
	cacheTTL time.Duration
}

// NewChecker creates a Checker using the given HTTP client for robots.txt
// fetches, with a one-hour per-host cache TTL.
func NewChecker(client *http.Client) *Checker {
	return &Checker{
		client:   client,
		cacheTTL: time.Hour,
	}
}

// Allowed reports whether rawURL may be crawled by userAgent, fetching and
// caching the host's robots.txt as needed. Any fetch or parse failure
// degrades to allow-all, per spec.md §4.1.
func (c *Checker) Allowed(rawURL, userAgent string) bool {
	allowed, _ := c.AllowedCtx(context.Background(), rawURL, userAgent)
	return allowed
}

// AllowedCtx is Allowed with an explicit context and a diagnostic error
// describing why the decision degraded to allow-all, if it did.
func (c *Checker) AllowedCtx(ctx context.Context, rawURL, userAgent string) (bool, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return true, fmt.Errorf("parse URL: %w", err)
	}

	host := parsedURL.Host
	if host == "" {
		return true, nil
	}

	if cached, ok := c.cache.Load(host); ok {
		entry, ok := cached.(*cachedRobots)
		if !ok || entry == nil {
			c.cache.Delete(host)
		} else if time.Since(entry.fetchedAt) < c.cacheTTL {
			if entry.data == nil {
				return true, nil
			}
			return entry.data.TestAgent(parsedURL.Path, userAgent), nil
		}
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", parsedURL.Scheme, host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		c.cacheNilEntry(host)
		return true, fmt.Errorf("create robots.txt request for host %s: %w", host, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.cacheNilEntry(host)
		return true, fmt.Errorf("fetch robots.txt for host %s: %w", host, err)
	}

	body, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		c.cacheNilEntry(host)
		return true, fmt.Errorf("read robots.txt body for host %s: %w", host, readErr)
	}
	if closeErr != nil {
		c.cacheNilEntry(host)
		return true, fmt.Errorf("close robots.txt response body for host %s: %w", host, closeErr)
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode >= 500 {
		c.cacheNilEntry(host)
		return true, nil
	}

	parsed, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		c.cacheNilEntry(host)
		return true, fmt.Errorf("parse robots.txt for host %s: %w", host, err)
	}
	if parsed == nil {
		c.cacheNilEntry(host)
		return true, nil
	}

	c.cache.Store(host, &cachedRobots{data: parsed, fetchedAt: time.Now()})
	return parsed.TestAgent(parsedURL.Path, userAgent), nil
}

func (c *Checker) cacheNilEntry(host string) {
	c.cache.Store(host, &cachedRobots{data: nil, fetchedAt: time.Now()})
}

// ClearCache removes all cached robots.txt entries. Used by tests.
func (c *Checker) ClearCache() {
	c.cache = sync.Map{}
}
