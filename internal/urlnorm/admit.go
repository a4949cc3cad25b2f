package urlnorm

import "net/url"

// Policy bundles the configured caps an admission decision is made
// against: see spec.md §4.1 and §6's CLI flags.
type Policy struct {
	BaseHost      string
	MaxComponents int // path-segment cap; <=0 means unbounded
	MaxDepth      int // BFS depth cap; <0 means unbounded
	MaxCount      int // total enqueued cap; <=0 means unbounded
}

// RobotsChecker is the subset of internal/robots.Checker the admission
// predicate depends on, kept narrow so callers can fake it in tests.
type RobotsChecker interface {
	Allowed(rawURL, userAgent string) bool
}

// Admit evaluates the §4.1 admission predicate for a normalized candidate
// URL at the given enqueue depth, given the number of URLs already
// enqueued this run. It does not mutate any state; callers decide atomicity
// with respect to the visited set and enqueued counter.
func Admit(candidate string, depth int, enqueuedCount int, policy Policy, robots RobotsChecker) bool {
	parsed, err := url.Parse(candidate)
	if err != nil {
		return false
	}

	if !IsHTTPScheme(candidate) {
		return false
	}

	if !SameHost(candidate, policy.BaseHost) {
		return false
	}

	if policy.MaxComponents > 0 && len(PathComponents(parsed.Path)) > policy.MaxComponents {
		return false
	}

	if policy.MaxDepth >= 0 && depth > policy.MaxDepth {
		return false
	}

	if policy.MaxCount > 0 && enqueuedCount >= policy.MaxCount {
		return false
	}

	if robots != nil && !robots.Allowed(candidate, "*") {
		return false
	}

	return true
}
