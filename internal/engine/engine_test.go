package engine

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/lukemcguire/siteranker/internal/classifier"
	"github.com/lukemcguire/siteranker/internal/linkextract"
	"github.com/lukemcguire/siteranker/internal/store"
)

// fakeRenderer serves scripted HTML per URL.
type fakeRenderer struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *fakeRenderer) Render(_ context.Context, rawURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	html, ok := f.pages[rawURL]
	if !ok {
		return "", fmt.Errorf("fakeRenderer: no page scripted for %s", rawURL)
	}
	return html, nil
}

func (f *fakeRenderer) Close() error { return nil }

// sharedRenderer wraps a single fakeRenderer in a RendererFactory so every
// test worker renders against the same scripted page set.
func sharedRenderer(r *fakeRenderer) RendererFactory {
	return func() (Renderer, error) { return r, nil }
}

// fakeClassifier records whether it was invoked and returns a fixed result
// set keyed by URL.
type fakeClassifier struct {
	mu      sync.Mutex
	calls   int
	results map[string]map[string]float64
}

func (f *fakeClassifier) Classify(_ context.Context, links []classifier.Link) ([]classifier.Classified, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	var out []classifier.Classified
	for _, l := range links {
		if kw, ok := f.results[l.URL]; ok {
			out = append(out, classifier.Classified{URL: l.URL, Text: l.Text, Keywords: kw})
		}
	}
	return out, nil
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// erroringClassifier always fails, for testing that link admission still
// happens when classification fails.
type erroringClassifier struct{}

func (erroringClassifier) Classify(context.Context, []classifier.Link) ([]classifier.Classified, error) {
	return nil, fmt.Errorf("erroringClassifier: classification always fails")
}

// allowAllRobots always allows.
type allowAllRobots struct{}

func (allowAllRobots) Allowed(string, string) bool { return true }

// denyPathRobots disallows any URL containing a given substring.
type denyPathRobots struct{ disallowSubstring string }

func (d denyPathRobots) Allowed(rawURL, _ string) bool {
	return !containsSubstr(rawURL, d.disallowSubstring)
}

func containsSubstr(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// fakeStore is an in-memory PageStore.
type fakeStore struct {
	mu         sync.Mutex
	nextSiteID int64
	nextPageID int64
	nextLinkID int64
	sites      map[string]store.Site
	pages      map[int64]store.Page
	pagesByKey map[string]int64 // siteID|url -> pageID
	links      []store.Link
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sites:      make(map[string]store.Site),
		pages:      make(map[int64]store.Page),
		pagesByKey: make(map[string]int64),
	}
}

func pageKey(siteID int64, url string) string { return fmt.Sprintf("%d|%s", siteID, url) }

func (s *fakeStore) UpsertSite(_ context.Context, siteURL string, crawlTime time.Time) (store.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if site, ok := s.sites[siteURL]; ok {
		site.CrawlTime = crawlTime
		s.sites[siteURL] = site
		return site, nil
	}
	s.nextSiteID++
	site := store.Site{ID: s.nextSiteID, URL: siteURL, CrawlTime: crawlTime}
	s.sites[siteURL] = site
	return site, nil
}

func (s *fakeStore) UpsertPage(_ context.Context, siteID int64, pageURL, hash string, crawlTime time.Time) (store.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pageKey(siteID, pageURL)
	if id, ok := s.pagesByKey[key]; ok {
		page := s.pages[id]
		page.Hash = hash
		page.CrawlTime = crawlTime
		s.pages[id] = page
		return page, nil
	}
	s.nextPageID++
	page := store.Page{ID: s.nextPageID, SiteID: siteID, URL: pageURL, Hash: hash, CrawlTime: crawlTime}
	s.pages[page.ID] = page
	s.pagesByKey[key] = page.ID
	return page, nil
}

func (s *fakeStore) UpdatePageHash(_ context.Context, pageID int64, hash string, crawlTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	page := s.pages[pageID]
	page.Hash = hash
	page.CrawlTime = crawlTime
	s.pages[pageID] = page
	return nil
}

func (s *fakeStore) UpdatePageError(_ context.Context, pageID int64, errMsg string, crawlTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	page := s.pages[pageID]
	page.Error = &errMsg
	page.CrawlTime = crawlTime.Add(-time.Second)
	s.pages[pageID] = page
	return nil
}

func (s *fakeStore) ListPagesForSite(_ context.Context, siteID int64) ([]store.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Page
	for _, p := range s.pages {
		if p.SiteID == siteID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) DeleteStalePages(_ context.Context, siteID int64, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for id, p := range s.pages {
		if p.SiteID == siteID && p.CrawlTime.Before(before) {
			delete(s.pages, id)
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) UpsertLink(_ context.Context, siteID, pageID int64, linkURL, text string, score float64, keywords string, crawlTime time.Time) (store.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLinkID++
	link := store.Link{ID: s.nextLinkID, SiteID: siteID, PageID: pageID, URL: linkURL, Text: text, Score: score, Keywords: keywords, CrawlTime: crawlTime}
	s.links = append(s.links, link)
	return link, nil
}

func (s *fakeStore) DeleteStaleLinks(_ context.Context, siteID int64, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []store.Link
	var count int64
	for _, l := range s.links {
		if l.SiteID == siteID && l.CrawlTime.Before(before) {
			count++
			continue
		}
		kept = append(kept, l)
	}
	s.links = kept
	return count, nil
}

func baseConfig(seed string) Config {
	return Config{
		StartURL:      seed,
		Workers:       2,
		StaleHours:    24,
		MaxURLParams:  -1,
		MaxComponents: 10,
		MaxDepth:      5,
	}
}

func TestEngineEmptySiteStoresPageWithNoLinks(t *testing.T) {
	seed := "https://example.com/"
	renderer := &fakeRenderer{pages: map[string]string{seed: `<html><body>no links here</body></html>`}}
	cl := &fakeClassifier{results: map[string]map[string]float64{}}
	st := newFakeStore()

	e, err := New(baseConfig(seed), sharedRenderer(renderer), cl, st, allowAllRobots{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(st.pages) != 1 {
		t.Fatalf("len(pages) = %d, want 1", len(st.pages))
	}
	if len(st.links) != 0 {
		t.Fatalf("len(links) = %d, want 0", len(st.links))
	}
	if cl.callCount() != 0 {
		t.Fatalf("classifier called %d times, want 0 for a page with no links", cl.callCount())
	}
}

func TestEngineRanksClassifiedLinks(t *testing.T) {
	seed := "https://example.com/"
	childHTML := `<html><body>leaf</body></html>`
	html := `<html><body><a href="https://example.com/budget">Budget Office</a></body></html>`
	renderer := &fakeRenderer{pages: map[string]string{
		seed:                           html,
		"https://example.com/budget":   childHTML,
	}}
	cl := &fakeClassifier{results: map[string]map[string]float64{
		"https://example.com/budget": {"finance": 1.0, "budget": 1.0},
	}}
	st := newFakeStore()

	e, err := New(baseConfig(seed), sharedRenderer(renderer), cl, st, allowAllRobots{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(st.links) != 1 {
		t.Fatalf("len(links) = %d, want 1", len(st.links))
	}
	got := st.links[0]
	if got.URL != "https://example.com/budget" {
		t.Fatalf("link URL = %q", got.URL)
	}
	if got.Score != 1.5 {
		t.Fatalf("Score = %v, want 1.5", got.Score)
	}
}

func TestEngineSkipsClassifyWhenPageUnchanged(t *testing.T) {
	seed := "https://example.com/"
	html := `<html><body><a href="https://example.com/budget">Budget</a></body></html>`
	links, err := extractForTest(html, seed, -1)
	if err != nil {
		t.Fatalf("extractForTest: %v", err)
	}
	priorHash, err := hashLinks(links)
	if err != nil {
		t.Fatalf("hashLinks: %v", err)
	}

	renderer := &fakeRenderer{pages: map[string]string{
		seed:                         html,
		"https://example.com/budget": `<html><body>leaf</body></html>`,
	}}
	cl := &fakeClassifier{results: map[string]map[string]float64{}}
	st := newFakeStore()
	// Prime the store with a page row already carrying the hash this HTML
	// will produce, as if a prior run had already crawled it.
	site, _ := st.UpsertSite(context.Background(), seed, time.Now().Add(-48*time.Hour))
	st.UpsertPage(context.Background(), site.ID, seed, priorHash, time.Now().Add(-48*time.Hour))

	e, err := New(baseConfig(seed), sharedRenderer(renderer), cl, st, allowAllRobots{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if cl.callCount() != 0 {
		t.Fatalf("classifier called %d times, want 0 for an unchanged page", cl.callCount())
	}
}

func TestEngineRespectsDepthCap(t *testing.T) {
	seed := "https://example.com/"
	renderer := &fakeRenderer{pages: map[string]string{
		seed:                          `<html><body><a href="https://example.com/child">Child</a></body></html>`,
		"https://example.com/child":   `<html><body><a href="https://example.com/grandchild">GC</a></body></html>`,
	}}
	cl := &fakeClassifier{results: map[string]map[string]float64{}}
	st := newFakeStore()

	cfg := baseConfig(seed)
	cfg.MaxDepth = 1 // seed=0, child=1 admitted, grandchild=2 rejected
	e, err := New(cfg, sharedRenderer(renderer), cl, st, allowAllRobots{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(st.pages) != 2 {
		t.Fatalf("len(pages) = %d, want 2 (seed + child, grandchild rejected by depth cap)", len(st.pages))
	}
}

func TestEngineBlocksRobotsDisallowedChild(t *testing.T) {
	seed := "https://example.com/"
	renderer := &fakeRenderer{pages: map[string]string{
		seed: `<html><body><a href="https://example.com/private/secret">Secret</a><a href="https://example.com/public">Public</a></body></html>`,
		"https://example.com/public": `<html><body>leaf</body></html>`,
	}}
	cl := &fakeClassifier{results: map[string]map[string]float64{}}
	st := newFakeStore()

	e, err := New(baseConfig(seed), sharedRenderer(renderer), cl, st, denyPathRobots{disallowSubstring: "/private/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(st.pages) != 2 {
		t.Fatalf("len(pages) = %d, want 2 (seed + public; private blocked by robots)", len(st.pages))
	}
}

func TestEngineRecordsRenderErrorWithBackdatedCrawlTime(t *testing.T) {
	seed := "https://example.com/"
	renderer := &fakeRenderer{pages: map[string]string{}} // no page scripted -> Render errors
	cl := &fakeClassifier{results: map[string]map[string]float64{}}
	st := newFakeStore()

	e, err := New(baseConfig(seed), sharedRenderer(renderer), cl, st, allowAllRobots{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(st.pages) != 1 {
		t.Fatalf("len(pages) = %d, want 1", len(st.pages))
	}
	runStart := st.sites[seed].CrawlTime
	for _, p := range st.pages {
		if p.Error == nil {
			t.Fatal("expected page.Error to be set after a render failure")
		}
		if want := runStart.Add(-time.Second); !p.CrawlTime.Equal(want) {
			t.Fatalf("page crawl_time = %v, want run start minus 1s (%v)", p.CrawlTime, want)
		}
	}
}

func TestEngineSkipsDocumentURLWithoutTouchingStore(t *testing.T) {
	seed := "https://example.com/"
	renderer := &fakeRenderer{pages: map[string]string{
		seed: `<html><body><a href="https://example.com/report.pdf">Report</a></body></html>`,
	}}
	cl := &fakeClassifier{results: map[string]map[string]float64{}}
	st := newFakeStore()

	e, err := New(baseConfig(seed), sharedRenderer(renderer), cl, st, allowAllRobots{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(st.pages) != 1 {
		t.Fatalf("len(pages) = %d, want 1 (document URL must not create a page row)", len(st.pages))
	}
	for _, calledURL := range renderer.calls {
		if calledURL == "https://example.com/report.pdf" {
			t.Fatal("renderer was called for a document URL, want it skipped before rendering")
		}
	}
}

func TestEngineAdmitsLinksEvenWhenClassificationFails(t *testing.T) {
	seed := "https://example.com/"
	renderer := &fakeRenderer{pages: map[string]string{
		seed:                          `<html><body><a href="https://example.com/child">Child</a></body></html>`,
		"https://example.com/child":   `<html><body>leaf</body></html>`,
	}}
	st := newFakeStore()

	e, err := New(baseConfig(seed), sharedRenderer(renderer), erroringClassifier{}, st, allowAllRobots{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	foundChild := false
	for _, calledURL := range renderer.calls {
		if calledURL == "https://example.com/child" {
			foundChild = true
		}
	}
	if !foundChild {
		t.Fatal("child link was not admitted/rendered despite the classify failure on its parent page")
	}
}

func TestEngineDropsZeroScoreLinks(t *testing.T) {
	seed := "https://example.com/"
	html := `<html><body><a href="https://example.com/budget">Budget Office</a></body></html>`
	renderer := &fakeRenderer{pages: map[string]string{
		seed:                          html,
		"https://example.com/budget": `<html><body>leaf</body></html>`,
	}}
	cl := &fakeClassifier{results: map[string]map[string]float64{
		"https://example.com/budget": {"finance": 0.0},
	}}
	st := newFakeStore()

	e, err := New(baseConfig(seed), sharedRenderer(renderer), cl, st, allowAllRobots{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(st.links) != 0 {
		t.Fatalf("len(links) = %d, want 0 (a link scoring exactly 0 must be dropped)", len(st.links))
	}
}

// extractForTest mirrors the engine's extraction call for tests that need
// to precompute a page hash.
func extractForTest(html, base string, maxParams int) ([]linkextract.Link, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	return linkextract.Extract(html, parsed, maxParams)
}
