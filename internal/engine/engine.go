// Package engine drives one site crawl: a Frontier of not-yet-processed
// URLs feeds a pool of workers, each of which renders a page, extracts its
// outbound links, classifies and ranks them against the fixed keyword
// vocabulary, persists the result, and admits newly discovered links back
// into the Frontier.
package engine

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lukemcguire/siteranker/internal/applog"
	"github.com/lukemcguire/siteranker/internal/classifier"
	"github.com/lukemcguire/siteranker/internal/linkextract"
	"github.com/lukemcguire/siteranker/internal/rank"
	"github.com/lukemcguire/siteranker/internal/store"
	"github.com/lukemcguire/siteranker/internal/urlnorm"
)

// Renderer fetches the fully rendered HTML for a URL. Implementations
// typically own an exclusive underlying resource (e.g. one headless
// browser process), so Close releases it when a worker is done with it.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (string, error)
	Close() error
}

// RendererFactory constructs one Renderer per worker. Workers never share
// a Renderer (spec.md §5: "Per-worker resources: one headless browser
// instance, reused for every URL that worker processes").
type RendererFactory func() (Renderer, error)

// Classifier batches links through the keyword classifier.
type Classifier interface {
	Classify(ctx context.Context, links []classifier.Link) ([]classifier.Classified, error)
}

// PageStore is the subset of *store.Store the engine drives.
type PageStore interface {
	UpsertSite(ctx context.Context, siteURL string, crawlTime time.Time) (store.Site, error)
	UpsertPage(ctx context.Context, siteID int64, pageURL, hash string, crawlTime time.Time) (store.Page, error)
	UpdatePageHash(ctx context.Context, pageID int64, hash string, crawlTime time.Time) error
	UpdatePageError(ctx context.Context, pageID int64, errMsg string, crawlTime time.Time) error
	ListPagesForSite(ctx context.Context, siteID int64) ([]store.Page, error)
	DeleteStalePages(ctx context.Context, siteID int64, before time.Time) (int64, error)
	UpsertLink(ctx context.Context, siteID, pageID int64, linkURL, text string, score float64, keywords string, crawlTime time.Time) (store.Link, error)
	DeleteStaleLinks(ctx context.Context, siteID int64, before time.Time) (int64, error)
}

// Config configures one crawl run (spec.md §6's CLI flags).
type Config struct {
	StartURL      string
	Workers       int
	StaleHours    int
	MaxCount      int
	MaxURLParams  int
	MaxComponents int
	MaxDepth      int
}

// Engine ties a Frontier to the render/classify/store collaborators.
type Engine struct {
	cfg         Config
	newRenderer RendererFactory
	classify    Classifier
	store       PageStore
	robots      urlnorm.RobotsChecker

	frontier *Frontier
	policy   urlnorm.Policy

	cacheMu   sync.RWMutex
	pageCache map[string]string
}

// New builds an Engine for a crawl rooted at cfg.StartURL. newRenderer is
// called once per worker so each worker gets its own Renderer instance.
func New(cfg Config, newRenderer RendererFactory, classify Classifier, st PageStore, robots urlnorm.RobotsChecker) (*Engine, error) {
	parsed, err := url.Parse(cfg.StartURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid start URL %q", cfg.StartURL)
	}

	return &Engine{
		cfg:         cfg,
		newRenderer: newRenderer,
		classify:    classify,
		store:       st,
		robots:      robots,
		frontier:    NewFrontier(),
		policy: urlnorm.Policy{
			BaseHost:      parsed.Host,
			MaxComponents: cfg.MaxComponents,
			MaxDepth:      cfg.MaxDepth,
			MaxCount:      cfg.MaxCount,
		},
		pageCache: make(map[string]string),
	}, nil
}

// Run crawls cfg.StartURL to completion and reaps rows that fell out of
// the site on or before this run (spec.md §4.6's incremental re-crawl
// contract: anything not touched within StaleHours of run start is gone).
func (e *Engine) Run(ctx context.Context) error {
	runStart := time.Now()
	runID := uuid.New().String()
	log := applog.Logger.With().Str("run_id", runID).Str("start_url", e.cfg.StartURL).Logger()

	site, err := e.store.UpsertSite(ctx, e.cfg.StartURL, runStart)
	if err != nil {
		return fmt.Errorf("upsert site: %w", err)
	}

	if err := e.primeCache(ctx, site.ID); err != nil {
		return fmt.Errorf("prime page cache: %w", err)
	}

	e.frontier.TryAdd(e.cfg.StartURL, 0, func(int) bool { return true })

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = 8
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		group.Go(func() error {
			renderer, err := e.newRenderer()
			if err != nil {
				return fmt.Errorf("start worker renderer: %w", err)
			}
			defer renderer.Close()

			for {
				rawURL, depth, ok := e.frontier.Pop(groupCtx)
				if !ok {
					return nil
				}
				if procErr := e.processURL(groupCtx, renderer, site.ID, rawURL, depth, runStart); procErr != nil {
					log.Warn().Str("url", rawURL).Err(procErr).Msg("page processing failed")
				}
				e.frontier.Release()
			}
		})
	}

	if err := group.Wait(); err != nil {
		return fmt.Errorf("crawl %s: %w", e.cfg.StartURL, err)
	}

	staleBefore := runStart.Add(-time.Duration(e.cfg.StaleHours) * time.Hour)
	reapedPages, err := e.store.DeleteStalePages(ctx, site.ID, staleBefore)
	if err != nil {
		return fmt.Errorf("reap stale pages: %w", err)
	}
	reapedLinks, err := e.store.DeleteStaleLinks(ctx, site.ID, staleBefore)
	if err != nil {
		return fmt.Errorf("reap stale links: %w", err)
	}

	log.Info().
		Int("enqueued", e.frontier.Count()).
		Int64("pages_reaped", reapedPages).
		Int64("links_reaped", reapedLinks).
		Msg("crawl complete")

	return nil
}

func (e *Engine) primeCache(ctx context.Context, siteID int64) error {
	pages, err := e.store.ListPagesForSite(ctx, siteID)
	if err != nil {
		return err
	}
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	for _, p := range pages {
		e.pageCache[p.URL] = p.Hash
	}
	return nil
}

func (e *Engine) priorHash(rawURL string) (hash string, known bool) {
	e.cacheMu.RLock()
	defer e.cacheMu.RUnlock()
	hash, known = e.pageCache[rawURL]
	return hash, known
}

// processURL renders, extracts, conditionally classifies/ranks, persists,
// and admits the outbound links of one URL (spec.md §4.6), using the
// calling worker's own exclusive renderer.
func (e *Engine) processURL(ctx context.Context, renderer Renderer, siteID int64, rawURL string, depth int, crawlTime time.Time) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse %s: %w", rawURL, err)
	}

	if isDocumentURL(parsed.Path) {
		applog.Logger.Info().Str("url", rawURL).Msg("skipping document URL")
		return nil
	}

	page, err := e.store.UpsertPage(ctx, siteID, rawURL, "", crawlTime)
	if err != nil {
		return fmt.Errorf("upsert page: %w", err)
	}

	html, err := renderer.Render(ctx, rawURL)
	if err != nil {
		return e.store.UpdatePageError(ctx, page.ID, err.Error(), crawlTime)
	}

	links, err := linkextract.Extract(html, parsed, e.cfg.MaxURLParams)
	if err != nil {
		return e.store.UpdatePageError(ctx, page.ID, err.Error(), crawlTime)
	}

	// Links are admitted into the Frontier as a "finally" step (spec.md
	// §4.7): they must be enqueued even if classification or persistence
	// below fails for this page.
	defer e.admitLinks(links, depth)

	newHash, err := hashLinks(links)
	if err != nil {
		return fmt.Errorf("hash links: %w", err)
	}

	oldHash, known := e.priorHash(rawURL)
	if !known || oldHash != newHash {
		if err := e.classifyAndRank(ctx, siteID, page.ID, links, crawlTime); err != nil {
			return fmt.Errorf("classify and rank: %w", err)
		}
	}

	return e.store.UpdatePageHash(ctx, page.ID, newHash, crawlTime)
}

func (e *Engine) classifyAndRank(ctx context.Context, siteID, pageID int64, links []linkextract.Link, crawlTime time.Time) error {
	if len(links) == 0 {
		return nil
	}

	batch := make([]classifier.Link, len(links))
	for i, l := range links {
		batch[i] = classifier.Link{URL: l.URL, Text: l.Text}
	}

	classified, err := e.classify.Classify(ctx, batch)
	if err != nil {
		return err
	}

	for _, c := range classified {
		score, keywordString := rank.Score(c.Keywords, classifier.Vocabulary)
		if score == 0 {
			continue
		}
		if _, err := e.store.UpsertLink(ctx, siteID, pageID, c.URL, c.Text, score, keywordString, crawlTime); err != nil {
			return fmt.Errorf("upsert link %s: %w", c.URL, err)
		}
	}
	return nil
}

func (e *Engine) admitLinks(links []linkextract.Link, depth int) {
	childDepth := depth + 1
	for _, link := range links {
		candidate := link.URL
		e.frontier.TryAdd(candidate, childDepth, func(count int) bool {
			return urlnorm.Admit(candidate, childDepth, count, e.policy, e.robots)
		})
	}
}
