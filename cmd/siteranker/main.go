// Package main provides the siteranker CLI entrypoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/lukemcguire/siteranker/internal/applog"
	"github.com/lukemcguire/siteranker/internal/classifier"
	"github.com/lukemcguire/siteranker/internal/engine"
	"github.com/lukemcguire/siteranker/internal/render"
	"github.com/lukemcguire/siteranker/internal/robots"
	"github.com/lukemcguire/siteranker/internal/store"
)

// cliFlags holds parsed command-line flags (spec.md §6).
type cliFlags struct {
	workers       int
	staleHours    int
	maxCount      int
	maxURLParams  int
	maxComponents int
	maxDepth      int
}

func parseFlags() *cliFlags {
	opts := &cliFlags{}
	flag.IntVar(&opts.workers, "workers", 8, "parallel worker count")
	flag.IntVar(&opts.staleHours, "stale-hours", 24, "reap threshold, in hours")
	flag.IntVar(&opts.maxCount, "max-count", 0, "cap on total enqueued URLs per run (0 = unlimited)")
	flag.IntVar(&opts.maxURLParams, "max-url-params", -1, "leading query-parameter retention count (-1 = keep all, 0 = strip all)")
	flag.IntVar(&opts.maxComponents, "max-components", 10, "path-segment cap")
	flag.IntVar(&opts.maxDepth, "max-depth", 5, "BFS depth cap from seed")
	flag.Parse()
	return opts
}

func buildEngineConfig(opts *cliFlags, rawURL string) engine.Config {
	return engine.Config{
		StartURL:      rawURL,
		Workers:       opts.workers,
		StaleHours:    opts.staleHours,
		MaxCount:      opts.maxCount,
		MaxURLParams:  opts.maxURLParams,
		MaxComponents: opts.maxComponents,
		MaxDepth:      opts.maxDepth,
	}
}

func dbPath() string {
	if p := os.Getenv("SITERANKER_DB"); p != "" {
		return p
	}
	return "siteranker.db"
}

func logLevel() string {
	if lvl := os.Getenv("SITERANKER_LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return "info"
}

func main() {
	if err := applog.Init(logLevel()); err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		os.Exit(1)
	}

	opts := parseFlags()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: siteranker [flags] <url>")
		fmt.Fprintln(os.Stderr, "Flags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	rawURL := flag.Arg(0)
	parsedURL, err := url.Parse(rawURL)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		applog.Errorf("invalid URL %q: must start with http:// or https://", rawURL)
		os.Exit(1)
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		applog.Errorf("ANTHROPIC_API_KEY is not set")
		os.Exit(1)
	}

	st, err := store.Open(dbPath())
	if err != nil {
		applog.Errorf("open store: %v", err)
		os.Exit(1)
	}
	defer st.Close()

	robotsChecker := robots.NewChecker(&http.Client{})
	transport := classifier.NewAnthropicTransport(apiKey)
	cl := classifier.New(transport)

	// Each worker launches and owns its own browser process (spec.md §5),
	// so the engine is handed a factory rather than a shared Pool.
	newRenderer := func() (engine.Renderer, error) {
		return render.NewPool(0)
	}

	cfg := buildEngineConfig(opts, rawURL)
	eng, err := engine.New(cfg, newRenderer, cl, st, robotsChecker)
	if err != nil {
		applog.Errorf("build engine: %v", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := eng.Run(ctx); err != nil {
		applog.Errorf("crawl %s: %v", rawURL, err)
		os.Exit(1)
	}
}
