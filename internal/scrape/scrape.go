// Package scrape implements the web-scraping collaborator: fetch a URL's
// content with a configurable timeout and JavaScript-rendering toggle.
//
// Two acquisition paths:
//   - http:    a single GET. Covers most static sites and is the only path
//              used by fast collection.
//   - browser: a rod-driven headless Chrome page with stealth applied, for
//              sites that render content client-side.
//
// Failure is always a returned error; there are no sentinel results.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/concurrence/internal/extract"
)

// Options controls a single scrape.
type Options struct {
	// Timeout bounds the whole attempt (connect, render, read). Default: 30s.
	Timeout time.Duration
	// EnableJavaScript routes the scrape through the browser path.
	// Ignored when no browser is configured; the HTTP path is used instead.
	EnableJavaScript bool
	// TakeScreenshot captures a full-page PNG (browser path only).
	TakeScreenshot bool
}

// Page is the outcome of a scrape: raw acquisition plus extracted content.
type Page struct {
	URL         string
	HTML        string // sanitized main-content HTML
	RawHTML     string // as fetched / as rendered
	Text        string
	Title       string
	Description string
	Markdown    string
	Hash        string // SHA-256 of Text
	Method      string // "http" or "browser"
	StatusCode  int    // 0 for the browser path
	Screenshot  []byte // non-nil only when TakeScreenshot was set
	Duration    time.Duration
}

// Config configures the scrape Service.
type Config struct {
	Timeout   time.Duration `yaml:"timeout"`    // default scrape timeout. Default: 30s.
	MaxBytes  int64         `yaml:"max_bytes"`  // response body cap. Default: 10MB.
	UserAgent string        `yaml:"user_agent"` // default: "concurrence/1.0"
	// BrowserRemote is the WebSocket URL of an external Chrome. Empty with
	// EnableBrowser launches a local headless Chrome on first use.
	BrowserRemote string `yaml:"browser_remote"`
	// EnableBrowser turns on the browser path for EnableJavaScript scrapes.
	EnableBrowser bool `yaml:"enable_browser"`
	// URLValidator validates URLs before any network use (SSRF prevention).
	// Default: ValidateURL.
	URLValidator func(string) error `yaml:"-"`
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "concurrence/1.0"
	}
	if c.URLValidator == nil {
		c.URLValidator = ValidateURL
	}
}

// Service performs scrapes.
type Service struct {
	cfg       Config
	httpf     *httpFetcher
	browser   *Browser // nil when the browser path is disabled
	extractor *extract.Extractor
	logger    *slog.Logger
}

// New creates a scrape Service.
func New(cfg Config, logger *slog.Logger) *Service {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		cfg:       cfg,
		httpf:     newHTTPFetcher(cfg),
		extractor: extract.New(),
		logger:    logger,
	}
	if cfg.EnableBrowser {
		s.browser = NewBrowser(BrowserConfig{Remote: cfg.BrowserRemote, Logger: logger})
	}
	return s
}

// Close releases the browser if one was started.
func (s *Service) Close() error {
	if s.browser != nil {
		return s.browser.Close()
	}
	return nil
}

// Scrape fetches url and extracts its content.
func (s *Service) Scrape(ctx context.Context, url string, opts Options) (*Page, error) {
	if err := s.cfg.URLValidator(url); err != nil {
		return nil, fmt.Errorf("scrape: URL blocked: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	var page *Page
	var err error
	if opts.EnableJavaScript && s.browser != nil {
		page, err = s.scrapeBrowser(ctx, url, opts)
	} else {
		page, err = s.scrapeHTTP(ctx, url)
	}
	if err != nil {
		return nil, err
	}
	page.Duration = time.Since(start)

	s.logger.Debug("scrape: done",
		"url", url, "method", page.Method,
		"text_len", len(page.Text), "duration_ms", page.Duration.Milliseconds())
	return page, nil
}

func (s *Service) scrapeHTTP(ctx context.Context, url string) (*Page, error) {
	res, err := s.httpf.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return s.finish(res.Body, url, "http", res.StatusCode, nil)
}

func (s *Service) scrapeBrowser(ctx context.Context, url string, opts Options) (*Page, error) {
	rendered, shot, err := s.browser.Render(ctx, url, opts.TakeScreenshot)
	if err != nil {
		return nil, err
	}
	return s.finish(rendered, url, "browser", 0, shot)
}

func (s *Service) finish(rawHTML []byte, url, method string, status int, shot []byte) (*Page, error) {
	ex, err := s.extractor.Extract(rawHTML, url, extract.Options{})
	if err != nil {
		return nil, fmt.Errorf("scrape: extract: %w", err)
	}
	return &Page{
		URL:         url,
		RawHTML:     string(rawHTML),
		HTML:        ex.HTML,
		Text:        ex.Text,
		Title:       ex.Title,
		Description: ex.Description,
		Markdown:    ex.Markdown,
		Hash:        ex.Hash,
		Method:      method,
		StatusCode:  status,
		Screenshot:  shot,
	}, nil
}
