package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// BrowserConfig configures the headless Chrome used for JavaScript scrapes.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher on first use.
	Remote string
	Logger *slog.Logger
}

// Browser lazily manages a Chrome connection for rendered scrapes.
type Browser struct {
	cfg     BrowserConfig
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewBrowser creates a Browser. Chrome starts on the first Render call.
func NewBrowser(cfg BrowserConfig) *Browser {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Browser{cfg: cfg}
}

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("browser: closed")
	}
	if b.browser != nil {
		return b.browser, nil
	}

	var wsURL string
	if b.cfg.Remote != "" {
		wsURL = b.cfg.Remote
	} else {
		b.lnch = launcher.New().Headless(true)
		u, err := b.lnch.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
	}

	br := rod.New().ControlURL(wsURL)
	if err := br.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	b.browser = br
	b.cfg.Logger.Info("browser: connected", "remote", b.cfg.Remote != "")
	return br, nil
}

// Render navigates to url with stealth applied, waits for load, and returns
// the rendered DOM as HTML. When screenshot is true a full-page PNG is
// captured as well. The caller's context bounds the whole operation.
func (b *Browser) Render(ctx context.Context, url string, screenshot bool) ([]byte, []byte, error) {
	br, err := b.connect()
	if err != nil {
		return nil, nil, err
	}

	page, err := stealth.Page(br)
	if err != nil {
		return nil, nil, fmt.Errorf("browser: create page: %w", err)
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.Navigate(url); err != nil {
		return nil, nil, fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		// A load timeout is not fatal — serve whatever rendered.
		b.cfg.Logger.Warn("browser: wait load", "url", url, "error", err)
	}

	res, err := page.Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, nil, fmt.Errorf("browser: get DOM: %w", err)
	}
	html := []byte(res.Value.Str())

	var shot []byte
	if screenshot {
		shot, err = page.Screenshot(true, &proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		})
		if err != nil {
			b.cfg.Logger.Warn("browser: screenshot failed", "url", url, "error", err)
			shot = nil
		}
	}
	return html, shot, nil
}

// Close disconnects from Chrome and kills a locally launched instance.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			return err
		}
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
	return nil
}
