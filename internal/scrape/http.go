package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// httpFetcher performs the no-JavaScript acquisition path: one GET.
type httpFetcher struct {
	client *http.Client
	cfg    Config
}

func newHTTPFetcher(cfg Config) *httpFetcher {
	validate := cfg.URLValidator
	return &httpFetcher{
		client: &http.Client{
			// Per-attempt timeouts come from the request context, not the
			// client, so callers can vary them per priority level.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		cfg: cfg,
	}
}

type httpResult struct {
	Body       []byte
	StatusCode int
}

// Fetch GETs a URL and returns the body capped at cfg.MaxBytes.
// Non-2xx/3xx statuses are errors; the scraping contract signals failure by
// error, never by sentinel value.
func (f *httpFetcher) Fetch(ctx context.Context, url string) (*httpResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return &httpResult{StatusCode: resp.StatusCode}, fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &httpResult{Body: body, StatusCode: resp.StatusCode}, nil
}
