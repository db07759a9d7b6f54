// Package extract turns raw scraped HTML into the snapshot content fields:
// title, main text, meta description, sanitized HTML, and a markdown
// rendering for downstream report generators.
//
// The pipeline: raw HTML → readability distillation → sanitize → text/title/
// description, with a plain DOM walk as fallback when distillation yields
// too little.
package extract

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// Result is the extracted content of one page.
type Result struct {
	Title       string
	Description string
	Text        string // main content, whitespace-normalized
	HTML        string // sanitized main-content HTML
	Markdown    string // markdown rendering of HTML (empty on conversion failure)
	Hash        string // SHA-256 of Text
}

// Options controls extraction behaviour.
type Options struct {
	MinTextLen int // minimum distilled text length before falling back to a full DOM walk. Default: 50.
}

func (o *Options) defaults() {
	if o.MinTextLen <= 0 {
		o.MinTextLen = 50
	}
}

// Extractor runs the extraction pipeline. Safe for concurrent use.
type Extractor struct {
	policy      *bluemonday.Policy
	mdConverter *converter.Converter
}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{
		policy: bluemonday.UGCPolicy(),
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Extract runs the pipeline on raw HTML fetched from pageURL.
// It is total over its input: unparseable or empty pages produce a Result
// with empty fields, not an error. An error is returned only when the HTML
// tokenizer itself fails.
func (e *Extractor) Extract(rawHTML []byte, pageURL string, opts Options) (*Result, error) {
	opts.defaults()

	doc, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	res := &Result{
		Title:       findTitle(doc),
		Description: findDescription(rawHTML),
	}

	// Distill main content. Readability needs the page URL to resolve
	// relative links; a broken URL just disables resolution.
	parsed, _ := url.Parse(pageURL)
	parser := readability.NewParser()
	article, rerr := parser.Parse(bytes.NewReader(rawHTML), parsed)
	if rerr == nil {
		res.Text = normalizeWhitespace(article.TextContent)
		res.HTML = e.policy.Sanitize(article.Content)
		if article.Title != "" {
			res.Title = strings.TrimSpace(article.Title)
		}
		if res.Description == "" && article.Excerpt != "" {
			res.Description = strings.TrimSpace(article.Excerpt)
		}
	}

	// Fallback: distillation failed or dropped nearly everything.
	if len(res.Text) < opts.MinTextLen {
		res.Text = normalizeWhitespace(collectText(doc))
		if res.HTML == "" {
			res.HTML = e.policy.Sanitize(string(rawHTML))
		}
	}

	if res.HTML != "" {
		md, merr := e.mdConverter.ConvertString(res.HTML, converter.WithDomain(pageURL))
		if merr == nil {
			res.Markdown = strings.TrimSpace(md)
		}
	}

	if res.Text != "" {
		h := sha256.Sum256([]byte(res.Text))
		res.Hash = fmt.Sprintf("%x", h)
	}
	return res, nil
}

// findDescription pulls the meta description (or og:description) from the head.
func findDescription(rawHTML []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		return strings.TrimSpace(desc)
	}
	if desc, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		return strings.TrimSpace(desc)
	}
	return ""
}

// normalizeWhitespace collapses runs of whitespace into single spaces while
// preserving paragraph breaks (blank lines).
func normalizeWhitespace(s string) string {
	var out []string
	for _, para := range strings.Split(s, "\n\n") {
		fields := strings.Fields(para)
		if len(fields) == 0 {
			continue
		}
		out = append(out, strings.Join(fields, " "))
	}
	return strings.Join(out, "\n\n")
}
