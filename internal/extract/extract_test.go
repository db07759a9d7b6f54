package extract

import (
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title>Acme Widgets — Pricing</title>
<meta name="description" content="Widgets from $9/mo.">
</head>
<body>
<script>var tracked = true;</script>
<article>
<h1>Pricing</h1>
<p>Acme Widgets offers three plans for teams of every size. The starter plan
includes five seats and community support. The growth plan adds priority
support and usage analytics. The enterprise plan is custom-priced.</p>
<p>All plans include a fourteen day free trial with no credit card required.
Annual billing saves two months compared to monthly billing.</p>
</article>
</body>
</html>`

func TestExtractBasics(t *testing.T) {
	// WHAT: Title, description, and main text come out of a normal page.
	// WHY: These three fields drive the completeness score downstream.
	e := New()
	res, err := e.Extract([]byte(samplePage), "https://acme.example/pricing", Options{})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(res.Title, "Acme Widgets") {
		t.Errorf("title: got %q", res.Title)
	}
	if res.Description != "Widgets from $9/mo." {
		t.Errorf("description: got %q", res.Description)
	}
	if !strings.Contains(res.Text, "fourteen day free trial") {
		t.Errorf("text missing body content: %q", res.Text)
	}
	if strings.Contains(res.Text, "tracked") {
		t.Error("script content leaked into text")
	}
	if res.Hash == "" {
		t.Error("hash not computed")
	}
}

func TestExtractSanitizesHTML(t *testing.T) {
	// WHAT: Stored HTML never contains script tags.
	// WHY: Snapshot HTML is rendered by report viewers; it must be inert.
	page := strings.Replace(samplePage, "</article>",
		`<script>alert(1)</script></article>`, 1)
	e := New()
	res, err := e.Extract([]byte(page), "https://acme.example/", Options{})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if strings.Contains(res.HTML, "<script") {
		t.Errorf("unsanitized HTML: %q", res.HTML)
	}
}

func TestExtractEmptyPage(t *testing.T) {
	// WHAT: An empty document yields empty fields, not an error.
	// WHY: The quality scorer is total over its input; extraction must be too.
	e := New()
	res, err := e.Extract([]byte(""), "https://acme.example/", Options{})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Text != "" || res.Title != "" {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestExtractFallbackWalk(t *testing.T) {
	// WHAT: Pages too thin for readability still produce text via the DOM walk.
	page := `<html><head><title>t</title></head><body><p>short text here</p></body></html>`
	e := New()
	res, err := e.Extract([]byte(page), "https://acme.example/", Options{MinTextLen: 5000})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(res.Text, "short text here") {
		t.Errorf("fallback text: got %q", res.Text)
	}
}

func TestExtractMarkdown(t *testing.T) {
	// WHAT: Markdown rendering carries the distilled body content.
	// Readability may drop structural headings; the body text is the
	// guarantee.
	e := New()
	res, err := e.Extract([]byte(samplePage), "https://acme.example/pricing", Options{})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Markdown == "" {
		t.Fatal("no markdown produced")
	}
	if !strings.Contains(res.Markdown, "fourteen day free trial") {
		t.Errorf("markdown missing body content: %q", res.Markdown)
	}
	if strings.Contains(res.Markdown, "tracked") {
		t.Error("script content leaked into markdown")
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	got := normalizeWhitespace("a   b\n\n\n c\td")
	want := "a b\n\nc d"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
