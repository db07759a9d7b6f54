package concurrence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/concurrence/dbopen"
	"github.com/hazyhaar/concurrence/internal/scrape"
	"github.com/hazyhaar/concurrence/internal/store"
	_ "modernc.org/sqlite"
)

// fakeScraper serves canned pages per URL and records every call.
type fakeScraper struct {
	pages map[string]*scrape.Page
	errs  map[string]error
	calls []string
}

func (f *fakeScraper) Scrape(_ context.Context, url string, _ scrape.Options) (*scrape.Page, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if p, ok := f.pages[url]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("fake: no page for %s", url)
}

// richPage is big enough to clear every quality threshold.
func richPage(url string) *scrape.Page {
	return &scrape.Page{
		URL:         url,
		Title:       "Acme Widgets",
		Description: "Widgets for every occasion",
		HTML:        strings.Repeat("<p>widgets</p>", 120),
		Text:        strings.Repeat("widgets ", 80),
		Markdown:    "# Acme Widgets",
		Hash:        "deadbeef",
		Method:      "http",
		StatusCode:  200,
	}
}

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// testURLValidator applies the URL policy without DNS resolution, so tests
// can use nonexistent hostnames.
func testURLValidator(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return scrape.ErrUnsafeScheme
	}
	if ip := net.ParseIP(u.Hostname()); ip != nil && (ip.IsLoopback() || ip.IsPrivate()) {
		return scrape.ErrSSRF
	}
	return nil
}

func newTestService(t *testing.T, scraper Scraper) *Service {
	t.Helper()
	db := dbopen.OpenMemory(t, store.Schema)
	cfg := &Config{}
	cfg.Scrape.URLValidator = testURLValidator
	var seq atomic.Int64
	svc, err := New(db, cfg, slog.New(slog.DiscardHandler),
		WithScraper(scraper),
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string {
			return fmt.Sprintf("id-%03d", seq.Add(1))
		}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedProject(t *testing.T, svc *Service, websites ...string) string {
	t.Helper()
	ctx := context.Background()
	prj := &Project{Name: "market watch"}
	if err := svc.CreateProject(ctx, prj); err != nil {
		t.Fatalf("create project: %v", err)
	}
	for i, w := range websites {
		c := &Competitor{Name: fmt.Sprintf("rival-%d", i), Website: w}
		if err := svc.AddCompetitor(ctx, prj.ID, c); err != nil {
			t.Fatalf("add competitor: %v", err)
		}
	}
	return prj.ID
}

func TestCollectEmptyProject(t *testing.T) {
	// WHAT: A project with no product and no competitors collects cleanly.
	// WHY: Emptiness is a score of zero, not a failure.
	svc := newTestService(t, &fakeScraper{})
	id := seedProject(t, svc)

	res, err := svc.CollectProjectData(context.Background(), id, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if res.DataCompletenessScore != 0 {
		t.Errorf("score = %v, want 0", res.DataCompletenessScore)
	}
	if len(res.Competitors) != 0 {
		t.Errorf("competitors = %d, want 0", len(res.Competitors))
	}
	if res.Product != nil {
		t.Errorf("product should be nil, got %+v", res.Product)
	}
	if res.DataFreshness.Status != FreshnessExpired {
		t.Errorf("freshness = %s, want EXPIRED", res.DataFreshness.Status)
	}
	if !res.DataFreshness.RefreshRecommended {
		t.Error("empty dataset should recommend refresh")
	}
}

func TestCollectProjectNotFound(t *testing.T) {
	svc := newTestService(t, &fakeScraper{})
	_, err := svc.CollectProjectData(context.Background(), "missing", nil)
	if !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("err = %v, want ErrProjectNotFound", err)
	}
}

func TestCollectFreshScrapeSuccess(t *testing.T) {
	// WHAT: Competitors whose sites scrape cleanly resolve at the first
	// priority tried and persist snapshots.
	fake := &fakeScraper{pages: map[string]*scrape.Page{
		"https://rival-a.example": richPage("https://rival-a.example"),
		"https://rival-b.example": richPage("https://rival-b.example"),
	}}
	svc := newTestService(t, fake)
	id := seedProject(t, svc, "https://rival-a.example", "https://rival-b.example")

	res, err := svc.CollectProjectData(context.Background(), id, &CollectOptions{ForceFreshData: true})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(res.Competitors) != 2 {
		t.Fatalf("competitors = %d, want 2", len(res.Competitors))
	}
	for _, c := range res.Competitors {
		if !c.Success {
			t.Errorf("competitor %s failed: %s", c.CompetitorID, c.Error)
		}
		if c.Priority != PriorityFreshSnapshots {
			t.Errorf("priority = %s, want %s", c.Priority, PriorityFreshSnapshots)
		}
		if c.Snapshot == nil || c.Snapshot.ID == "" {
			t.Error("snapshot not persisted")
			continue
		}
		stored, err := svc.store.GetSnapshot(context.Background(), c.Snapshot.ID)
		if err != nil || stored == nil {
			t.Errorf("stored snapshot missing: %v", err)
		}
	}
	if got := res.PriorityBreakdown[PriorityFreshSnapshots]; got.Attempted != 2 || got.Succeeded != 2 || got.Failed != 0 {
		t.Errorf("breakdown = %+v", got)
	}
	// Fresh snapshots at the fixed clock are at age zero.
	if res.DataFreshness.Status != FreshnessFresh {
		t.Errorf("freshness = %s, want FRESH", res.DataFreshness.Status)
	}
	if res.CollectionStrategy != "force_fresh" {
		t.Errorf("strategy = %s, want force_fresh", res.CollectionStrategy)
	}
}

func TestCollectFallsBackToExistingSnapshot(t *testing.T) {
	// WHAT: When both scrape levels fail, an existing snapshot wins.
	// WHY: The whole point of the chain is degrading instead of erroring.
	fake := &fakeScraper{errs: map[string]error{
		"https://rival.example": errors.New("connection refused"),
	}}
	svc := newTestService(t, fake)
	id := seedProject(t, svc, "https://rival.example")

	ctx := context.Background()
	comps, _ := svc.ListCompetitors(ctx, id)
	cached := &Snapshot{
		OwnerID:   comps[0].ID,
		OwnerType: store.OwnerCompetitor,
		Title:     "cached rival",
		HTML:      "<html>old</html>",
		CreatedAt: testNow.Add(-2 * time.Hour).UnixMilli(),
	}
	cached.ID = "snap-cached"
	if err := svc.store.InsertSnapshot(ctx, cached); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	res, err := svc.CollectProjectData(ctx, id, &CollectOptions{ForceFreshData: true})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	c := res.Competitors[0]
	if !c.Success {
		t.Fatalf("competitor failed: %s", c.Error)
	}
	if c.Priority != PriorityExistingSnapshot {
		t.Errorf("priority = %s, want %s", c.Priority, PriorityExistingSnapshot)
	}
	if c.Snapshot.ID != "snap-cached" {
		t.Errorf("snapshot = %s, want snap-cached", c.Snapshot.ID)
	}
	if bd := res.PriorityBreakdown[PriorityFreshSnapshots]; bd.Failed != 1 {
		t.Errorf("fresh breakdown = %+v", bd)
	}
	if bd := res.PriorityBreakdown[PriorityFastCollection]; bd.Failed != 1 {
		t.Errorf("fast breakdown = %+v", bd)
	}
	if bd := res.PriorityBreakdown[PriorityBasicMetadata]; bd.Attempted != 0 {
		t.Errorf("metadata should not have been tried: %+v", bd)
	}
}

func TestCollectDefaultOptionsFallsBackToCached(t *testing.T) {
	// WHAT: With no options, a small project whose scrapes fail still
	// resolves each competitor from its cached snapshot.
	// WHY: Every strategy's chain must degrade to stored data; the
	// quality-focused prefix alone would strand competitors whose sites
	// are down.
	fake := &fakeScraper{errs: map[string]error{
		"https://rival.example": errors.New("connection refused"),
	}}
	svc := newTestService(t, fake)
	id := seedProject(t, svc, "https://rival.example")

	ctx := context.Background()
	comps, _ := svc.ListCompetitors(ctx, id)
	cached := &Snapshot{
		ID:        "snap-cached",
		OwnerID:   comps[0].ID,
		OwnerType: store.OwnerCompetitor,
		Title:     "cached rival",
		HTML:      "<html>old</html>",
		CreatedAt: testNow.Add(-2 * time.Hour).UnixMilli(),
	}
	if err := svc.store.InsertSnapshot(ctx, cached); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	res, err := svc.CollectProjectData(ctx, id, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if res.CollectionStrategy != "quality_focused" {
		t.Errorf("strategy = %s, want quality_focused", res.CollectionStrategy)
	}
	c := res.Competitors[0]
	if !c.Success {
		t.Fatalf("competitor failed: %s", c.Error)
	}
	if c.Priority != PriorityExistingSnapshot {
		t.Errorf("priority = %s, want %s", c.Priority, PriorityExistingSnapshot)
	}
	if c.Snapshot.ID != "snap-cached" {
		t.Errorf("snapshot = %s, want snap-cached", c.Snapshot.ID)
	}
}

func TestCollectMetadataIsTerminal(t *testing.T) {
	// WHAT: A competitor with no website and no snapshots still produces a
	// metadata snapshot under the full chain.
	svc := newTestService(t, &fakeScraper{})
	id := seedProject(t, svc, "")

	res, err := svc.CollectProjectData(context.Background(), id, &CollectOptions{ForceFreshData: true})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	c := res.Competitors[0]
	if !c.Success {
		t.Fatalf("competitor failed: %s", c.Error)
	}
	if c.Priority != PriorityBasicMetadata {
		t.Errorf("priority = %s, want %s", c.Priority, PriorityBasicMetadata)
	}
	if c.Snapshot.ScrapingMethod != "metadata" {
		t.Errorf("method = %s, want metadata", c.Snapshot.ScrapingMethod)
	}
	if c.Snapshot.Title == "" {
		t.Error("metadata snapshot should carry the competitor name as title")
	}
}

func TestCollectAllPrioritiesFail(t *testing.T) {
	// WHAT: A single-level override with nothing behind it yields a failed
	// result entry, not an error from the run.
	svc := newTestService(t, &fakeScraper{})
	id := seedProject(t, svc, "https://rival.example")

	res, err := svc.CollectProjectData(context.Background(), id,
		&CollectOptions{PriorityOverride: PriorityExistingSnapshot})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	c := res.Competitors[0]
	if c.Success {
		t.Fatal("expected failure")
	}
	if c.Error == "" {
		t.Error("failed result should carry an error message")
	}
	if c.Priority != PriorityExistingSnapshot {
		t.Errorf("priority = %s", c.Priority)
	}
	if res.DataCompletenessScore != 0 {
		t.Errorf("score = %v, want 0", res.DataCompletenessScore)
	}
}

func TestPriorityOverrideRejectsProductPriority(t *testing.T) {
	svc := newTestService(t, &fakeScraper{})
	id := seedProject(t, svc)

	for _, bad := range []Priority{PriorityFreshProductData, "nonsense"} {
		_, err := svc.CollectProjectData(context.Background(), id,
			&CollectOptions{PriorityOverride: bad})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("override %q: err = %v, want ErrInvalidInput", bad, err)
		}
	}
}

func TestCollectWithProduct(t *testing.T) {
	// WHAT: A linked product with a stored snapshot contributes its weight
	// to the completeness score.
	svc := newTestService(t, &fakeScraper{pages: map[string]*scrape.Page{
		"https://rival.example": richPage("https://rival.example"),
	}})
	id := seedProject(t, svc, "https://rival.example")

	ctx := context.Background()
	if err := svc.SetProduct(ctx, id, &Product{Name: "Our Widget"}); err != nil {
		t.Fatalf("set product: %v", err)
	}
	prj, _ := svc.store.GetProject(ctx, id)
	snap := &Snapshot{
		ID:        "snap-prod",
		OwnerID:   prj.ProductID,
		OwnerType: store.OwnerProduct,
		Title:     "Our Widget",
		HTML:      strings.Repeat("<p>w</p>", 200),
		Text:      strings.Repeat("w ", 300),
		CreatedAt: testNow.UnixMilli(),
	}
	if err := svc.store.InsertSnapshot(ctx, snap); err != nil {
		t.Fatalf("seed product snapshot: %v", err)
	}

	res, err := svc.CollectProjectData(ctx, id, &CollectOptions{ForceFreshData: true})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if res.Product == nil || !res.Product.Success {
		t.Fatalf("product side missing: %+v", res.Product)
	}
	if res.Product.Priority != PriorityFreshProductData {
		t.Errorf("product priority = %s", res.Product.Priority)
	}
	// Both sides succeeded with high quality; the score should be well
	// above the competitor-only ceiling.
	if res.DataCompletenessScore <= 60 {
		t.Errorf("score = %v, want > 60", res.DataCompletenessScore)
	}
	if res.DataCompletenessScore > 100 {
		t.Errorf("score = %v, exceeds 100", res.DataCompletenessScore)
	}
}

func TestCompletenessMonotone(t *testing.T) {
	// WHAT: More competitor successes never lowers the score.
	svc := newTestService(t, &fakeScraper{})

	mk := func(successes, total int) []*CollectionResult {
		rs := make([]*CollectionResult, total)
		for i := range rs {
			rs[i] = &CollectionResult{CompetitorID: fmt.Sprintf("c%d", i)}
			if i < successes {
				rs[i].Success = true
				rs[i].Quality = ContentQuality{Overall: 80}
			}
		}
		return rs
	}

	var prev float64 = -1
	for n := 0; n <= 5; n++ {
		score := svc.completenessScore(nil, mk(n, 5))
		if score < prev {
			t.Errorf("score dropped from %v to %v at %d successes", prev, score, n)
		}
		prev = score
	}
}

func TestScrapeCompetitor(t *testing.T) {
	// WHAT: The direct scrape path persists a snapshot and logs nothing it
	// should not.
	fake := &fakeScraper{pages: map[string]*scrape.Page{
		"https://rival.example": richPage("https://rival.example"),
	}}
	svc := newTestService(t, fake)
	id := seedProject(t, svc, "https://rival.example")

	ctx := context.Background()
	comps, _ := svc.ListCompetitors(ctx, id)
	snapID, err := svc.ScrapeCompetitor(ctx, comps[0].ID)
	if err != nil {
		t.Fatalf("scrape competitor: %v", err)
	}
	snap, err := svc.store.GetSnapshot(ctx, snapID)
	if err != nil || snap == nil {
		t.Fatalf("snapshot not persisted: %v", err)
	}
	if snap.OwnerID != comps[0].ID {
		t.Errorf("owner = %s, want %s", snap.OwnerID, comps[0].ID)
	}

	if _, err := svc.ScrapeCompetitor(ctx, "missing"); !errors.Is(err, ErrCompetitorNotFound) {
		t.Errorf("err = %v, want ErrCompetitorNotFound", err)
	}
}

func TestAddCompetitorValidation(t *testing.T) {
	// WHAT: Registration rejects blank names and unsafe websites.
	svc := newTestService(t, &fakeScraper{})
	id := seedProject(t, svc)
	ctx := context.Background()

	if err := svc.AddCompetitor(ctx, id, &Competitor{Name: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank name: err = %v", err)
	}
	if err := svc.AddCompetitor(ctx, id, &Competitor{Name: "evil", Website: "http://127.0.0.1/admin"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("loopback website: err = %v", err)
	}
	if err := svc.AddCompetitor(ctx, "missing", &Competitor{Name: "rival"}); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("missing project: err = %v", err)
	}
}

func TestScrapeHistoryRecordsAttempts(t *testing.T) {
	// WHAT: Every priority attempt, failed or not, lands in the scrape log.
	fake := &fakeScraper{errs: map[string]error{
		"https://rival.example": errors.New("boom"),
	}}
	svc := newTestService(t, fake)
	id := seedProject(t, svc, "https://rival.example")

	ctx := context.Background()
	if _, err := svc.CollectProjectData(ctx, id, &CollectOptions{ForceFreshData: true}); err != nil {
		t.Fatalf("collect: %v", err)
	}

	comps, _ := svc.ListCompetitors(ctx, id)
	entries, err := svc.ScrapeHistory(ctx, comps[0].ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	// fresh fail, fast fail, existing fail, metadata ok.
	if len(entries) != 4 {
		t.Fatalf("entries = %d, want 4", len(entries))
	}
	var okCount, errCount int
	for _, e := range entries {
		switch e.Status {
		case "ok":
			okCount++
		case "error":
			errCount++
			if e.ErrorMessage == "" {
				t.Error("error entry without message")
			}
		}
	}
	if okCount != 1 || errCount != 3 {
		t.Errorf("ok = %d, err = %d", okCount, errCount)
	}
}
