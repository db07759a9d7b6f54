// Package concurrence assembles competitive datasets for projects.
//
// A project tracks one product and a set of competitors. Each collection run
// gathers the product's latest snapshot and, per competitor, the best
// available data source under an ordered priority fallback chain (live
// scrape → fast scrape → cached snapshot → metadata synthesis), then scores
// the assembled dataset for completeness and freshness.
//
// Scraping and persistence are collaborators behind narrow contracts: the
// scraper signals failure by error, the store reads nil on not-found, and
// snapshots are append-only with latest-by-created_at semantics.
package concurrence

import (
	"time"

	"github.com/hazyhaar/concurrence/internal/store"
)

// Re-export store types for the public API.
type (
	Project        = store.Project
	Product        = store.Product
	Competitor     = store.Competitor
	Snapshot       = store.Snapshot
	ScrapeLogEntry = store.ScrapeLogEntry
)

// ContentQuality scores a snapshot's content. Derived on every run, never
// persisted. All sub-scores and Overall are in [0,100]; Overall is the
// unweighted mean of the four sub-scores.
type ContentQuality struct {
	Completeness float64  `json:"completeness"`
	Accuracy     float64  `json:"accuracy"`
	Freshness    float64  `json:"freshness"`
	Consistency  float64  `json:"consistency"`
	Overall      float64  `json:"overall_score"`
	Issues       []string `json:"issues,omitempty"`
}

// CollectionResult is the per-competitor outcome of one run. At most one
// result per competitor per run, and Success is true only for the first
// priority level that produced a usable snapshot.
type CollectionResult struct {
	CompetitorID string         `json:"competitor_id"`
	Success      bool           `json:"success"`
	Snapshot     *Snapshot      `json:"snapshot,omitempty"`
	Error        string         `json:"error,omitempty"`
	Quality      ContentQuality `json:"quality"`
	Priority     Priority       `json:"priority"`
}

// ProductCollectionResult wraps the product side of a run. Product data is
// never scraped here — it originates from user input, so collection reads
// the latest stored snapshot only.
type ProductCollectionResult struct {
	ProductID string         `json:"product_id"`
	Success   bool           `json:"success"`
	Snapshot  *Snapshot      `json:"snapshot,omitempty"`
	Quality   ContentQuality `json:"quality"`
	Priority  Priority       `json:"priority"`
}

// FreshnessLevel classifies an aggregate freshness percentage.
type FreshnessLevel string

const (
	FreshnessFresh   FreshnessLevel = "FRESH"   // > 80
	FreshnessStale   FreshnessLevel = "STALE"   // 40–80
	FreshnessExpired FreshnessLevel = "EXPIRED" // < 40
)

// DataFreshness is the freshness verdict of one collection run.
type DataFreshness struct {
	Status             FreshnessLevel `json:"status"`
	Score              float64        `json:"score"` // 0–100
	RefreshRecommended bool           `json:"refresh_recommended"`
}

// PriorityStats tallies attempts for one priority level across a run.
type PriorityStats struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ProjectCollectionResult is the aggregate outcome of one collection run.
// Ephemeral: callers embed what they need (typically the completeness score)
// into their own records.
type ProjectCollectionResult struct {
	ProjectID             string                       `json:"project_id"`
	CollectionStrategy    string                       `json:"collection_strategy"`
	DataCompletenessScore float64                      `json:"data_completeness_score"` // 0–100
	DataFreshness         DataFreshness                `json:"data_freshness"`
	CollectionTime        time.Duration                `json:"collection_time"`
	PriorityBreakdown     map[Priority]*PriorityStats  `json:"priority_breakdown"`
	Product               *ProductCollectionResult     `json:"product,omitempty"` // nil when the project has no product
	Competitors           []*CollectionResult          `json:"competitors"`
}

// FreshnessStatus is the read-only freshness report of CheckDataFreshness.
type FreshnessStatus struct {
	ProjectID        string    `json:"project_id"`
	ProductFresh     int       `json:"product_fresh"`
	ProductStale     int       `json:"product_stale"`
	CompetitorFresh  int       `json:"competitor_fresh"`
	CompetitorStale  int       `json:"competitor_stale"`
	RefreshRecommended bool    `json:"refresh_recommended"`
	CheckedAt        time.Time `json:"checked_at"`
	NextCheck        time.Time `json:"next_check"`
}

// CollectOptions tunes one collection run.
type CollectOptions struct {
	// PriorityOverride forces a single priority level for every competitor,
	// skipping the fallback chain.
	PriorityOverride Priority
	// ForceFreshData ignores the strategy rule table and uses the full
	// fallback chain starting from fresh scrapes.
	ForceFreshData bool
}
