package store

// OwnerType values for snapshots.
const (
	OwnerProduct    = "product"
	OwnerCompetitor = "competitor"
)

// Product is the tracked product, entered by the user (never scraped by the
// collection engine itself).
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Website     string `json:"website"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// Project groups one product with the competitors it is compared against.
type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProductID string `json:"product_id"` // empty when no product is linked
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Competitor is a tracked rival. Identity is immutable; metadata may change.
type Competitor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Website     string `json:"website"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// Snapshot is a point-in-time capture of an owner's website content.
// Rows are append-only; the latest by CreatedAt is the active snapshot.
type Snapshot struct {
	ID             string `json:"id"`
	OwnerID        string `json:"owner_id"`
	OwnerType      string `json:"owner_type"` // "product" or "competitor"
	URL            string `json:"url"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	HTML           string `json:"html"`
	Text           string `json:"text"`
	Markdown       string `json:"markdown"`
	ContentHash    string `json:"content_hash"`
	ContentLength  int    `json:"content_length"`
	ScrapingMethod string `json:"scraping_method"` // "http", "browser", "metadata"
	ScrapedAt      int64  `json:"scraped_at"`      // ms
	CreatedAt      int64  `json:"created_at"`      // ms
}

// ScrapeLogEntry is one priority attempt record for a competitor.
type ScrapeLogEntry struct {
	ID           string `json:"id"`
	CompetitorID string `json:"competitor_id"`
	Priority     string `json:"priority"`
	Status       string `json:"status"` // "ok" or "error"
	ErrorMessage string `json:"error_message"`
	DurationMs   int64  `json:"duration_ms"`
	ScrapedAt    int64  `json:"scraped_at"`
}
