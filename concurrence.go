package concurrence

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/concurrence/idgen"
	"github.com/hazyhaar/concurrence/internal/scrape"
	"github.com/hazyhaar/concurrence/internal/store"
)

// Scraper abstracts the web-scraping collaborator for testability.
type Scraper interface {
	Scrape(ctx context.Context, url string, opts scrape.Options) (*scrape.Page, error)
}

// Service is the collection engine orchestrator.
type Service struct {
	store      *store.Store
	scraper    Scraper
	ownScraper *scrape.Service // set when the service created its own scraper
	logger     *slog.Logger
	config     *Config
	newID      idgen.Generator
	now        func() time.Time
}

// New creates a Service on an already-opened database.
func New(db *sql.DB, cfg *Config, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("concurrence: nil database")
	}
	if cfg == nil {
		cfg = defaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	svc := &Service{
		store:  store.NewStore(db),
		logger: logger,
		config: cfg,
		newID:  idgen.Default,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.scraper == nil {
		s := scrape.New(cfg.Scrape, logger)
		svc.scraper = s
		svc.ownScraper = s
	}
	return svc, nil
}

// ServiceOption configures a Service during creation.
type ServiceOption func(*Service)

// WithScraper replaces the scraping collaborator. The caller owns its
// lifecycle.
func WithScraper(s Scraper) ServiceOption {
	return func(svc *Service) { svc.scraper = s }
}

// WithIDGenerator overrides the ID strategy.
func WithIDGenerator(gen idgen.Generator) ServiceOption {
	return func(svc *Service) { svc.newID = gen }
}

// WithClock overrides the time source. Use in tests that exercise freshness
// boundaries.
func WithClock(now func() time.Time) ServiceOption {
	return func(svc *Service) { svc.now = now }
}

// Close releases the service's own scraper, if any.
func (svc *Service) Close() error {
	if svc.ownScraper != nil {
		return svc.ownScraper.Close()
	}
	return nil
}

// ApplySchema applies the concurrence schema to a database. Idempotent;
// exported for migration scripts and embedding callers.
func ApplySchema(db *sql.DB) error {
	return store.ApplySchema(db)
}

// --- Collection ---

// CollectProjectData assembles the competitive dataset for a project.
//
// Partial failures never surface as errors: a competitor whose whole
// fallback chain fails appears as a Success=false entry and a lower
// completeness score. The only error path is structural — the project is
// missing or the store is unusable.
func (svc *Service) CollectProjectData(ctx context.Context, projectID string, opts *CollectOptions) (*ProjectCollectionResult, error) {
	start := time.Now()
	log := svc.logger.With("project_id", projectID)

	project, err := svc.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", projectID, err)
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}

	strategy := svc.strategyFor(ctx, project)
	order := strategy.Priorities
	if opts != nil {
		switch {
		case opts.PriorityOverride != "":
			p, perr := ParsePriority(string(opts.PriorityOverride))
			if perr != nil {
				return nil, perr
			}
			if p == PriorityFreshProductData {
				return nil, fmt.Errorf("%w: %s is not a competitor priority", ErrInvalidInput, p)
			}
			order = []Priority{p}
			strategy = &Strategy{Name: "override", Priorities: order, Timeout: strategy.Timeout}
		case opts.ForceFreshData:
			order = DefaultPriorityOrder
			strategy = &Strategy{Name: "force_fresh", Priorities: order, Timeout: strategy.Timeout}
		}
	}

	product, err := svc.collectProduct(ctx, project)
	if err != nil {
		return nil, err
	}

	competitors, err := svc.store.ListCompetitors(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list competitors: %w", err)
	}

	// Sequential on purpose: one in-flight scrape bounds load on the
	// scraping collaborator, at the cost of run time linear in competitor
	// count.
	breakdown := newBreakdown()
	results := make([]*CollectionResult, 0, len(competitors))
	for _, comp := range competitors {
		results = append(results, svc.resolveCompetitor(ctx, comp, order, strategy.Timeout, breakdown))
	}

	result := &ProjectCollectionResult{
		ProjectID:             projectID,
		CollectionStrategy:    strategy.Name,
		DataCompletenessScore: svc.completenessScore(product, results),
		DataFreshness:         svc.aggregateFreshness(product, results, svc.now()),
		CollectionTime:        time.Since(start),
		PriorityBreakdown:     breakdown,
		Product:               product,
		Competitors:           results,
	}

	log.Info("collect: run complete",
		"strategy", strategy.Name,
		"competitors", len(results),
		"completeness", result.DataCompletenessScore,
		"freshness", result.DataFreshness.Status,
		"duration_ms", result.CollectionTime.Milliseconds())
	return result, nil
}

// collectProduct reads the product side of the dataset. No scrape happens
// here: product data comes from user input upstream, so only the latest
// stored snapshot is consulted. A project without a product is not an error.
func (svc *Service) collectProduct(ctx context.Context, project *Project) (*ProductCollectionResult, error) {
	if project.ProductID == "" {
		return nil, nil
	}
	product, err := svc.store.GetProduct(ctx, project.ProductID)
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", project.ProductID, err)
	}
	if product == nil {
		svc.logger.Warn("collect: project references missing product",
			"project_id", project.ID, "product_id", project.ProductID)
		return nil, nil
	}

	snap, err := svc.store.LatestSnapshot(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("product snapshot: %w", err)
	}
	res := &ProductCollectionResult{
		ProductID: product.ID,
		Priority:  PriorityFreshProductData,
	}
	if snap != nil {
		res.Success = true
		res.Snapshot = snap
		res.Quality = ScoreSnapshot(snap, svc.config.Quality)
	} else {
		res.Quality = ScoreSnapshot(nil, svc.config.Quality)
	}
	return res, nil
}

// completenessScore aggregates the run into [0,100]: ProductWeight for a
// successful product read plus a quality bonus, CompetitorWeight scaled by
// the success fraction plus an average-quality bonus. Monotone in the number
// of competitor successes.
func (svc *Service) completenessScore(product *ProductCollectionResult, competitors []*CollectionResult) float64 {
	w := svc.config.Completeness
	var score float64

	if product != nil && product.Success {
		score += w.ProductWeight + w.ProductQualityBonus*product.Quality.Overall/100
	}

	if len(competitors) > 0 {
		var succeeded int
		var qualitySum float64
		for _, c := range competitors {
			if c.Success {
				succeeded++
				qualitySum += c.Quality.Overall
			}
		}
		score += w.CompetitorWeight * float64(succeeded) / float64(len(competitors))
		if succeeded > 0 {
			score += w.CompetitorQualityBonus * (qualitySum / float64(succeeded)) / 100
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

// ScrapeCompetitor performs a full scrape of a competitor's website and
// persists the result, returning the new snapshot's ID.
func (svc *Service) ScrapeCompetitor(ctx context.Context, competitorID string) (string, error) {
	comp, err := svc.store.GetCompetitor(ctx, competitorID)
	if err != nil {
		return "", fmt.Errorf("load competitor %s: %w", competitorID, err)
	}
	if comp == nil {
		return "", fmt.Errorf("%w: %s", ErrCompetitorNotFound, competitorID)
	}
	snap, err := svc.attemptFreshScrape(ctx, comp, svc.config.Scrape.Timeout)
	if err != nil {
		return "", err
	}
	return snap.ID, nil
}

// --- Registration (the persistence collaborator's create surface) ---

// CreateProject registers a project.
func (svc *Service) CreateProject(ctx context.Context, p *Project) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: project name required", ErrInvalidInput)
	}
	if p.ID == "" {
		p.ID = svc.newID()
	}
	return svc.store.InsertProject(ctx, p)
}

// SetProduct registers a product and links it to a project.
func (svc *Service) SetProduct(ctx context.Context, projectID string, p *Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name required", ErrInvalidInput)
	}
	project, err := svc.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	if p.ID == "" {
		p.ID = svc.newID()
	}
	if err := svc.store.InsertProduct(ctx, p); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return svc.store.SetProjectProduct(ctx, projectID, p.ID)
}

// AddCompetitor registers a competitor and links it to a project. The
// website, when present, is validated against the scrape URL policy so a
// later collection run can't be pointed at internal addresses.
func (svc *Service) AddCompetitor(ctx context.Context, projectID string, c *Competitor) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: competitor name required", ErrInvalidInput)
	}
	if c.Website != "" && svc.config.Scrape.URLValidator != nil {
		if err := svc.config.Scrape.URLValidator(c.Website); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	project, err := svc.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	if c.ID == "" {
		c.ID = svc.newID()
	}
	if err := svc.store.InsertCompetitor(ctx, c); err != nil {
		return fmt.Errorf("insert competitor: %w", err)
	}
	return svc.store.LinkCompetitor(ctx, projectID, c.ID)
}

// ListCompetitors returns the competitors linked to a project.
func (svc *Service) ListCompetitors(ctx context.Context, projectID string) ([]*Competitor, error) {
	return svc.store.ListCompetitors(ctx, projectID)
}

// ScrapeHistory returns recent priority attempts for a competitor.
func (svc *Service) ScrapeHistory(ctx context.Context, competitorID string, limit int) ([]*ScrapeLogEntry, error) {
	return svc.store.ScrapeHistory(ctx, competitorID, limit)
}
