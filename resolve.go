package concurrence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/concurrence/internal/scrape"
	"github.com/hazyhaar/concurrence/internal/store"
)

// attempt is one priority level's acquisition function for one competitor.
// A nil snapshot with a nil error means "nothing usable"; the resolver
// treats it as a failure and moves on.
type attempt struct {
	priority Priority
	run      func(ctx context.Context) (*Snapshot, error)
}

// resolveCompetitor walks the ordered attempts first-success-wins. Every
// attempt failure is recovered, logged at warn, and tallied; nothing short
// of context cancellation stops the walk before the chain is exhausted.
// The returned result carries the lowest-ordinal priority that succeeded,
// or the last priority tried when all failed.
func (svc *Service) resolveCompetitor(ctx context.Context, comp *Competitor, order []Priority, timeout time.Duration, breakdown map[Priority]*PriorityStats) *CollectionResult {
	log := svc.logger.With("competitor_id", comp.ID, "competitor", comp.Name)

	var last Priority
	for _, at := range svc.competitorAttempts(comp, order, timeout) {
		last = at.priority
		stats := breakdown[at.priority]
		stats.Attempted++

		start := time.Now()
		snap, err := at.run(ctx)
		duration := time.Since(start)
		if err == nil && snap == nil {
			err = ErrNoSnapshot
		}

		if err != nil {
			stats.Failed++
			svc.logScrape(ctx, comp.ID, at.priority, err, duration)

			// Context cancellation means the caller gave up, not that the
			// source failed. Stop falling through.
			if ctx.Err() != nil {
				return &CollectionResult{
					CompetitorID: comp.ID,
					Error:        err.Error(),
					Priority:     at.priority,
				}
			}
			log.Warn("collect: priority level failed, falling back",
				"priority", at.priority, "error", err, "duration_ms", duration.Milliseconds())
			continue
		}

		stats.Succeeded++
		svc.logScrape(ctx, comp.ID, at.priority, nil, duration)
		return &CollectionResult{
			CompetitorID: comp.ID,
			Success:      true,
			Snapshot:     snap,
			Quality:      ScoreSnapshot(snap, svc.config.Quality),
			Priority:     at.priority,
		}
	}

	log.Warn("collect: all priority levels failed")
	return &CollectionResult{
		CompetitorID: comp.ID,
		Error:        ErrAllPrioritiesFailed.Error(),
		Priority:     last,
	}
}

// competitorAttempts maps the priority order onto acquisition functions.
// Unknown or product-only priorities are skipped.
func (svc *Service) competitorAttempts(comp *Competitor, order []Priority, timeout time.Duration) []attempt {
	attempts := make([]attempt, 0, len(order))
	for _, p := range order {
		switch p {
		case PriorityFreshSnapshots:
			attempts = append(attempts, attempt{p, func(ctx context.Context) (*Snapshot, error) {
				return svc.attemptFreshScrape(ctx, comp, timeout)
			}})
		case PriorityFastCollection:
			attempts = append(attempts, attempt{p, func(ctx context.Context) (*Snapshot, error) {
				return svc.attemptFastScrape(ctx, comp)
			}})
		case PriorityExistingSnapshot:
			attempts = append(attempts, attempt{p, func(ctx context.Context) (*Snapshot, error) {
				return svc.store.LatestSnapshot(ctx, comp.ID)
			}})
		case PriorityBasicMetadata:
			attempts = append(attempts, attempt{p, func(ctx context.Context) (*Snapshot, error) {
				return svc.attemptBasicMetadata(ctx, comp)
			}})
		}
	}
	return attempts
}

// attemptFreshScrape is the full acquisition path: rendered scrape of the
// competitor's website, persisted as a new snapshot.
func (svc *Service) attemptFreshScrape(ctx context.Context, comp *Competitor, timeout time.Duration) (*Snapshot, error) {
	if comp.Website == "" {
		return nil, ErrNoWebsite
	}
	page, err := svc.scraper.Scrape(ctx, comp.Website, scrape.Options{
		Timeout:          timeout,
		EnableJavaScript: true,
	})
	if err != nil {
		return nil, fmt.Errorf("fresh scrape: %w", err)
	}
	return svc.persistPage(ctx, comp.ID, store.OwnerCompetitor, page)
}

// attemptFastScrape is the low-fidelity path: plain HTTP, 10s budget, no
// JavaScript, no screenshot.
func (svc *Service) attemptFastScrape(ctx context.Context, comp *Competitor) (*Snapshot, error) {
	if comp.Website == "" {
		return nil, ErrNoWebsite
	}
	page, err := svc.scraper.Scrape(ctx, comp.Website, scrape.Options{
		Timeout:          svc.config.FastTimeout,
		EnableJavaScript: false,
		TakeScreenshot:   false,
	})
	if err != nil {
		return nil, fmt.Errorf("fast scrape: %w", err)
	}
	return svc.persistPage(ctx, comp.ID, store.OwnerCompetitor, page)
}

// attemptBasicMetadata synthesizes a snapshot from the competitor record
// alone. The terminal fallback: a competitor always has at least a name, so
// only a store write can fail here.
func (svc *Service) attemptBasicMetadata(ctx context.Context, comp *Competitor) (*Snapshot, error) {
	now := svc.now().UnixMilli()
	snap := &Snapshot{
		ID:             svc.newID(),
		OwnerID:        comp.ID,
		OwnerType:      store.OwnerCompetitor,
		URL:            comp.Website,
		Title:          comp.Name,
		Description:    comp.Description,
		Text:           comp.Description,
		ScrapingMethod: "metadata",
		ScrapedAt:      now,
		CreatedAt:      now,
	}
	if err := svc.store.InsertSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("persist metadata snapshot: %w", err)
	}
	return snap, nil
}

// persistPage stores a scraped page as a snapshot and returns it.
func (svc *Service) persistPage(ctx context.Context, ownerID, ownerType string, page *scrape.Page) (*Snapshot, error) {
	now := svc.now().UnixMilli()
	snap := &Snapshot{
		ID:             svc.newID(),
		OwnerID:        ownerID,
		OwnerType:      ownerType,
		URL:            page.URL,
		Title:          page.Title,
		Description:    page.Description,
		HTML:           page.HTML,
		Text:           page.Text,
		Markdown:       page.Markdown,
		ContentHash:    page.Hash,
		ScrapingMethod: page.Method,
		ScrapedAt:      now,
		CreatedAt:      now,
	}
	if err := svc.store.InsertSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}
	return snap, nil
}

// logScrape records one attempt in the scrape log. Log failures are not
// allowed to fail collection.
func (svc *Service) logScrape(ctx context.Context, competitorID string, priority Priority, attemptErr error, duration time.Duration) {
	entry := &ScrapeLogEntry{
		ID:           svc.newID(),
		CompetitorID: competitorID,
		Priority:     string(priority),
		Status:       "ok",
		DurationMs:   duration.Milliseconds(),
		ScrapedAt:    svc.now().UnixMilli(),
	}
	if attemptErr != nil {
		entry.Status = "error"
		entry.ErrorMessage = attemptErr.Error()
	}
	if err := svc.store.InsertScrapeLog(ctx, entry); err != nil && !errors.Is(err, context.Canceled) {
		svc.logger.Warn("collect: scrape log write failed", "error", err)
	}
}
