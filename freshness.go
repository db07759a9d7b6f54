package concurrence

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/concurrence/internal/store"
)

// freshnessPercent maps a snapshot's age onto [0,100]: 100 at age zero,
// decaying linearly to 0 at the threshold and beyond.
func freshnessPercent(age, threshold time.Duration) float64 {
	if age <= 0 {
		return 100
	}
	if age >= threshold {
		return 0
	}
	return 100 * (1 - float64(age)/float64(threshold))
}

// classifyFreshness applies the fixed boundaries: >80 FRESH, 40–80 STALE,
// <40 EXPIRED.
func classifyFreshness(percent float64) FreshnessLevel {
	switch {
	case percent > 80:
		return FreshnessFresh
	case percent >= 40:
		return FreshnessStale
	default:
		return FreshnessExpired
	}
}

// snapshotAge is the wall-clock delta from now to the snapshot's creation.
func (svc *Service) snapshotAge(snap *Snapshot, now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(snap.CreatedAt))
}

// aggregateFreshness averages the product's freshness percentage with the
// mean competitor freshness percentage. Sides without a snapshot are left
// out of the average; no snapshots at all verdicts EXPIRED.
func (svc *Service) aggregateFreshness(product *ProductCollectionResult, competitors []*CollectionResult, now time.Time) DataFreshness {
	threshold := svc.config.FreshnessThreshold

	var parts []float64
	if product != nil && product.Snapshot != nil {
		parts = append(parts, freshnessPercent(svc.snapshotAge(product.Snapshot, now), threshold))
	}

	var compSum float64
	var compN int
	for _, c := range competitors {
		if c.Snapshot == nil {
			continue
		}
		compSum += freshnessPercent(svc.snapshotAge(c.Snapshot, now), threshold)
		compN++
	}
	if compN > 0 {
		parts = append(parts, compSum/float64(compN))
	}

	var score float64
	for _, p := range parts {
		score += p
	}
	if len(parts) > 0 {
		score /= float64(len(parts))
	}

	status := classifyFreshness(score)
	return DataFreshness{
		Status:             status,
		Score:              score,
		RefreshRecommended: status != FreshnessFresh,
	}
}

// CheckDataFreshness re-derives freshness from stored snapshots without
// collecting anything: up to ProductHistoryLimit recent product snapshots
// and CompetitorHistoryLimit recent competitor snapshots are compared
// against the threshold. Idempotent absent intervening writes.
func (svc *Service) CheckDataFreshness(ctx context.Context, projectID string) (*FreshnessStatus, error) {
	project, err := svc.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", projectID, err)
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}

	now := svc.now()
	threshold := svc.config.FreshnessThreshold
	status := &FreshnessStatus{
		ProjectID: projectID,
		CheckedAt: now,
		NextCheck: now.Add(threshold),
	}

	stale := func(snap *store.Snapshot) bool {
		return now.Sub(time.UnixMilli(snap.CreatedAt)) >= threshold
	}

	if project.ProductID != "" {
		snaps, err := svc.store.RecentSnapshots(ctx, []string{project.ProductID}, svc.config.ProductHistoryLimit)
		if err != nil {
			return nil, fmt.Errorf("product snapshots: %w", err)
		}
		for _, snap := range snaps {
			if stale(snap) {
				status.ProductStale++
			} else {
				status.ProductFresh++
			}
		}
	}

	competitors, err := svc.store.ListCompetitors(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list competitors: %w", err)
	}
	if len(competitors) > 0 {
		ids := make([]string, len(competitors))
		for i, c := range competitors {
			ids[i] = c.ID
		}
		snaps, err := svc.store.RecentSnapshots(ctx, ids, svc.config.CompetitorHistoryLimit)
		if err != nil {
			return nil, fmt.Errorf("competitor snapshots: %w", err)
		}
		for _, snap := range snaps {
			if stale(snap) {
				status.CompetitorStale++
			} else {
				status.CompetitorFresh++
			}
		}
	}

	total := status.ProductFresh + status.ProductStale + status.CompetitorFresh + status.CompetitorStale
	staleCount := status.ProductStale + status.CompetitorStale
	status.RefreshRecommended = total == 0 || staleCount > 0
	return status, nil
}
