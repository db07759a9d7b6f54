package concurrence

import (
	"context"
	"slices"
	"time"
)

// Strategy names the priority order and thresholds one collection run uses.
// Chosen by a rule table on competitor count; despite the "optimizer" name
// there is no learned model behind it.
type Strategy struct {
	Name             string        `json:"name"`
	Priorities       []Priority    `json:"priorities"`
	QualityThreshold int           `json:"quality_threshold"`
	Timeout          time.Duration `json:"timeout"`
}

// withFallbackTail completes a priority order: every chain ends with the
// cached-snapshot and metadata levels, so a competitor whose preferred
// sources all fail still resolves to whatever is on record.
func withFallbackTail(prefix ...Priority) []Priority {
	order := slices.Clone(prefix)
	for _, p := range []Priority{PriorityExistingSnapshot, PriorityBasicMetadata} {
		if !slices.Contains(order, p) {
			order = append(order, p)
		}
	}
	return order
}

// defaultStrategy is the hard fallback when the project cannot be inspected.
func defaultStrategy() *Strategy {
	return &Strategy{
		Name:             "default",
		Priorities:       withFallbackTail(),
		QualityThreshold: 50,
		Timeout:          15 * time.Second,
	}
}

// chooseStrategy is the rule table.
func chooseStrategy(competitorCount int, cfg *Config) *Strategy {
	switch {
	case competitorCount >= cfg.EfficiencyMinCompetitors:
		// Large projects: avoid hammering the scraper; cached data first.
		return &Strategy{
			Name: "efficiency_focused",
			Priorities: withFallbackTail(
				PriorityExistingSnapshot,
				PriorityFastCollection,
			),
			QualityThreshold: 70,
			Timeout:          30 * time.Second,
		}
	case competitorCount <= cfg.QualityMaxCompetitors:
		// Small projects: spend time on fresh scrapes.
		return &Strategy{
			Name: "quality_focused",
			Priorities: withFallbackTail(
				PriorityFreshSnapshots,
				PriorityFastCollection,
			),
			QualityThreshold: 50,
			Timeout:          30 * time.Second,
		}
	default:
		return &Strategy{
			Name: "balanced",
			Priorities: withFallbackTail(
				PriorityFreshSnapshots,
			),
			QualityThreshold: 50,
			Timeout:          30 * time.Second,
		}
	}
}

// strategyFor picks the strategy for an already-loaded project.
func (svc *Service) strategyFor(ctx context.Context, project *Project) *Strategy {
	count, err := svc.store.CountCompetitors(ctx, project.ID)
	if err != nil {
		svc.logger.Warn("strategy: competitor count failed, using default",
			"project_id", project.ID, "error", err)
		return defaultStrategy()
	}
	return chooseStrategy(count, svc.config)
}

// OptimizeStrategy picks the collection strategy for a project. It never
// fails its caller: any lookup problem degrades to the default strategy.
func (svc *Service) OptimizeStrategy(ctx context.Context, projectID string) *Strategy {
	project, err := svc.store.GetProject(ctx, projectID)
	if err != nil || project == nil {
		svc.logger.Warn("strategy: project lookup failed, using default",
			"project_id", projectID, "error", err)
		return defaultStrategy()
	}
	return svc.strategyFor(ctx, project)
}
