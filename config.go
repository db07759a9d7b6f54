package concurrence

import (
	"time"

	"github.com/hazyhaar/concurrence/internal/scrape"
)

// Config configures the collection engine. The zero value is usable; every
// threshold and weight the engine applies lives here rather than in package
// constants so tests and deployments can vary them.
type Config struct {
	// Scrape settings for the web-scraping collaborator.
	Scrape scrape.Config `yaml:"scrape"`

	// Quality scoring thresholds and defaults.
	Quality QualityConfig `yaml:"quality"`

	// Completeness aggregation weights.
	Completeness CompletenessConfig `yaml:"completeness"`

	// FreshnessThreshold is the age at which a snapshot counts as stale.
	// Default: 24h.
	FreshnessThreshold time.Duration `yaml:"freshness_threshold"`

	// FastTimeout bounds fast-collection scrape attempts. Default: 10s.
	FastTimeout time.Duration `yaml:"fast_timeout"`

	// Strategy rule-table boundaries.
	EfficiencyMinCompetitors int `yaml:"efficiency_min_competitors"` // default: 11 (">10")
	QualityMaxCompetitors    int `yaml:"quality_max_competitors"`    // default: 2 ("<3")

	// Freshness history windows for CheckDataFreshness.
	ProductHistoryLimit    int `yaml:"product_history_limit"`    // default: 10
	CompetitorHistoryLimit int `yaml:"competitor_history_limit"` // default: 50
}

// QualityConfig holds the content-quality thresholds and score defaults.
// Accuracy, freshness, and consistency have no independent oracle in the
// collected data, so they are caller-tunable constants, not measurements.
type QualityConfig struct {
	HTMLThreshold int     `yaml:"html_threshold"` // completeness +40 above this. Default: 1000.
	TextThreshold int     `yaml:"text_threshold"` // completeness +30 above this. Default: 500.
	Accuracy      float64 `yaml:"accuracy"`       // default: 85
	Freshness     float64 `yaml:"freshness"`      // default: 90
	Consistency   float64 `yaml:"consistency"`    // default: 80
}

// CompletenessConfig holds the dataset-completeness aggregation weights.
type CompletenessConfig struct {
	ProductWeight          float64 `yaml:"product_weight"`           // default: 40
	ProductQualityBonus    float64 `yaml:"product_quality_bonus"`    // default: 10
	CompetitorWeight       float64 `yaml:"competitor_weight"`        // default: 60
	CompetitorQualityBonus float64 `yaml:"competitor_quality_bonus"` // default: 5
}

func (c *Config) defaults() {
	if c.Scrape.Timeout <= 0 {
		c.Scrape.Timeout = 30 * time.Second
	}
	if c.Scrape.URLValidator == nil {
		c.Scrape.URLValidator = scrape.ValidateURL
	}
	if c.Quality.HTMLThreshold <= 0 {
		c.Quality.HTMLThreshold = 1000
	}
	if c.Quality.TextThreshold <= 0 {
		c.Quality.TextThreshold = 500
	}
	if c.Quality.Accuracy <= 0 {
		c.Quality.Accuracy = 85
	}
	if c.Quality.Freshness <= 0 {
		c.Quality.Freshness = 90
	}
	if c.Quality.Consistency <= 0 {
		c.Quality.Consistency = 80
	}
	if c.Completeness.ProductWeight <= 0 {
		c.Completeness.ProductWeight = 40
	}
	if c.Completeness.ProductQualityBonus <= 0 {
		c.Completeness.ProductQualityBonus = 10
	}
	if c.Completeness.CompetitorWeight <= 0 {
		c.Completeness.CompetitorWeight = 60
	}
	if c.Completeness.CompetitorQualityBonus <= 0 {
		c.Completeness.CompetitorQualityBonus = 5
	}
	if c.FreshnessThreshold <= 0 {
		c.FreshnessThreshold = 24 * time.Hour
	}
	if c.FastTimeout <= 0 {
		c.FastTimeout = 10 * time.Second
	}
	if c.EfficiencyMinCompetitors <= 0 {
		c.EfficiencyMinCompetitors = 11
	}
	if c.QualityMaxCompetitors <= 0 {
		c.QualityMaxCompetitors = 2
	}
	if c.ProductHistoryLimit <= 0 {
		c.ProductHistoryLimit = 10
	}
	if c.CompetitorHistoryLimit <= 0 {
		c.CompetitorHistoryLimit = 50
	}
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.defaults()
	return cfg
}
