// Package config provides configuration management for the cmesrc pipeline,
// with support for multiple data sources and caching.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ConfigProvider defines the interface for pipeline configuration sources.
type ConfigProvider interface {
	// LoadConfig loads the complete pipeline configuration.
	LoadConfig() (*ConfigData, error)

	// GetPipelineParams returns just the pipeline parameters section.
	GetPipelineParams() (*PipelineParams, error)

	// GetDatabaseConfig returns the persistence backend configuration.
	GetDatabaseConfig() (*DatabaseData, error)

	IsReadOnly() bool
	Close() error
}

// PipelineParams holds the parameters that drive the window slicer (§4.F)
// and the split partitioner (§4.G).
type PipelineParams struct {
	// ObsLenHours is the observation window length, a multiple of 1h. Default 24.
	ObsLenHours int `yaml:"obs_len_h"`
	// StepHours is the sliding-window cadence, a multiple of 1h. Default 1.
	StepHours int `yaml:"step_h"`
	// Strict enables the unclear_cme_present rejection rule. Default true.
	Strict bool `yaml:"strict"`
	// Table selects the on-disk region population, e.g. "PROCESSED_HARPS_BBOX"
	// or a |lon|<=70 restricted view.
	Table string `yaml:"table"`
	// Splits is the target number of stratified splits K for the partitioner.
	Splits int `yaml:"splits"`

	// AreaLimit excludes regions with mean area >= this percentage (§3). Default 18.
	AreaLimit float64 `yaml:"area_limit"`
	// DuplicateMeanOverlapPct and DuplicateCoOccurrencePct gate §4.B.6 "bad overlap".
	DuplicateMeanOverlapPct  float64 `yaml:"duplicate_mean_overlap_pct"`
	DuplicateCoOccurrencePct float64 `yaml:"duplicate_co_occurrence_pct"`
	MergeCoOccurrencePct     float64 `yaml:"merge_co_occurrence_pct"`
	MergeMeanOverlapPct      float64 `yaml:"merge_mean_overlap_pct"`
	// SplitMeanOverlapPct and SplitCoOccurrencePct gate the relaxed §4.G grouping edge.
	SplitMeanOverlapPct  float64 `yaml:"split_mean_overlap_pct"`
	SplitCoOccurrencePct float64 `yaml:"split_co_occurrence_pct"`

	// AssociationWindowHours and AssociationCadenceMinutes bound §4.E event pairing.
	AssociationWindowHours    float64 `yaml:"association_window_hours"`
	AssociationCadenceMinutes float64 `yaml:"association_cadence_minutes"`
	// FlareScoreThreshold is the tier split point in §4.E's table (score > 25).
	FlareScoreThreshold float64 `yaml:"flare_score_threshold"`

	// WorkerCount sizes the per-region worker pool used by stages B and F.
	WorkerCount int `yaml:"worker_count"`
}

// DefaultPipelineParams returns the values spec.md documents as defaults.
func DefaultPipelineParams() PipelineParams {
	return PipelineParams{
		ObsLenHours:               24,
		StepHours:                 1,
		Strict:                    true,
		Table:                     "PROCESSED_HARPS_BBOX",
		Splits:                    10,
		AreaLimit:                 18,
		DuplicateMeanOverlapPct:   50,
		DuplicateCoOccurrencePct:  50,
		MergeCoOccurrencePct:      70,
		MergeMeanOverlapPct:       90,
		SplitMeanOverlapPct:       5,
		SplitCoOccurrencePct:      5,
		AssociationWindowHours:    3,
		AssociationCadenceMinutes: 12,
		FlareScoreThreshold:       25,
		WorkerCount:               4,
	}
}

// DatabaseData describes the persistence backend (§6).
type DatabaseData struct {
	Driver   string `yaml:"driver"` // "sqlite" or "postgres"
	DSN      string `yaml:"dsn"`
	LogLevel string `yaml:"log_level"`
}

// ConfigData is the full pipeline configuration document.
type ConfigData struct {
	Pipeline   PipelineParams `yaml:"pipeline"`
	Database   DatabaseData   `yaml:"database"`
	Catalogues CatalogueData  `yaml:"catalogues"`
}

// CatalogueData locates the raw input catalogues described in spec.md §6.
type CatalogueData struct {
	RegionTimeseriesDir string `yaml:"region_timeseries_dir"`
	CMECataloguePath    string `yaml:"cme_catalogue_path"`
	DimmingCSVPath      string `yaml:"dimming_csv_path"`
	FlareCSVPath        string `yaml:"flare_csv_path"`
	HarpnumToNOAAPath   string `yaml:"harpnum_to_noaa_path"`
	// FlareSource chooses between the two flare sources the original system
	// models: an external CSV catalogue or per-region embedded flare labels.
	FlareSource string `yaml:"flare_source"` // "csv" or "embedded"
}

// CachedConfigProvider wraps any ConfigProvider with a TTL cache.
type CachedConfigProvider struct {
	provider    ConfigProvider
	cache       *ConfigData
	cacheMutex  sync.RWMutex
	lastLoaded  time.Time
	cacheExpiry time.Duration
}

// NewCachedProvider creates a new cached config provider wrapper.
func NewCachedProvider(provider ConfigProvider, cacheExpiry time.Duration) *CachedConfigProvider {
	if cacheExpiry == 0 {
		cacheExpiry = 30 * time.Second
	}

	return &CachedConfigProvider{
		provider:    provider,
		cacheExpiry: cacheExpiry,
	}
}

// LoadConfig loads configuration with caching.
func (c *CachedConfigProvider) LoadConfig() (*ConfigData, error) {
	c.cacheMutex.RLock()
	if c.cache != nil && time.Since(c.lastLoaded) < c.cacheExpiry {
		defer c.cacheMutex.RUnlock()
		return c.cache, nil
	}
	c.cacheMutex.RUnlock()

	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	if c.cache != nil && time.Since(c.lastLoaded) < c.cacheExpiry {
		return c.cache, nil
	}

	cfg, err := c.provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if errs := ValidateConfig(cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
	}

	c.cache = cfg
	c.lastLoaded = time.Now()
	return cfg, nil
}

// GetPipelineParams returns cached pipeline parameters.
func (c *CachedConfigProvider) GetPipelineParams() (*PipelineParams, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return nil, err
	}
	p := cfg.Pipeline
	return &p, nil
}

// GetDatabaseConfig returns cached database configuration.
func (c *CachedConfigProvider) GetDatabaseConfig() (*DatabaseData, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return nil, err
	}
	d := cfg.Database
	return &d, nil
}

func (c *CachedConfigProvider) IsReadOnly() bool { return c.provider.IsReadOnly() }

func (c *CachedConfigProvider) Close() error { return c.provider.Close() }

// Invalidate forces the next LoadConfig call to reload from the underlying provider.
func (c *CachedConfigProvider) Invalidate() {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	c.cache = nil
}

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks the invariants spec.md §6 places on pipeline params.
func ValidateConfig(cfg *ConfigData) []ValidationError {
	var errs []ValidationError

	if cfg.Pipeline.ObsLenHours <= 0 {
		errs = append(errs, ValidationError{"pipeline.obs_len_h", "must be a positive multiple of 1 hour"})
	}
	if cfg.Pipeline.StepHours <= 0 {
		errs = append(errs, ValidationError{"pipeline.step_h", "must be a positive multiple of 1 hour"})
	}
	if cfg.Pipeline.Splits <= 0 {
		errs = append(errs, ValidationError{"pipeline.splits", "must be positive"})
	}
	if cfg.Pipeline.AreaLimit <= 0 || cfg.Pipeline.AreaLimit > 100 {
		errs = append(errs, ValidationError{"pipeline.area_limit", "must be in (0,100]"})
	}
	if cfg.Database.Driver != "sqlite" && cfg.Database.Driver != "postgres" {
		errs = append(errs, ValidationError{"database.driver", "must be 'sqlite' or 'postgres'"})
	}
	if cfg.Catalogues.FlareSource != "" && cfg.Catalogues.FlareSource != "csv" && cfg.Catalogues.FlareSource != "embedded" {
		errs = append(errs, ValidationError{"catalogues.flare_source", "must be 'csv' or 'embedded'"})
	}

	return errs
}
