package config

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements ConfigProvider on top of a local SQLite file, for
// deployments that want pipeline parameters versioned alongside the
// catalogue database rather than in a YAML file on disk.
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider opens (creating if necessary) a SQLite-backed config store.
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	connStr := fmt.Sprintf("%s?_busy_timeout=10000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	p := &SQLiteProvider{db: db, dbPath: dbPath}
	if err := p.initializeSchemaIfNeeded(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize config schema: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return p, nil
}

func (s *SQLiteProvider) initializeSchemaIfNeeded() error {
	var name string
	err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='pipeline_config'").Scan(&name)
	if err == sql.ErrNoRows {
		return s.initializeSchema()
	} else if err != nil {
		return fmt.Errorf("checking for existing pipeline_config table: %w", err)
	}
	return nil
}

func (s *SQLiteProvider) initializeSchema() error {
	const schema = `
CREATE TABLE pipeline_config (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	obs_len_h INTEGER NOT NULL,
	step_h INTEGER NOT NULL,
	strict INTEGER NOT NULL,
	"table" TEXT NOT NULL,
	splits INTEGER NOT NULL,
	area_limit REAL NOT NULL,
	duplicate_mean_overlap_pct REAL NOT NULL,
	duplicate_co_occurrence_pct REAL NOT NULL,
	merge_co_occurrence_pct REAL NOT NULL,
	merge_mean_overlap_pct REAL NOT NULL,
	split_mean_overlap_pct REAL NOT NULL,
	split_co_occurrence_pct REAL NOT NULL,
	association_window_hours REAL NOT NULL,
	association_cadence_minutes REAL NOT NULL,
	flare_score_threshold REAL NOT NULL,
	worker_count INTEGER NOT NULL,
	driver TEXT NOT NULL DEFAULT 'sqlite',
	dsn TEXT NOT NULL DEFAULT '',
	log_level TEXT NOT NULL DEFAULT ''
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating pipeline_config table: %w", err)
	}

	d := DefaultPipelineParams()
	_, err := s.db.Exec(`
		INSERT INTO pipeline_config
		(id, obs_len_h, step_h, strict, "table", splits, area_limit,
		 duplicate_mean_overlap_pct, duplicate_co_occurrence_pct,
		 merge_co_occurrence_pct, merge_mean_overlap_pct,
		 split_mean_overlap_pct, split_co_occurrence_pct,
		 association_window_hours, association_cadence_minutes,
		 flare_score_threshold, worker_count, driver, dsn)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'sqlite', ?)`,
		d.ObsLenHours, d.StepHours, d.Strict, d.Table, d.Splits, d.AreaLimit,
		d.DuplicateMeanOverlapPct, d.DuplicateCoOccurrencePct,
		d.MergeCoOccurrencePct, d.MergeMeanOverlapPct,
		d.SplitMeanOverlapPct, d.SplitCoOccurrencePct,
		d.AssociationWindowHours, d.AssociationCadenceMinutes,
		d.FlareScoreThreshold, d.WorkerCount, s.dbPath,
	)
	if err != nil {
		return fmt.Errorf("seeding default pipeline_config row: %w", err)
	}
	return nil
}

func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	row := s.db.QueryRow(`
		SELECT obs_len_h, step_h, strict, "table", splits, area_limit,
		       duplicate_mean_overlap_pct, duplicate_co_occurrence_pct,
		       merge_co_occurrence_pct, merge_mean_overlap_pct,
		       split_mean_overlap_pct, split_co_occurrence_pct,
		       association_window_hours, association_cadence_minutes,
		       flare_score_threshold, worker_count, driver, dsn, log_level
		FROM pipeline_config WHERE id = 1`)

	var p PipelineParams
	var d DatabaseData
	err := row.Scan(
		&p.ObsLenHours, &p.StepHours, &p.Strict, &p.Table, &p.Splits, &p.AreaLimit,
		&p.DuplicateMeanOverlapPct, &p.DuplicateCoOccurrencePct,
		&p.MergeCoOccurrencePct, &p.MergeMeanOverlapPct,
		&p.SplitMeanOverlapPct, &p.SplitCoOccurrencePct,
		&p.AssociationWindowHours, &p.AssociationCadenceMinutes,
		&p.FlareScoreThreshold, &p.WorkerCount, &d.Driver, &d.DSN, &d.LogLevel,
	)
	if err != nil {
		return nil, fmt.Errorf("loading pipeline_config: %w", err)
	}

	return &ConfigData{Pipeline: p, Database: d}, nil
}

func (s *SQLiteProvider) GetPipelineParams() (*PipelineParams, error) {
	cfg, err := s.LoadConfig()
	if err != nil {
		return nil, err
	}
	p := cfg.Pipeline
	return &p, nil
}

func (s *SQLiteProvider) GetDatabaseConfig() (*DatabaseData, error) {
	cfg, err := s.LoadConfig()
	if err != nil {
		return nil, err
	}
	d := cfg.Database
	return &d, nil
}

func (s *SQLiteProvider) IsReadOnly() bool { return false }

func (s *SQLiteProvider) Close() error { return s.db.Close() }
