// Package store is the gorm-backed persistence layer: connection setup for
// either a pure-Go SQLite file or a Postgres/TimescaleDB instance, schema
// migration, and the query methods the matcher, resolver, slicer, and split
// stages use to read and write catalogue tables.
package store

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"go.uber.org/zap"

	"github.com/jhc00/cmesrc/internal/log"
	"github.com/jhc00/cmesrc/internal/types"
	"github.com/jhc00/cmesrc/pkg/config"

	_ "modernc.org/sqlite"
)

// Store wraps a gorm connection to either backend named in §6.
type Store struct {
	DB     *gorm.DB
	logger *zap.SugaredLogger
}

// Open connects to the backend described by cfg.Database, using a
// gorm-with-zap-logger setup for Postgres and the pure-Go modernc.org
// driver for SQLite.
func Open(cfg *config.DatabaseData) (*Store, error) {
	dbLogger := gormlogger.New(
		zap.NewStdLog(log.GetZapLogger()),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logLevelFromString(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gcfg := &gorm.Config{Logger: dbLogger}

	var (
		db  *gorm.DB
		err error
	)

	switch cfg.Driver {
	case "postgres":
		log.Info("connecting to Postgres/TimescaleDB catalogue store...")
		db, err = gorm.Open(postgres.Open(cfg.DSN), gcfg)
	case "sqlite", "":
		log.Infof("connecting to SQLite catalogue store at %s...", cfg.DSN)
		// DriverName:"sqlite" routes gorm's sqlite dialector through the
		// database/sql driver modernc.org/sqlite registers under that name,
		// avoiding the cgo-based mattn/go-sqlite3 driver the dialector
		// otherwise defaults to.
		db, err = gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", DSN: cfg.DSN}, gcfg)
	default:
		return nil, fmt.Errorf("store: unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("store: connecting to %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: obtaining pooled connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Store{DB: db, logger: log.GetSugaredLogger()}, nil
}

func logLevelFromString(s string) gormlogger.LogLevel {
	switch s {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// Migrate creates every table named in the external-interfaces section,
// idempotently.
func (s *Store) Migrate() error {
	return s.DB.AutoMigrate(
		&types.Region{},
		&types.NOAAMapping{},
		&types.RawBBoxSample{},
		&types.ProcessedBBoxSample{},
		&types.CME{},
		&types.Dimming{},
		&types.Flare{},
		&types.SpatiallyConsistent{},
		&types.MatchedEvent{},
		&types.Association{},
		&types.Overlap{},
		&types.OverlapRecord{},
		&types.Slice{},
		&types.RejectedSlice{},
		&types.SplitAssignment{},
	)
}

// Truncate clears a stage's output tables ahead of re-execution (§5: "the
// pipeline tolerates re-execution: every stage truncates its output tables
// before writing").
func (s *Store) Truncate(models ...any) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		for _, m := range models {
			if err := tx.Where("1 = 1").Delete(m).Error; err != nil {
				return fmt.Errorf("store: truncating %T: %w", m, err)
			}
		}
		return nil
	})
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
