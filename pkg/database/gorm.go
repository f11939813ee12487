package database

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type GormConfig struct {
	Driver string
	DSN    string
	// Quiet lowers SQL logging to warnings only
	Quiet bool
	// LogWriter receives SQL logs; nil means stdout.
	LogWriter io.Writer
}

func getLogger(quiet bool, w io.Writer) logger.Interface {
	if w == nil {
		w = os.Stdout
	}
	level := logger.Info
	if quiet {
		level = logger.Warn
	}
	return logger.New(
		log.New(w, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  !quiet,
		},
	)
}

func configureConnectionPool(db *gorm.DB, maxOpen int) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(min(10, maxOpen))
	sqlDB.SetConnMaxLifetime(time.Hour)
	return nil
}

// NewGormDB opens the configured driver. SQLite runs with a single connection
// so in-memory databases are shared and writes are serialized.
func NewGormDB(cfg GormConfig) (*gorm.DB, error) {
	var (
		dialector gorm.Dialector
		maxOpen   = 100
	)
	switch strings.ToLower(cfg.Driver) {
	case "", DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres requires a connection string")
		}
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "file::memory:"
		}
		dialector = sqlite.Open(dsn)
		maxOpen = 1
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: getLogger(cfg.Quiet, cfg.LogWriter),
	})
	if err != nil {
		return nil, err
	}

	if err := configureConnectionPool(db, maxOpen); err != nil {
		return nil, err
	}

	return db, nil
}
