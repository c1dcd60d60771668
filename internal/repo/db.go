// Package repo implements the local persistence layer, backed by GORM over
// pure-Go SQLite. This file contains database bootstrapping helpers and
// schema migrations; the catalog cache repository lives in catalog_repo.go.
package repo

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/neyyar-dairy/fieldsync/internal/domain"
)

// OpenSQLite opens (or creates) the on-device SQLite database and applies
// PRAGMAs. WAL mode keeps enqueue durable without serializing readers behind
// the flusher.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates the queue, dead-letter, and catalog cache tables on
// first run.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.QueueEntry{},
		&domain.DeadLetter{},
		&domain.Product{},
		&domain.Shop{},
	)
}
