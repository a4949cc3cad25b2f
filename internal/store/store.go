// Package store persists sites, pages, and links to a SQLite database and
// reaps stale rows between runs, per spec.md §4.6 and §6.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Site is the identity of a domain-scoped crawl root.
type Site struct {
	ID        int64
	URL       string
	CrawlTime time.Time
}

// Page is one URL within a site. Hash is the empty string sentinel until
// UpdatePageHash finalizes it; Error is non-nil only for a failed page.
type Page struct {
	ID        int64
	SiteID    int64
	URL       string
	Hash      string
	CrawlTime time.Time
	Error     *string
}

// Link is a scored outbound link discovered on one page.
type Link struct {
	ID        int64
	SiteID    int64
	PageID    int64
	URL       string
	Text      string
	Score     float64
	Keywords  string
	CrawlTime time.Time
}

// Store wraps a SQLite connection pool and provides the crawler's
// persistence operations, each scoped to its own transaction.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// creates the schema if it does not already exist.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) createSchema() error {
	return s.withTx(context.Background(), func(tx *sql.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
		}
		return nil
	})
}

// withTx begins a transaction, runs f, and commits on a nil return or
// rolls back otherwise — the scoped-transaction lifecycle required by
// spec.md §4.6: "acquired on entry, committed on clean exit, rolled back
// if the scope exits with a failure."
func (s *Store) withTx(ctx context.Context, f func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
