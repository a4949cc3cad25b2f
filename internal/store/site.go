package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// UpsertSite inserts the site row keyed by url or refreshes its
// crawl_time if it already exists, returning the surrogate id.
func (s *Store) UpsertSite(ctx context.Context, url string, crawlTime time.Time) (Site, error) {
	var site Site
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO site (url, crawl_time)
			VALUES (?, ?)
			ON CONFLICT(url) DO UPDATE SET crawl_time = excluded.crawl_time
			RETURNING id
		`, url, crawlTime)

		var id int64
		if err := row.Scan(&id); err != nil {
			return fmt.Errorf("upsert site: %w", err)
		}
		site = Site{ID: id, URL: url, CrawlTime: crawlTime}
		return nil
	})
	return site, err
}
