package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// UpsertPage is the first phase of the two-phase page upsert (spec.md
// §4.6): it inserts the row with the given hash (typically empty, so
// links can reference the page id while it is still processing) or
// refreshes hash/crawl_time and clears any earlier error on conflict.
func (s *Store) UpsertPage(ctx context.Context, siteID int64, url, hash string, crawlTime time.Time) (Page, error) {
	var page Page
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO page (site_id, url, hash, crawl_time)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(site_id, url) DO UPDATE SET
				hash = excluded.hash,
				crawl_time = excluded.crawl_time,
				error = NULL
			RETURNING id
		`, siteID, url, hash, crawlTime)

		var id int64
		if err := row.Scan(&id); err != nil {
			return fmt.Errorf("upsert page: %w", err)
		}
		page = Page{ID: id, SiteID: siteID, URL: url, Hash: hash, CrawlTime: crawlTime}
		return nil
	})
	return page, err
}

// UpdatePageHash finalizes a page's content hash once processing
// completes successfully — the second phase of the two-phase upsert.
func (s *Store) UpdatePageHash(ctx context.Context, pageID int64, hash string, crawlTime time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE page SET hash = ?, crawl_time = ? WHERE id = ?
		`, hash, crawlTime, pageID)
		if err != nil {
			return fmt.Errorf("update page hash: %w", err)
		}
		return nil
	})
}

// UpdatePageError records a processing failure against a page row and
// backdates crawl_time by one second so the page falls below the stale
// threshold and is retried next run (spec.md §3, §4.6, §7).
func (s *Store) UpdatePageError(ctx context.Context, pageID int64, errMsg string, crawlTime time.Time) error {
	backdated := crawlTime.Add(-time.Second)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE page SET error = ?, crawl_time = ? WHERE id = ?
		`, errMsg, backdated, pageID)
		if err != nil {
			return fmt.Errorf("update page error: %w", err)
		}
		return nil
	})
}

// ListPagesForSite returns every page row for siteID, used to prime the
// engine's PageCache at run start.
func (s *Store) ListPagesForSite(ctx context.Context, siteID int64) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, site_id, url, hash, crawl_time, error FROM page WHERE site_id = ?
	`, siteID)
	if err != nil {
		return nil, fmt.Errorf("list pages for site: %w", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.ID, &p.SiteID, &p.URL, &p.Hash, &p.CrawlTime, &p.Error); err != nil {
			return nil, fmt.Errorf("scan page row: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// DeleteStalePages removes every page in siteID whose crawl_time is
// strictly older than beforeTime, returning the number of rows removed.
func (s *Store) DeleteStalePages(ctx context.Context, siteID int64, beforeTime time.Time) (int64, error) {
	var count int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM page WHERE site_id = ? AND crawl_time < ?
		`, siteID, beforeTime)
		if err != nil {
			return fmt.Errorf("delete stale pages: %w", err)
		}
		count, err = res.RowsAffected()
		return err
	})
	return count, err
}
