package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// UpsertLink inserts a scored link row, or on conflict with an existing
// (site, page, url) row updates its score, keyword string, and crawl_time.
func (s *Store) UpsertLink(ctx context.Context, siteID, pageID int64, url, text string, score float64, keywords string, crawlTime time.Time) (Link, error) {
	var link Link
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO link (site_id, page_id, url, text, score, keywords, crawl_time)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(site_id, page_id, url) DO UPDATE SET
				score = excluded.score,
				keywords = excluded.keywords,
				crawl_time = excluded.crawl_time
			RETURNING id
		`, siteID, pageID, url, text, score, keywords, crawlTime)

		var id int64
		if err := row.Scan(&id); err != nil {
			return fmt.Errorf("upsert link: %w", err)
		}
		link = Link{
			ID: id, SiteID: siteID, PageID: pageID, URL: url, Text: text,
			Score: score, Keywords: keywords, CrawlTime: crawlTime,
		}
		return nil
	})
	return link, err
}

// ListLinksForSite returns every link row for siteID ordered by
// descending score.
func (s *Store) ListLinksForSite(ctx context.Context, siteID int64) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, site_id, page_id, url, text, score, keywords, crawl_time
		FROM link WHERE site_id = ? ORDER BY score DESC
	`, siteID)
	if err != nil {
		return nil, fmt.Errorf("list links for site: %w", err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.ID, &l.SiteID, &l.PageID, &l.URL, &l.Text, &l.Score, &l.Keywords, &l.CrawlTime); err != nil {
			return nil, fmt.Errorf("scan link row: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// DeleteStaleLinks removes every link in siteID whose crawl_time is
// strictly older than beforeTime, returning the number of rows removed.
func (s *Store) DeleteStaleLinks(ctx context.Context, siteID int64, beforeTime time.Time) (int64, error) {
	var count int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM link WHERE site_id = ? AND crawl_time < ?
		`, siteID, beforeTime)
		if err != nil {
			return fmt.Errorf("delete stale links: %w", err)
		}
		count, err = res.RowsAffected()
		return err
	})
	return count, err
}
