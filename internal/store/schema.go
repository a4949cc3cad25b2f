package store

// schemaStatements creates the site/page/link tables and the
// (site_id, score) link index, matching the logical schema in spec.md §6.
// CREATE TABLE IF NOT EXISTS makes schema creation idempotent on every
// startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS site (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		crawl_time TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS page (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site_id INTEGER NOT NULL,
		url TEXT NOT NULL,
		hash TEXT NOT NULL,
		crawl_time TIMESTAMP NOT NULL,
		error TEXT,
		UNIQUE(site_id, url),
		FOREIGN KEY (site_id) REFERENCES site(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS link (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site_id INTEGER NOT NULL,
		page_id INTEGER NOT NULL,
		url TEXT NOT NULL,
		text TEXT NOT NULL,
		score REAL NOT NULL,
		keywords TEXT NOT NULL,
		crawl_time TIMESTAMP NOT NULL,
		UNIQUE(site_id, page_id, url),
		FOREIGN KEY (site_id) REFERENCES site(id) ON DELETE CASCADE,
		FOREIGN KEY (page_id) REFERENCES page(id) ON DELETE CASCADE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_link_site_score ON link (site_id, score);`,
}
