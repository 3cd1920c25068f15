package store

import (
	"context"
	"database/sql"
	"net/url"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Open opens the SQLite database at path and runs migrations.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", formatDSN(path))
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("path", path).Msg("Database opened and migrated")
	return db, nil
}

func formatDSN(path string) string {
	// Pragmas for better performance and safety
	// See: https://pkg.go.dev/modernc.org/sqlite#pkg-overview
	params := url.Values{}
	params.Set("cache", "shared")
	params.Set("mode", "rwc")
	params.Set("_time_format", "sqlite")
	params.Set("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Set("_busy_timeout", "5000")

	return "file:" + path + "?" + params.Encode()
}

func migrate(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS domains (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		host TEXT NOT NULL,
		protocol TEXT NOT NULL DEFAULT 'https',
		is_active BOOLEAN NOT NULL DEFAULT 1,
		is_admin_panel_available BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		UNIQUE(protocol, host)
	);

	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		original_url TEXT NOT NULL,
		short_path TEXT NOT NULL UNIQUE,
		slug TEXT,
		password TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		available_at TIMESTAMP,
		unavailable_at TIMESTAMP,
		forward_query_parameters BOOLEAN NOT NULL DEFAULT 0,
		send_ref_query_parameter BOOLEAN NOT NULL DEFAULT 0,
		description TEXT,
		visit_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS link_domain (
		link_id INTEGER NOT NULL REFERENCES links(id) ON DELETE CASCADE,
		domain_id INTEGER NOT NULL REFERENCES domains(id),
		PRIMARY KEY (link_id, domain_id)
	);

	CREATE TABLE IF NOT EXISTS link_visits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		link_id INTEGER NOT NULL REFERENCES links(id) ON DELETE CASCADE,
		domain_id INTEGER NOT NULL,
		country TEXT,
		browser TEXT,
		platform TEXT,
		ip TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_links_short_path ON links(short_path);
	CREATE INDEX IF NOT EXISTS idx_link_domain_domain_id ON link_domain(domain_id);
	CREATE INDEX IF NOT EXISTS idx_link_visits_link_id ON link_visits(link_id);
	`

	_, err := db.ExecContext(ctx, schema)
	return err
}
