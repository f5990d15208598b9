package storage

import (
	"context"
	"fmt"
)

func (d Dialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS domains (
			id ` + d.idColumn + `,
			domain VARCHAR(255) NOT NULL UNIQUE,
			status SMALLINT NULL,
			perennial_source BOOLEAN NULL,
			frequent_domain_notification BOOLEAN NULL
		)`,
		`CREATE TABLE IF NOT EXISTS urls (
			id ` + d.idColumn + `,
			url TEXT NOT NULL,
			url_appeared_on TEXT NOT NULL,
			domain_id BIGINT NOT NULL REFERENCES domains (id),
			last_updated BIGINT NOT NULL,
			appeared_on_article_notification BOOLEAN NULL,
			UNIQUE (url, url_appeared_on)
		)`,
		`CREATE INDEX IF NOT EXISTS urls_last_updated_idx ON urls (last_updated)`,
		`CREATE INDEX IF NOT EXISTS urls_domain_article_idx ON urls (domain_id, url_appeared_on)`,
	}
}

// Migrate creates the domains and urls tables when they do not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range r.dialect.schema() {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
