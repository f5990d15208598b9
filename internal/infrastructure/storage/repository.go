package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"CitationWatch/internal/domain"
	"CitationWatch/internal/ports"
)

// Repository persists domains and citations in a relational database.
type Repository struct {
	db      *sql.DB
	dialect Dialect
}

var (
	_ ports.FactStore            = (*Repository)(nil)
	_ ports.CitationWriter       = (*Repository)(nil)
	_ ports.ClassificationWriter = (*Repository)(nil)
)

// NewRepository wires a sql.DB opened for the given dialect.
func NewRepository(db *sql.DB, dialect Dialect) *Repository {
	return &Repository{db: db, dialect: dialect}
}

// Open acquires a database handle for one run. Callers must Close it.
func Open(ctx context.Context, driver, dsn string) (*Repository, error) {
	dialect, err := DialectByName(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if dialect.Name == SQLite.Name {
		// a single connection keeps in-memory databases and write locks consistent
		db.SetMaxOpenConns(1)
	} else {
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}
	return NewRepository(db, dialect), nil
}

// Close releases the underlying handle.
func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// LatestBatch returns the most recent last_updated value, or domain.ErrNoBatch.
func (r *Repository) LatestBatch(ctx context.Context) (domain.Batch, error) {
	query, args, err := r.dialect.builder().Select("MAX(last_updated)").From("urls").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build latest batch: %w", err)
	}

	var latest sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&latest); err != nil {
		return 0, fmt.Errorf("query latest batch: %w", err)
	}
	if !latest.Valid {
		return 0, domain.ErrNoBatch
	}
	return domain.Batch(latest.Int64), nil
}

// CountArticles counts distinct citing articles in batch.
func (r *Repository) CountArticles(ctx context.Context, batch domain.Batch) (int64, error) {
	return r.scalar(ctx, r.dialect.builder().
		Select("COUNT(DISTINCT url_appeared_on)").
		From("urls").
		Where(sq.Eq{"last_updated": int64(batch)}))
}

// CountDomains counts distinct cited domains in batch.
func (r *Repository) CountDomains(ctx context.Context, batch domain.Batch) (int64, error) {
	return r.scalar(ctx, r.dialect.builder().
		Select("COUNT(DISTINCT d.domain)").
		From("urls u").
		Join("domains d ON u.domain_id = d.id").
		Where(sq.Eq{"u.last_updated": int64(batch)}))
}

// CountTiers buckets the citations of batch by the tier of their domain.
func (r *Repository) CountTiers(ctx context.Context, batch domain.Batch) (domain.TierCounts, error) {
	reliable := inList(domain.StatusValues(domain.ReliableStatuses))
	flagged := inList(domain.StatusValues(domain.FlaggedStatuses))

	query, args, err := r.dialect.builder().
		Select(
			"COUNT(*)",
			"COALESCE(SUM(CASE WHEN d.status IN "+reliable+" THEN 1 ELSE 0 END), 0)",
			"COALESCE(SUM(CASE WHEN d.status IN "+flagged+" THEN 1 ELSE 0 END), 0)",
			"COALESCE(SUM(CASE WHEN d.id IS NOT NULL AND d.status IS NULL THEN 1 ELSE 0 END), 0)",
		).
		From("urls u").
		LeftJoin("domains d ON u.domain_id = d.id").
		Where(sq.Eq{"u.last_updated": int64(batch)}).
		ToSql()
	if err != nil {
		return domain.TierCounts{}, fmt.Errorf("build tier counts: %w", err)
	}

	var tiers domain.TierCounts
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&tiers.Total, &tiers.Reliable, &tiers.Flagged, &tiers.Unknown); err != nil {
		return domain.TierCounts{}, fmt.Errorf("query tier counts: %w", err)
	}
	return tiers, nil
}

func (r *Repository) frequentQuery(batch domain.Batch, threshold int, withArticles, unnotifiedOnly bool) sq.SelectBuilder {
	columns := []string{"d.id", "d.domain", "COUNT(u.id) AS url_count"}
	if withArticles {
		columns = append(columns, r.dialect.aggregate("u.url_appeared_on"))
	}

	where := sq.And{
		sq.Expr("d.status IS NULL"),
		sq.Eq{"u.last_updated": int64(batch)},
	}
	if unnotifiedOnly {
		where = append(where, sq.Or{
			sq.Expr("d.frequent_domain_notification IS NULL"),
			sq.Expr("d.frequent_domain_notification = FALSE"),
		})
	}

	return r.dialect.builder().
		Select(columns...).
		From("urls u").
		Join("domains d ON u.domain_id = d.id").
		Where(where).
		GroupBy("d.id", "d.domain").
		Having("COUNT(u.id) >= ?", threshold).
		OrderBy("url_count DESC", "d.domain ASC")
}

// FrequentDomains lists unclassified domains cited at least threshold times in batch,
// with the articles citing them.
func (r *Repository) FrequentDomains(ctx context.Context, batch domain.Batch, threshold int) ([]domain.FrequentDomain, error) {
	return r.queryFrequent(ctx, r.frequentQuery(batch, threshold, true, false), true)
}

// FrequentDomainAlerts is FrequentDomains restricted to domains not announced yet.
func (r *Repository) FrequentDomainAlerts(ctx context.Context, batch domain.Batch, threshold int) ([]domain.FrequentDomain, error) {
	return r.queryFrequent(ctx, r.frequentQuery(batch, threshold, false, true), false)
}

func (r *Repository) queryFrequent(ctx context.Context, builder sq.SelectBuilder, withArticles bool) ([]domain.FrequentDomain, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build frequent domains: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query frequent domains: %w", err)
	}

	var result []domain.FrequentDomain
	for rows.Next() {
		var fd domain.FrequentDomain
		dest := []any{&fd.DomainID, &fd.Domain, &fd.Count}
		var articles sql.NullString
		if withArticles {
			dest = append(dest, &articles)
		}
		if err := rows.Scan(dest...); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan frequent domain: %w", err)
		}
		fd.ArticleURLs = articles.String
		result = append(result, fd)
	}

	return result, closeRows(rows)
}

// FlaggedDomains lists flagged-tier domains cited in batch, ordered by domain name.
func (r *Repository) FlaggedDomains(ctx context.Context, batch domain.Batch) ([]domain.FlaggedDomain, error) {
	query, args, err := r.dialect.builder().
		Select("d.domain", "d.status", r.dialect.aggregate("u.url_appeared_on")).
		From("urls u").
		Join("domains d ON u.domain_id = d.id").
		Where(sq.Eq{
			"d.status":       domain.StatusValues(domain.FlaggedStatuses),
			"u.last_updated": int64(batch),
		}).
		GroupBy("d.domain", "d.status").
		OrderBy("d.domain ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build flagged domains: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query flagged domains: %w", err)
	}

	var result []domain.FlaggedDomain
	for rows.Next() {
		var (
			fd       domain.FlaggedDomain
			status   int
			articles sql.NullString
		)
		if err := rows.Scan(&fd.Domain, &status, &articles); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan flagged domain: %w", err)
		}
		fd.Status = domain.Status(status)
		fd.ArticleURLs = articles.String
		result = append(result, fd)
	}

	return result, closeRows(rows)
}

// FlaggedCitationAlerts lists (domain, article) pairs of flagged-tier domains in batch
// that were never announced.
func (r *Repository) FlaggedCitationAlerts(ctx context.Context, batch domain.Batch) ([]domain.FlaggedCitation, error) {
	notified := r.dialect.builder().
		Select("1").
		From("urls n").
		Where("n.domain_id = u.domain_id").
		Where("n.url_appeared_on = u.url_appeared_on").
		Where("n.appeared_on_article_notification = TRUE").
		Prefix("NOT EXISTS (").
		Suffix(")")

	query, args, err := r.dialect.builder().
		Select("d.id", "d.domain", "d.status", "u.url_appeared_on").
		Distinct().
		From("urls u").
		Join("domains d ON u.domain_id = d.id").
		Where(sq.Eq{
			"d.status":       domain.StatusValues(domain.FlaggedStatuses),
			"u.last_updated": int64(batch),
		}).
		Where(notified).
		OrderBy("d.domain ASC", "u.url_appeared_on ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build flagged citations: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query flagged citations: %w", err)
	}

	var result []domain.FlaggedCitation
	for rows.Next() {
		var (
			fc     domain.FlaggedCitation
			status int
		)
		if err := rows.Scan(&fc.DomainID, &fc.Domain, &status, &fc.ArticleURL); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan flagged citation: %w", err)
		}
		fc.Status = domain.Status(status)
		result = append(result, fc)
	}

	return result, closeRows(rows)
}

// MarkDomainNotified records that a frequent-domain alert was emitted for the domain.
func (r *Repository) MarkDomainNotified(ctx context.Context, domainID int64) error {
	return r.exec(ctx, r.dialect.builder().
		Update("domains").
		Set("frequent_domain_notification", true).
		Where(sq.Eq{"id": domainID}))
}

// MarkCitationNotified records that a flagged-domain alert was emitted for the pair.
func (r *Repository) MarkCitationNotified(ctx context.Context, domainID int64, articleURL string) error {
	return r.exec(ctx, r.dialect.builder().
		Update("urls").
		Set("appeared_on_article_notification", true).
		Where(sq.Eq{"domain_id": domainID, "url_appeared_on": articleURL}))
}

// EnsureDomain returns the id of name, inserting it on first sighting.
func (r *Repository) EnsureDomain(ctx context.Context, name string) (int64, error) {
	err := r.exec(ctx, r.dialect.builder().
		Insert("domains").
		Columns("domain").
		Values(name).
		Suffix("ON CONFLICT (domain) DO NOTHING"))
	if err != nil {
		return 0, err
	}

	id, err := r.scalar(ctx, r.dialect.builder().
		Select("id").
		From("domains").
		Where(sq.Eq{"domain": name}))
	if err != nil {
		return 0, fmt.Errorf("lookup domain %s: %w", name, err)
	}
	return id, nil
}

// UpsertCitation inserts the citation or moves an existing one into c.Batch.
func (r *Repository) UpsertCitation(ctx context.Context, c domain.Citation, domainID int64) error {
	return r.exec(ctx, r.dialect.builder().
		Insert("urls").
		Columns("url", "url_appeared_on", "domain_id", "last_updated").
		Values(c.URL, c.ArticleURL, domainID, int64(c.Batch)).
		Suffix("ON CONFLICT (url, url_appeared_on) DO UPDATE SET last_updated = excluded.last_updated, domain_id = excluded.domain_id"))
}

// UpsertClassification stores a curated status for a perennial source.
func (r *Repository) UpsertClassification(ctx context.Context, c domain.Classification) error {
	if _, err := c.Status.Label(); err != nil {
		return fmt.Errorf("classification %s: %w", c.Domain, err)
	}
	return r.exec(ctx, r.dialect.builder().
		Insert("domains").
		Columns("domain", "status", "perennial_source").
		Values(c.Domain, int(c.Status), true).
		Suffix("ON CONFLICT (domain) DO UPDATE SET status = excluded.status, perennial_source = excluded.perennial_source"))
}

// Domain loads a single domain row; it returns nil, nil when absent.
func (r *Repository) Domain(ctx context.Context, name string) (*domain.Domain, error) {
	query, args, err := r.dialect.builder().
		Select("id", "domain", "status", "perennial_source", "frequent_domain_notification").
		From("domains").
		Where(sq.Eq{"domain": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build domain lookup: %w", err)
	}

	var (
		d         domain.Domain
		status    sql.NullInt64
		perennial sql.NullBool
		notified  sql.NullBool
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&d.ID, &d.Name, &status, &perennial, &notified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query domain %s: %w", name, err)
	}

	if status.Valid {
		s := domain.Status(status.Int64)
		d.Status = &s
	}
	d.PerennialSource = perennial.Bool
	d.FrequentNotified = notified.Bool
	return &d, nil
}

func (r *Repository) scalar(ctx context.Context, builder sq.SelectBuilder) (int64, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var v int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		return 0, fmt.Errorf("query scalar: %w", err)
	}
	return v, nil
}

func (r *Repository) exec(ctx context.Context, builder sq.Sqlizer) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("exec statement: %w", err)
	}
	return nil
}

func closeRows(rows *sql.Rows) error {
	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return fmt.Errorf("rows iteration: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return fmt.Errorf("close rows: %w", closeErr)
	}
	return nil
}
