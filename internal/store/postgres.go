package store

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"jobfeed/sync-service/internal/model"
)

// Postgres implements Store on a pgxpool connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a Postgres store over the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the job_listings table and its uniqueness
// constraint if they do not exist yet.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS job_listings (
			id           BIGSERIAL PRIMARY KEY,
			source       TEXT NOT NULL,
			external_id  TEXT NOT NULL,
			title        TEXT NOT NULL,
			company      TEXT,
			location     TEXT,
			description  TEXT,
			job_type     TEXT NOT NULL DEFAULT 'other',
			work_mode    TEXT,
			industry     TEXT,
			salary_min   DOUBLE PRECISION,
			salary_max   DOUBLE PRECISION,
			salary_range TEXT,
			external_url TEXT NOT NULL DEFAULT '',
			posted_date  TIMESTAMPTZ,
			fetched_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			is_active    BOOLEAN NOT NULL DEFAULT TRUE,
			UNIQUE (source, external_id)
		);
		CREATE INDEX IF NOT EXISTS job_listings_active_idx
			ON job_listings (is_active, fetched_at);`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveListings upserts each listing in its own failure boundary: a failed
// upsert is logged and the loop moves on, so one bad record never sinks
// the batch.
func (s *Postgres) SaveListings(ctx context.Context, listings []model.Listing) int {
	saved := 0
	for _, l := range listings {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO job_listings
				(source, external_id, title, company, location, description,
				 job_type, work_mode, industry, salary_min, salary_max,
				 salary_range, external_url, posted_date, fetched_at, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), TRUE)
			ON CONFLICT (source, external_id) DO UPDATE SET
				title        = EXCLUDED.title,
				company      = EXCLUDED.company,
				location     = EXCLUDED.location,
				description  = EXCLUDED.description,
				job_type     = EXCLUDED.job_type,
				work_mode    = EXCLUDED.work_mode,
				industry     = EXCLUDED.industry,
				salary_min   = EXCLUDED.salary_min,
				salary_max   = EXCLUDED.salary_max,
				salary_range = EXCLUDED.salary_range,
				external_url = EXCLUDED.external_url,
				posted_date  = EXCLUDED.posted_date,
				fetched_at   = NOW(),
				is_active    = TRUE`,
			l.Source, l.ExternalID, l.Title, l.Company, l.Location, l.Description,
			l.JobType, l.WorkMode, l.Industry, l.SalaryMin, l.SalaryMax,
			l.SalaryRange, l.ExternalURL, l.PostedDate,
		)
		if err != nil {
			log.Printf("[store] upsert (%s, %s) failed: %v — continuing", l.Source, l.ExternalID, err)
			continue
		}
		saved++
	}
	return saved
}

// DeactivateStale flips is_active on everything older than the threshold
// in one bulk update.
func (s *Postgres) DeactivateStale(ctx context.Context, olderThanHours int) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE job_listings
		SET is_active = FALSE
		WHERE is_active = TRUE
		  AND fetched_at < NOW() - make_interval(hours => $1)`,
		olderThanHours,
	)
	if err != nil {
		return 0, fmt.Errorf("deactivate stale: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Stats aggregates counts and the most recent fetch time. Breakdown maps
// cover active rows only.
func (s *Postgres) Stats(ctx context.Context) (*model.ListingStats, error) {
	stats := &model.ListingStats{
		JobsByType:     map[string]int64{},
		JobsByWorkMode: map[string]int64{},
		JobsBySource:   map[string]int64{},
	}

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_active),
		       MAX(fetched_at)
		FROM job_listings`,
	).Scan(&stats.TotalJobs, &stats.ActiveJobs, &stats.LastSyncTime)
	if err != nil {
		return nil, fmt.Errorf("stats totals: %w", err)
	}

	for _, g := range []struct {
		column string
		into   map[string]int64
	}{
		{"job_type", stats.JobsByType},
		{"work_mode", stats.JobsByWorkMode},
		{"source", stats.JobsBySource},
	} {
		if err := s.groupCount(ctx, g.column, g.into); err != nil {
			return nil, err
		}
	}

	return stats, nil
}

func (s *Postgres) groupCount(ctx context.Context, column string, into map[string]int64) error {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT COALESCE(%s::text, ''), COUNT(*)
		FROM job_listings
		WHERE is_active = TRUE
		GROUP BY 1`, column),
	)
	if err != nil {
		return fmt.Errorf("stats by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("stats by %s scan: %w", column, err)
		}
		if key == "" {
			key = "unknown"
		}
		into[key] = count
	}
	return rows.Err()
}

// ActiveListings returns active rows, most recently fetched first.
func (s *Postgres) ActiveListings(ctx context.Context, limit int) ([]model.StoredListing, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT source, external_id, title, company, location, description,
		       job_type, work_mode, industry, salary_min, salary_max,
		       salary_range, external_url, posted_date, fetched_at, is_active
		FROM job_listings
		WHERE is_active = TRUE
		ORDER BY fetched_at DESC, id DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("active listings: %w", err)
	}
	defer rows.Close()

	listings := make([]model.StoredListing, 0, limit)
	for rows.Next() {
		var l model.StoredListing
		if err := rows.Scan(
			&l.Source, &l.ExternalID, &l.Title, &l.Company, &l.Location, &l.Description,
			&l.JobType, &l.WorkMode, &l.Industry, &l.SalaryMin, &l.SalaryMax,
			&l.SalaryRange, &l.ExternalURL, &l.PostedDate, &l.FetchedAt, &l.IsActive,
		); err != nil {
			return nil, fmt.Errorf("active listings scan: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
