// Package postgres provides Postgres-backed persistence for crawled
// contests.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FelllGit/codehawks-scrapper/internal/crawler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ContestStoreConfig controls the Postgres connection pool.
type ContestStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// ContestStore upserts contests by (platform, slug). Re-crawling the same
// contest refreshes its mutable fields; identity never changes.
type ContestStore struct {
	pool  execCloser
	table string
}

// NewContestStore connects a pool using the provided config.
func NewContestStore(ctx context.Context, cfg ContestStoreConfig) (*ContestStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "contests"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ContestStore{pool: pool, table: table}, nil
}

// NewContestStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewContestStoreWithPool(pool execCloser, table string) (*ContestStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "contests"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ContestStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *ContestStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// UpsertContests writes the batch, one upsert per record. A failing row
// aborts the batch write; the crawl result itself is unaffected.
func (s *ContestStore) UpsertContests(ctx context.Context, contests []crawler.Contest) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("contest store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	platform,
	slug,
	program,
	image_url,
	original_url,
	languages,
	max_reward,
	rewards_pool,
	rewards_token,
	start_date,
	end_date,
	evaluation_end_date,
	status,
	tags,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
ON CONFLICT (platform, slug) DO UPDATE SET
	program = EXCLUDED.program,
	image_url = EXCLUDED.image_url,
	original_url = EXCLUDED.original_url,
	languages = EXCLUDED.languages,
	max_reward = EXCLUDED.max_reward,
	rewards_pool = EXCLUDED.rewards_pool,
	rewards_token = EXCLUDED.rewards_token,
	start_date = EXCLUDED.start_date,
	end_date = EXCLUDED.end_date,
	evaluation_end_date = EXCLUDED.evaluation_end_date,
	status = EXCLUDED.status,
	tags = EXCLUDED.tags,
	updated_at = now()
`, s.table)

	for _, contest := range contests {
		if contest.Slug == "" {
			return fmt.Errorf("contest slug is required (url %q)", contest.OriginalURL)
		}
		_, err := s.pool.Exec(ctx, query,
			contest.Platform,
			contest.Slug,
			contest.Program,
			contest.ImageURL,
			contest.OriginalURL,
			contest.Languages,
			contest.MaxReward,
			contest.RewardsPool,
			contest.RewardsToken,
			contest.StartDate,
			contest.EndDate,
			contest.EvaluationEndDate,
			string(contest.Status),
			contest.Tags,
		)
		if err != nil {
			return fmt.Errorf("upsert contest %s/%s: %w", contest.Platform, contest.Slug, err)
		}
	}
	return nil
}
