package keywords

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/seo-linker/internal/linker"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the connection pool used to read the table.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type queryCloser interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// PostgresSource reads associations from a table with keyword, url and
// position columns. Rows are returned in position order.
type PostgresSource struct {
	pool  queryCloser
	table string
}

// NewPostgresSource connects a pool using cfg.
func NewPostgresSource(ctx context.Context, cfg PostgresConfig) (*PostgresSource, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("keywords.postgres.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresSource{pool: pool, table: table}, nil
}

// NewPostgresSourceWithPool constructs a source from an existing pool.
func NewPostgresSourceWithPool(pool queryCloser, table string) (*PostgresSource, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &PostgresSource{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = "keyword_urls"
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the pool.
func (s *PostgresSource) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Load queries the table. Rows with a blank keyword or URL are dropped.
func (s *PostgresSource) Load(ctx context.Context) ([]linker.Association, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("postgres source is not configured")
	}
	query := fmt.Sprintf(`SELECT keyword, url FROM %s ORDER BY position`, s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer rows.Close()

	var table []linker.Association
	for rows.Next() {
		var kw, u string
		if err := rows.Scan(&kw, &u); err != nil {
			return nil, fmt.Errorf("scan keyword row: %w", err)
		}
		kw, u = strings.TrimSpace(kw), strings.TrimSpace(u)
		if kw == "" || u == "" {
			continue
		}
		table = append(table, linker.Association{Keyword: kw, URL: u})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keyword rows: %w", err)
	}
	if len(table) == 0 {
		return nil, ErrEmptyTable
	}
	return table, nil
}
