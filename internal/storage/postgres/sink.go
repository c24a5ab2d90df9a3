// Package postgres stores flyer records in a Postgres table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/prospekt-crawler/internal/crawler"
)

const defaultTable = "flyers"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for flyer rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type txBeginner interface {
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// Sink inserts one row per flyer record inside a single transaction.
type Sink struct {
	pool  txBeginner
	table string
}

var _ crawler.ResultSink = (*Sink)(nil)

// New connects a pool using cfg.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
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
	return &Sink{pool: pool, table: table}, nil
}

// NewWithPool constructs a sink from an existing pool (primarily for testing).
func NewWithPool(pool txBeginner, table string) (*Sink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &Sink{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *Sink) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Save inserts every record tagged with destination. Either all rows land or
// none do.
func (s *Sink) Save(ctx context.Context, result crawler.CrawlResult, destination string) (err error) {
	if s == nil || s.pool == nil {
		return fmt.Errorf("flyer sink is not configured")
	}
	if len(result) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	query := fmt.Sprintf(`
INSERT INTO %s (
	title,
	thumbnail,
	shop_name,
	valid_from,
	valid_to,
	parsed_time,
	destination
) VALUES ($1, $2, $3, $4, $5, $6, $7)`, s.table)

	for i, rec := range result {
		if _, err := tx.Exec(ctx, query,
			rec.Title,
			rec.Thumbnail,
			rec.ShopName,
			rec.ValidFrom,
			rec.ValidTo,
			rec.ParsedAt,
			destination,
		); err != nil {
			return fmt.Errorf("insert flyer %d (%s): %w", i, rec.ShopName, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit flyers: %w", err)
	}
	return nil
}
