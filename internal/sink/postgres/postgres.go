// Package postgres implements a Postgres sink on a pgx connection pool.
// Records are loaded with COPY into "<dataset>"."<table>"; Attributes are
// stored as JSONB.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ginjaninja78/tabular-loader/internal/config"
	"github.com/ginjaninja78/tabular-loader/internal/sink"
	"github.com/ginjaninja78/tabular-loader/internal/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

func init() {
	sink.Register(config.SinkPostgres, open)
}

// Sink appends records to one Postgres table.
type Sink struct {
	pool   *pgxpool.Pool
	table  pgx.Identifier
	logger zerolog.Logger
}

func open(ctx context.Context, cfg config.SinkConfig, logger zerolog.Logger) (sink.Sink, error) {
	return New(ctx, cfg.DSN, cfg.Dataset, cfg.Table, cfg.ShouldCreateTable(), logger)
}

// New connects to Postgres and, when create is set, creates the schema and
// table if they do not exist.
func New(ctx context.Context, dsn, schema, table string, create bool, logger zerolog.Logger) (*Sink, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	id := identifier(schema, table)
	s := &Sink{
		pool:   pool,
		table:  id,
		logger: logger.With().Str("sink", "postgres").Str("table", id.Sanitize()).Logger(),
	}

	if create {
		for _, stmt := range createTableSQL(schema, id) {
			if _, err := pool.Exec(ctx, stmt); err != nil {
				pool.Close()
				return nil, fmt.Errorf("postgres: create table: %w", err)
			}
		}
	}
	return s, nil
}

// identifier builds the COPY target; an empty schema means the search path.
func identifier(schema, table string) pgx.Identifier {
	if schema == "" {
		return pgx.Identifier{table}
	}
	return pgx.Identifier{schema, table}
}

func createTableSQL(schema string, id pgx.Identifier) []string {
	var stmts []string
	if schema != "" {
		stmts = append(stmts, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize())
	}
	stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	"Id" text,
	"FirstName" text,
	"LastName" text,
	"Email" text,
	"Mobile" text,
	"PostCode" text,
	"DataSource" text,
	"SourceCreatedDate" text,
	"SourceModifiedDate" text,
	"SourceFile" text NOT NULL,
	"Attributes" jsonb NOT NULL DEFAULT '[]'::jsonb,
	"BQInsertedDate" timestamptz NOT NULL
)`, id.Sanitize()))
	return stmts
}

// Append copies all records in one COPY operation.
func (s *Sink) Append(ctx context.Context, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	rows, err := sink.Rows(records)
	if err != nil {
		return err
	}

	n, err := s.pool.CopyFrom(ctx, s.table, types.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("postgres: copy: %w", err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("postgres: copied %d of %d rows", n, len(rows))
	}

	s.logger.Debug().Int64("rows", n).Msg("appended")
	return nil
}

// Close closes the pool.
func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}
