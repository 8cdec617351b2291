// Package sqlite implements a SQLite-backed sink using database/sql.
// Each Append runs inside one transaction with a prepared INSERT; SQLite
// has no bulk-load API, but a single transaction keeps moderate volumes
// fast. Attributes are stored as JSON text.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ginjaninja78/tabular-loader/internal/config"
	"github.com/ginjaninja78/tabular-loader/internal/sink"
	"github.com/ginjaninja78/tabular-loader/internal/types"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

func init() {
	sink.Register(config.SinkSQLite, open)
}

// Sink appends records to one SQLite table.
type Sink struct {
	db     *sql.DB
	table  string
	logger zerolog.Logger
}

func open(ctx context.Context, cfg config.SinkConfig, logger zerolog.Logger) (sink.Sink, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = cfg.Dataset + ".db"
	}
	return New(ctx, dsn, cfg.Table, cfg.ShouldCreateTable(), logger)
}

// New opens the database at dsn and, when create is set, creates the
// destination table if it does not exist.
//
// DSN is passed directly to database/sql; for example:
//
//	"warehouse.db"
//	"file:warehouse.db?_pragma=busy_timeout(5000)"
//	":memory:"
func New(ctx context.Context, dsn, table string, create bool, logger zerolog.Logger) (*Sink, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("sqlite: table must not be empty")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One connection: SQLite allows a single writer, and every connection
	// to ":memory:" would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	s := &Sink{db: db, table: table, logger: logger.With().Str("sink", "sqlite").Str("table", table).Logger()}
	if create {
		if _, err := db.ExecContext(ctx, createTableSQL(table)); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: create table: %w", err)
		}
	}
	return s, nil
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	"Id" TEXT,
	"FirstName" TEXT,
	"LastName" TEXT,
	"Email" TEXT,
	"Mobile" TEXT,
	"PostCode" TEXT,
	"DataSource" TEXT,
	"SourceCreatedDate" TEXT,
	"SourceModifiedDate" TEXT,
	"SourceFile" TEXT NOT NULL,
	"Attributes" TEXT NOT NULL DEFAULT '[]',
	"BQInsertedDate" TIMESTAMP NOT NULL
)`, sink.QuoteIdent(table))
}

// Append inserts all records in a single transaction.
func (s *Sink) Append(ctx context.Context, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	rows, err := sink.Rows(records)
	if err != nil {
		return err
	}

	cols := make([]string, len(types.Columns))
	placeholders := make([]string, len(types.Columns))
	for i, c := range types.Columns {
		cols[i] = sink.QuoteIdent(c)
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		sink.QuoteIdent(s.table),
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite: insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	s.logger.Debug().Int("rows", len(rows)).Msg("appended")
	return nil
}

// Close closes the database.
func (s *Sink) Close() error {
	return s.db.Close()
}
