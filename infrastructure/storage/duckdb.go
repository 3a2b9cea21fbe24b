// Package storage provides the concrete columnar-store backend for a
// collection: an embedded DuckDB database holding the collection's table,
// `_key` sequence, and row fetch paths.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/vexcore/vexel/internal/apperr"
)

const keyColumn = "_key"

// Store wraps one collection's DuckDB database file.
type Store struct {
	db    *sql.DB
	table string
}

// Open opens (creating if absent) the DuckDB database at path and binds it
// to a table named after the collection.
func Open(path, table string) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStorageError, "open duckdb database %s", path)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperr.Wrap(apperr.ErrStorageError, "connect to duckdb database %s: %v", path, err)
	}
	return &Store{db: db, table: table}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ImportJSONL bulk-loads pattern (glob allowed) into the collection's table,
// replacing any prior contents, then ensures the _key column exists. Runs
// inside a single transaction: either fully applied or not at all.
func (s *Store) ImportJSONL(ctx context.Context, pattern string) error {
	return s.importVia(ctx, fmt.Sprintf("read_json_auto(%s)", sqlQuote(pattern)))
}

// ImportParquet bulk-loads pattern (glob allowed) via DuckDB's native
// Parquet table function.
func (s *Store) ImportParquet(ctx context.Context, pattern string) error {
	return s.importVia(ctx, fmt.Sprintf("read_parquet(%s)", sqlQuote(pattern)))
}

func sqlQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (s *Store) importVia(ctx context.Context, tableFn string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.ErrStorageError, "begin import transaction: %v", err)
	}
	defer tx.Rollback()

	createSQL := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s", quoteIdent(s.table), tableFn)
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return apperr.Wrap(apperr.ErrStorageError, "bulk load into %s: %v", s.table, err)
	}

	if err := s.ensureKeyColumnTx(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.ErrStorageError, "commit import: %v", err)
	}
	return nil
}

// ensureKeyColumnTx checks information_schema for the _key column; if
// absent, creates a sequence and adds the column, back-filling all existing
// rows with unique, monotonically increasing keys.
func (s *Store) ensureKeyColumnTx(ctx context.Context, tx *sql.Tx) error {
	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT count(*) FROM information_schema.columns
		WHERE table_name = ? AND column_name = ?
	`, s.table, keyColumn).Scan(&count)
	if err != nil {
		return apperr.Wrap(apperr.ErrStorageError, "check information_schema for %s: %v", keyColumn, err)
	}
	if count > 0 {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `CREATE SEQUENCE IF NOT EXISTS keys_seq`); err != nil {
		return apperr.Wrap(apperr.ErrStorageError, "create keys_seq: %v", err)
	}

	alterSQL := fmt.Sprintf(
		"ALTER TABLE %s ADD COLUMN %s UBIGINT DEFAULT NEXTVAL('keys_seq')",
		quoteIdent(s.table), keyColumn,
	)
	if _, err := tx.ExecContext(ctx, alterSQL); err != nil {
		return apperr.Wrap(apperr.ErrStorageError, "add %s column: %v", keyColumn, err)
	}
	return nil
}

// RowCount returns the number of rows currently in the table.
func (s *Store) RowCount(ctx context.Context) (uint64, error) {
	var n uint64
	row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*) FROM %s", quoteIdent(s.table)))
	if err := row.Scan(&n); err != nil {
		return 0, apperr.Wrap(apperr.ErrStorageError, "count rows in %s: %v", s.table, err)
	}
	return n, nil
}

// Columns returns the full set of column names in the underlying table.
func (s *Store) Columns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_name = ? ORDER BY ordinal_position
	`, s.table)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStorageError, "list columns of %s: %v", s.table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperr.Wrap(apperr.ErrStorageError, "scan column name: %v", err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// HasColumn reports whether column exists in the table.
func (s *Store) HasColumn(ctx context.Context, column string) (bool, error) {
	cols, err := s.Columns(ctx)
	if err != nil {
		return false, err
	}
	for _, c := range cols {
		if c == column {
			return true, nil
		}
	}
	return false, nil
}

// Batch is one page of (key, text) pairs read from a column, ordered by _key.
type Batch struct {
	Keys  []uint64
	Texts []string
}

// FetchBatch reads one page of (column, _key) ordered by _key ascending.
func (s *Store) FetchBatch(ctx context.Context, column string, offset, limit int) (Batch, error) {
	q := fmt.Sprintf(
		"SELECT %s, %s FROM %s ORDER BY %s LIMIT ? OFFSET ?",
		quoteIdent(column), quoteIdent(keyColumn), quoteIdent(s.table), quoteIdent(keyColumn),
	)
	rows, err := s.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return Batch{}, apperr.Wrap(apperr.ErrStorageError, "fetch batch from %s.%s: %v", s.table, column, err)
	}
	defer rows.Close()

	var batch Batch
	for rows.Next() {
		var text sql.NullString
		var key uint64
		if err := rows.Scan(&text, &key); err != nil {
			return Batch{}, apperr.Wrap(apperr.ErrStorageError, "scan batch row: %v", err)
		}
		batch.Keys = append(batch.Keys, key)
		batch.Texts = append(batch.Texts, text.String)
	}
	return batch, rows.Err()
}

// FetchByKeys returns column content for the given keys, keyed by _key.
func (s *Store) FetchByKeys(ctx context.Context, column string, keys []uint64) (map[uint64]string, error) {
	if len(keys) == 0 {
		return map[uint64]string{}, nil
	}

	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = "?"
		args[i] = k
	}

	q := fmt.Sprintf(
		"SELECT %s, %s FROM %s WHERE %s IN (%s)",
		quoteIdent(column), quoteIdent(keyColumn), quoteIdent(s.table), quoteIdent(keyColumn),
		strings.Join(placeholders, ","),
	)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStorageError, "fetch rows by key from %s.%s: %v", s.table, column, err)
	}
	defer rows.Close()

	out := make(map[uint64]string, len(keys))
	for rows.Next() {
		var text sql.NullString
		var key uint64
		if err := rows.Scan(&text, &key); err != nil {
			return nil, apperr.Wrap(apperr.ErrStorageError, "scan row: %v", err)
		}
		out[key] = text.String
	}
	return out, rows.Err()
}
