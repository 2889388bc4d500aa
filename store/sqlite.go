// Package store persists the augmented track table to SQLite.
package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/YuminosukeSato/musicmap/dataset"
	"github.com/YuminosukeSato/musicmap/pkg/errors"
	"github.com/YuminosukeSato/musicmap/pkg/log"
)

// TracksTable is the table replaced by every export.
const TracksTable = "tracks"

// realColumns are stored as REAL; everything else is TEXT.
var realColumns = map[string]bool{
	dataset.ColumnTSNEX: true,
	dataset.ColumnTSNEY: true,
}

// Store wraps a SQLite database file.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewIOError("open sqlite", path, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.NewIOError("apply pragma", path, errors.Wrapf(err, "%s", pragma))
		}
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ReplaceTracks drops and recreates the tracks table from t inside a single
// transaction. A failure leaves the previous table untouched.
func (s *Store) ReplaceTracks(ctx context.Context, t *dataset.Table) error {
	records := t.Records()
	if len(records) == 0 {
		return errors.NewModelError("store.ReplaceTracks", "table has no header", errors.ErrEmptyData)
	}
	header := records[0]

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewIOError("begin transaction", s.path, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(TracksTable)); err != nil {
		return errors.NewIOError("drop table", s.path, err)
	}
	if _, err := tx.ExecContext(ctx, createStatement(header)); err != nil {
		return errors.NewIOError("create table", s.path, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertStatement(header))
	if err != nil {
		return errors.NewIOError("prepare insert", s.path, err)
	}
	defer stmt.Close()

	args := make([]any, len(header))
	for _, row := range records[1:] {
		for j, cell := range row {
			args[j] = cellValue(header[j], cell)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return errors.NewIOError("insert row", s.path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewIOError("commit", s.path, err)
	}

	log.GetLoggerWithName("store").Info("Tracks exported",
		log.OperationKey, log.OperationExport,
		log.PathKey, s.path,
		log.SamplesKey, len(records)-1,
	)
	return nil
}

// Export writes t to the tracks table of the database at path.
func Export(ctx context.Context, t *dataset.Table, path string) error {
	s, err := Open(path)
	if err != nil {
		return err
	}
	if err := s.ReplaceTracks(ctx, t); err != nil {
		_ = s.Close()
		return err
	}
	if err := s.Close(); err != nil {
		return errors.NewIOError("close sqlite", path, err)
	}
	return nil
}

func createStatement(header []string) string {
	cols := make([]string, len(header))
	for i, name := range header {
		typ := "TEXT"
		if realColumns[name] {
			typ = "REAL"
		}
		cols[i] = quoteIdent(name) + " " + typ
	}
	return "CREATE TABLE " + quoteIdent(TracksTable) + " (" + strings.Join(cols, ", ") + ")"
}

func insertStatement(header []string) string {
	cols := make([]string, len(header))
	for i, name := range header {
		cols[i] = quoteIdent(name)
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(header)), ", ")
	return "INSERT INTO " + quoteIdent(TracksTable) + " (" + strings.Join(cols, ", ") + ") VALUES (" + marks + ")"
}

// cellValue converts a cell to its column's storage value. REAL cells that
// do not parse and unmapped colors are stored as NULL.
func cellValue(column, cell string) any {
	if column == dataset.ColumnColorMode && cell == "" {
		return nil
	}
	if !realColumns[column] {
		return cell
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil
	}
	return f
}

// quoteIdent quotes an SQL identifier; column names such as
// "artist(s)_name" are not valid bare identifiers.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
