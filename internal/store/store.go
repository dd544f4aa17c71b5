// Package store keeps the history of evaluated expressions in SQLite.
package store

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const schema = `CREATE TABLE IF NOT EXISTS expressions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	expression TEXT NOT NULL,
	result TEXT,
	error_kind TEXT,
	user TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
)`

// Entry is one recorded evaluation. ErrorKind is empty on success, in which
// case Result holds the value.
type Entry struct {
	ID         int64
	Expression string
	Result     float64
	ErrorKind  string
	User       string
	CreatedAt  time.Time
}

// Store is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open history database %s", path)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create expressions table")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts e and returns its id. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var result sql.NullString
	if e.ErrorKind == "" {
		// TEXT keeps ±Inf and NaN, which REAL columns cannot hold
		result = sql.NullString{String: strconv.FormatFloat(e.Result, 'g', -1, 64), Valid: true}
	}
	var kind sql.NullString
	if e.ErrorKind != "" {
		kind = sql.NullString{String: e.ErrorKind, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO expressions (expression, result, error_kind, user, created_at) VALUES (?, ?, ?, ?, ?)",
		e.Expression, result, kind, e.User, e.CreatedAt.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "insert expression")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "read expression id")
	}
	return id, nil
}

// List returns up to limit entries recorded for user, newest first.
// limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, user string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, expression, result, error_kind, user, created_at FROM expressions WHERE user = ? ORDER BY id DESC LIMIT ?",
		user, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query expressions")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e      Entry
			result sql.NullString
			kind   sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Expression, &result, &kind, &e.User, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan expression")
		}
		e.ErrorKind = kind.String
		if result.Valid {
			if e.Result, err = strconv.ParseFloat(result.String, 64); err != nil {
				return nil, errors.Wrapf(err, "expression %d has bad result %q", e.ID, result.String)
			}
		}
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "iterate expressions")
}
