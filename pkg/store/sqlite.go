package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/goliatone/go-optionform/pkg/logging"
	"github.com/goliatone/go-optionform/pkg/mask"
)

const defaultTable = "options"

// SQLOption configures a SQL store.
type SQLOption func(*SQL)

// WithTable changes the table name. It is interpolated into statements and
// must be a trusted identifier.
func WithTable(name string) SQLOption {
	return func(s *SQL) {
		if name != "" {
			s.table = name
		}
	}
}

func WithLogger(l logging.Logger) SQLOption {
	return func(s *SQL) { s.logger = logging.OrNop(l) }
}

// SQL stores one row per option, the value encoded as JSON.
type SQL struct {
	db     *sql.DB
	table  string
	logger logging.Logger
	owned  bool
}

// OpenSQLite opens (or creates) a SQLite database and prepares the table.
func OpenSQLite(ctx context.Context, dsn string, opts ...SQLOption) (*SQL, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// A single connection keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	s, err := NewSQL(ctx, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewSQL wraps an open database and creates the table when missing.
func NewSQL(ctx context.Context, db *sql.DB, opts ...SQLOption) (*SQL, error) {
	s := &SQL{db: db, table: defaultTable, logger: logging.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`, s.table)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return nil, fmt.Errorf("store: create table %s: %w", s.table, err)
	}
	return s, nil
}

func (s *SQL) Get(ctx context.Context, name string) (mask.Value, bool, error) {
	var raw string
	query := fmt.Sprintf(`SELECT value FROM %s WHERE name = ?`, s.table)
	err := s.db.QueryRowContext(ctx, query, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return mask.Null(), false, nil
	}
	if err != nil {
		return mask.Null(), false, fmt.Errorf("store: get %s: %w", name, err)
	}
	var v mask.Value
	if err := v.UnmarshalJSON([]byte(raw)); err != nil {
		return mask.Null(), false, fmt.Errorf("store: decode %s: %w", name, err)
	}
	return v, true, nil
}

func (s *SQL) Set(ctx context.Context, name string, v mask.Value) (bool, error) {
	encoded, err := v.MarshalJSON()
	if err != nil {
		return false, fmt.Errorf("store: encode %s: %w", name, err)
	}

	current, found, err := s.Get(ctx, name)
	if err != nil {
		return false, err
	}
	if found && current.Equal(v) {
		return false, nil
	}

	stmt := fmt.Sprintf(`INSERT INTO %s (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt, name, string(encoded), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return false, fmt.Errorf("store: set %s: %w", name, err)
	}
	s.logger.Debug("option stored", "name", name, "table", s.table)
	return true, nil
}

// Names lists stored option names in sorted order.
func (s *SQL) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT name FROM %s ORDER BY name`, s.table))
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the database when the store opened it.
func (s *SQL) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
