package driver

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"go.uber.org/zap"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the Driver implementation backed by database/sql and
// mattn/go-sqlite3. The compiler never issues two queries
// concurrently (§5), so SetMaxOpenConns(1) makes that invariant
// structural rather than just a calling convention.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// OpenSQLite opens a SQLite database at dsn (a file path, or
// ":memory:" for an ephemeral in-process catalog). Driver errors are
// logged through a no-op logger until SetLogger installs a real one.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("driver: open %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	return &SQLite{db: db, logger: zap.NewNop()}, nil
}

// SetLogger installs the structured logger used for driver-error
// reporting. The pure compilation pipeline (lexer through sqlgen)
// never logs; this confines the ambient logging concern to the
// driver boundary, per SPEC_FULL.md's ambient stack.
func (s *SQLite) SetLogger(logger *zap.Logger) {
	s.logger = logger
}

func (s *SQLite) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// ListRelations returns the names of every user table in the
// database, sourced from sqlite_master.
func (s *SQLite) ListRelations(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("driver: list relations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("driver: list relations: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListColumns returns relation's columns, in declaration order, with
// their raw SQLite type affinity string (via PRAGMA table_info).
func (s *SQLite) ListColumns(ctx context.Context, relation string) ([]ColumnInfo, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	// table_info doesn't accept a bound parameter for the table name,
	// so the identifier is quoted and embedded directly.
	query := fmt.Sprintf("PRAGMA table_info(%q)", relation)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("driver: list columns for %s: %w", relation, err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var (
			cid        int
			name       string
			rawType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &rawType, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("driver: list columns for %s: %w", relation, err)
		}
		cols = append(cols, ColumnInfo{Name: name, RawSQLType: rawType})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("driver: relation %s has no columns or does not exist", relation)
	}
	return cols, nil
}

// Execute runs sql and returns its result set. The compiler only ever
// hands this generated SELECT statements, so Execute always queries
// rather than distinguishing SELECT from exec-style statements.
func (s *SQLite) Execute(ctx context.Context, query string) ([]Header, [][]any, error) {
	if err := s.checkOpen(); err != nil {
		return nil, nil, err
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.logger.Error("driver query failed", zap.String("sql", query), zap.Error(err))
		return nil, nil, fmt.Errorf("driver: execute: %w", err)
	}
	defer rows.Close()

	colNames, err := rows.Columns()
	if err != nil {
		s.logger.Error("driver query failed", zap.String("sql", query), zap.Error(err))
		return nil, nil, fmt.Errorf("driver: execute: %w", err)
	}
	headers := make([]Header, len(colNames))
	for i, name := range colNames {
		headers[i] = Header{Name: name}
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(colNames))
		ptrs := make([]any, len(colNames))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			s.logger.Error("driver row scan failed", zap.String("sql", query), zap.Error(err))
			return nil, nil, fmt.Errorf("driver: execute: scan: %w", err)
		}
		row := make([]any, len(colNames))
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			} else {
				row[i] = v
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("driver query failed", zap.String("sql", query), zap.Error(err))
		return headers, out, err
	}
	return headers, out, nil
}

// Close releases the underlying connection. Subsequent calls to any
// other method return ErrClosed.
func (s *SQLite) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.db.Close()
}
