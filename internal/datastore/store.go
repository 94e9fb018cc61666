package datastore

// #region imports
import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"
)

// #endregion

// #region errors

// ErrUnsafeQuery is returned for statements that are not read-only.
var ErrUnsafeQuery = errors.New("query is not read-only")

// QueryError reports a failed statement together with its text.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("execute %q: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// #endregion

// #region store-struct

// Store executes read-only SQL against the admissions dataset.
type Store struct {
	db    *sql.DB
	table string
}

// Option configures Open.
type Option func(*options)

type options struct {
	table    string
	readOnly bool
}

// WithTable overrides the dataset table name (default dados_sus3).
func WithTable(name string) Option {
	return func(o *options) { o.table = name }
}

// WithReadOnly sets PRAGMA query_only on the connection.
func WithReadOnly() Option {
	return func(o *options) { o.readOnly = true }
}

// #endregion

// #region constructor

// Open connects to the SQLite file at path (":memory:" for tests).
func Open(path string, opts ...Option) (*Store, error) {
	o := options{table: "dados_sus3"}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one connection keeps :memory: databases and query_only consistent
	db.SetMaxOpenConns(1)
	if o.readOnly {
		if _, err := db.Exec("PRAGMA query_only = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma query_only: %w", err)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &Store{db: db, table: o.table}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB (used by tests to seed data).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Table returns the dataset table name.
func (s *Store) Table() string {
	return s.table
}

// #endregion

// #region execute

// Execute runs a read-only statement and returns every row as a slice of
// column values. []byte values are returned as strings.
func (s *Store) Execute(ctx context.Context, query string) ([][]any, error) {
	if err := CheckSafe(query); err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &QueryError{Query: query, Err: err}
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	return out, nil
}

// #endregion

// #region safety

var (
	forbiddenKeywords = regexp.MustCompile(`(?i)\b(DROP|DELETE|UPDATE|INSERT|ALTER|CREATE|TRUNCATE|REPLACE\s+INTO|EXEC|EXECUTE|ATTACH|DETACH|VACUUM|REINDEX)\b`)
	pragmaAssign      = regexp.MustCompile(`(?i)\bPRAGMA\s+\w+\s*=`)
	leadingKeyword    = regexp.MustCompile(`(?i)^\s*(SELECT|WITH|EXPLAIN)\b`)
)

// CheckSafe rejects anything other than SELECT/WITH/EXPLAIN statements and
// any statement mentioning a write or DDL keyword.
func CheckSafe(query string) error {
	stmts := splitStatements(query)
	if len(stmts) == 0 {
		return fmt.Errorf("%w: empty statement", ErrUnsafeQuery)
	}
	for _, stmt := range stmts {
		if !leadingKeyword.MatchString(stmt) {
			return fmt.Errorf("%w: %q", ErrUnsafeQuery, firstWord(stmt))
		}
		if m := forbiddenKeywords.FindString(stmt); m != "" {
			return fmt.Errorf("%w: contains %s", ErrUnsafeQuery, strings.ToUpper(m))
		}
		if pragmaAssign.MatchString(stmt) {
			return fmt.Errorf("%w: pragma assignment", ErrUnsafeQuery)
		}
	}
	return nil
}

// splitStatements splits on semicolons outside single-quoted literals.
func splitStatements(query string) []string {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
	)
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == ';' && !inQuote:
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}

func firstWord(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

// #endregion
