package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// #region schema
const auditSchema = `
CREATE TABLE IF NOT EXISTS request_audit (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id       TEXT NOT NULL UNIQUE,
	original_text    TEXT NOT NULL,
	enriched_text    TEXT,
	method           TEXT NOT NULL,
	success          INTEGER NOT NULL DEFAULT 0,
	response         TEXT,
	error            TEXT,
	executed_queries TEXT NOT NULL DEFAULT '[]',
	trace_json       TEXT,
	created_at       TEXT NOT NULL
);
`
// #endregion schema

// ErrNotFound is returned by Get for an unknown request id.
var ErrNotFound = errors.New("audit entry not found")

// #region audit-log
// AuditLog persists one row per processed request.
type AuditLog struct {
	db *sql.DB
}

// NewAuditLog creates the request_audit table if needed.
func NewAuditLog(db *sql.DB) (*AuditLog, error) {
	if _, err := db.Exec(auditSchema); err != nil {
		return nil, fmt.Errorf("migrate audit: %w", err)
	}
	return &AuditLog{db: db}, nil
}
// #endregion audit-log

// #region record
// Record writes an audit entry. A zero CreatedAt is stamped with now.
func (a *AuditLog) Record(ctx context.Context, entry AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	queries := entry.ExecutedQueries
	if queries == nil {
		queries = []string{}
	}
	queriesJSON, err := json.Marshal(queries)
	if err != nil {
		return fmt.Errorf("marshal queries: %w", err)
	}

	success := 0
	if entry.Success {
		success = 1
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO request_audit (request_id, original_text, enriched_text, method, success, response, error, executed_queries, trace_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID,
		entry.OriginalText,
		nullIfEmpty(entry.EnrichedText),
		entry.Method,
		success,
		nullIfEmpty(entry.Response),
		nullIfEmpty(entry.Error),
		string(queriesJSON),
		nullIfEmpty(entry.TraceJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}
// #endregion record

// #region read
const selectAudit = `SELECT request_id, original_text, enriched_text, method, success, response, error, executed_queries, trace_json, created_at FROM request_audit`

// Recent returns up to n entries, newest first.
func (a *AuditLog) Recent(ctx context.Context, n int) ([]AuditEntry, error) {
	rows, err := a.db.QueryContext(ctx, selectAudit+` ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns the entry for requestID.
func (a *AuditLog) Get(ctx context.Context, requestID string) (AuditEntry, error) {
	row := a.db.QueryRowContext(ctx, selectAudit+` WHERE request_id = ?`, requestID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return AuditEntry{}, fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (AuditEntry, error) {
	var (
		e                                   AuditEntry
		enriched, response, errText, trace sql.NullString
		queriesJSON, createdAt              string
		success                             int
	)
	err := s.Scan(&e.RequestID, &e.OriginalText, &enriched, &e.Method, &success,
		&response, &errText, &queriesJSON, &trace, &createdAt)
	if err != nil {
		return AuditEntry{}, err
	}
	e.EnrichedText = enriched.String
	e.Response = response.String
	e.Error = errText.String
	e.TraceJSON = trace.String
	e.Success = success == 1
	if err := json.Unmarshal([]byte(queriesJSON), &e.ExecutedQueries); err != nil {
		return AuditEntry{}, fmt.Errorf("decode queries for %s: %w", e.RequestID, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		e.CreatedAt = t
	}
	return e, nil
}
// #endregion read

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
